package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Snapshot is an immutable copy of the three durable collections.
type Snapshot struct {
	Events    []Event
	Responses []Response
	Keys      []APIKey
}

// SnapshotStore loads and saves the durable collections as a whole.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
}

// EventsChange describes the event collection after a commit. Version grows
// with every change so observers can discard notifications that arrive late.
type EventsChange struct {
	Version uint64
	Events  []Event
}

// EventsObserver is notified after a commit replaced the event collection.
type EventsObserver func(ctx context.Context, change EventsChange)

type change uint8

const (
	changeEvents change = 1 << iota
	changeResponses
	changeKeys
)

// State owns the events, responses and API keys of the process. Every
// command goes through commit, which swaps in a new snapshot only after the
// post-commit persistence hook succeeded. Persistence is skipped until Load
// completed so defaults never overwrite stored data.
type State struct {
	mu        sync.RWMutex
	current   Snapshot
	loaded    bool
	dirty     bool
	version   uint64
	store     SnapshotStore
	observers []EventsObserver
	logger    *slog.Logger
}

// NewState constructs an empty state container bound to store.
func NewState(store SnapshotStore, logger *slog.Logger) *State {
	return &State{store: store, logger: defaultLogger(logger)}
}

// Load reads the persisted collections once and opens the persistence gate.
func (s *State) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}

	logger := serviceLogger(ctx, s.logger, "State", "Load")
	if s.store != nil {
		snapshot, err := s.store.LoadSnapshot(ctx)
		if err != nil {
			s.mu.Unlock()
			logger.ErrorContext(ctx, "failed to load state", "error", err)
			return fmt.Errorf("load state: %w", err)
		}
		if s.dirty {
			logger.WarnContext(ctx, "discarding changes made before the initial load")
		}
		s.current = snapshot.clone()
	}
	s.loaded = true
	s.dirty = false
	s.version++

	notice := EventsChange{Version: s.version, Events: cloneEvents(s.current.Events)}
	observers := append([]EventsObserver(nil), s.observers...)
	logger.InfoContext(ctx, "state loaded",
		"events", len(s.current.Events),
		"responses", len(s.current.Responses),
		"keys", len(s.current.Keys),
	)
	s.mu.Unlock()

	notifyEvents(ctx, observers, notice)
	return nil
}

// Loaded reports whether the initial load completed.
func (s *State) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// OnEventsChanged registers fn to run after each commit touching events.
func (s *State) OnEventsChanged(fn EventsObserver) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current collections.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Events returns a copy of the event collection in display order.
func (s *State) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvents(s.current.Events)
}

// Responses returns a copy of the response collection in display order.
func (s *State) Responses() []Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneResponses(s.current.Responses)
}

// Keys returns a copy of the API key collection in display order.
func (s *State) Keys() []APIKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneKeys(s.current.Keys)
}

func (s *State) findEvent(id string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, event := range s.current.Events {
		if event.ID == id {
			return event, true
		}
	}
	return Event{}, false
}

// commit applies mutate to a working copy. mutate reports which collections
// it replaced; a zero result leaves the state untouched.
func (s *State) commit(ctx context.Context, mutate func(next *Snapshot) change) error {
	s.mu.Lock()

	next := s.current.clone()
	changed := mutate(&next)
	if changed == 0 {
		s.mu.Unlock()
		return nil
	}

	if s.loaded && s.store != nil {
		if err := s.store.SaveSnapshot(ctx, next); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("persist state: %w", err)
		}
	} else {
		s.dirty = true
	}

	s.current = next
	var (
		observers []EventsObserver
		notice    EventsChange
	)
	if changed&changeEvents != 0 {
		s.version++
		observers = append(observers, s.observers...)
		notice = EventsChange{Version: s.version, Events: cloneEvents(next.Events)}
	}
	s.mu.Unlock()

	notifyEvents(ctx, observers, notice)
	return nil
}

func notifyEvents(ctx context.Context, observers []EventsObserver, notice EventsChange) {
	for _, fn := range observers {
		fn(ctx, notice)
	}
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Events:    cloneEvents(s.Events),
		Responses: cloneResponses(s.Responses),
		Keys:      cloneKeys(s.Keys),
	}
}

func cloneEvents(events []Event) []Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

func cloneResponses(responses []Response) []Response {
	if len(responses) == 0 {
		return nil
	}
	out := make([]Response, len(responses))
	for i, response := range responses {
		response.Intents = append([]string(nil), response.Intents...)
		out[i] = response
	}
	return out
}

func cloneKeys(keys []APIKey) []APIKey {
	if len(keys) == 0 {
		return nil
	}
	out := make([]APIKey, len(keys))
	for i, key := range keys {
		key.LastUsed = cloneTime(key.LastUsed)
		out[i] = key
	}
	return out
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
