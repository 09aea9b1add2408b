package persistence

import (
	"context"
	"encoding/json"
	"fmt"
)

// SlotStore is an opaque key-value blob store holding named slots.
type SlotStore interface {
	// LoadSlots returns the payload of every requested slot that exists.
	LoadSlots(ctx context.Context, names ...string) (map[string][]byte, error)
	// SaveSlots writes every given slot atomically.
	SaveSlots(ctx context.Context, slots map[string][]byte) error
}

// Repository encodes the collections into slots of a SlotStore.
type Repository struct {
	store SlotStore
}

// NewRepository constructs a repository backed by store.
func NewRepository(store SlotStore) *Repository {
	return &Repository{store: store}
}

// LoadCollections reads all three slots. Missing slots decode as empty
// collections.
func (r *Repository) LoadCollections(ctx context.Context) (Collections, error) {
	if r == nil || r.store == nil {
		return Collections{}, fmt.Errorf("persistence: repository not configured")
	}
	slots, err := r.store.LoadSlots(ctx, Slots()...)
	if err != nil {
		return Collections{}, fmt.Errorf("load slots: %w", err)
	}

	var out Collections
	if err := decodeSlot(slots, SlotEvents, &out.Events); err != nil {
		return Collections{}, err
	}
	if err := decodeSlot(slots, SlotResponses, &out.Responses); err != nil {
		return Collections{}, err
	}
	if err := decodeSlot(slots, SlotKeys, &out.Keys); err != nil {
		return Collections{}, err
	}
	return out, nil
}

// SaveCollections writes all three slots in full.
func (r *Repository) SaveCollections(ctx context.Context, collections Collections) error {
	if r == nil || r.store == nil {
		return fmt.Errorf("persistence: repository not configured")
	}
	slots := make(map[string][]byte, 3)
	if err := encodeSlot(slots, SlotEvents, collections.Events); err != nil {
		return err
	}
	if err := encodeSlot(slots, SlotResponses, collections.Responses); err != nil {
		return err
	}
	if err := encodeSlot(slots, SlotKeys, collections.Keys); err != nil {
		return err
	}
	if err := r.store.SaveSlots(ctx, slots); err != nil {
		return fmt.Errorf("save slots: %w", err)
	}
	return nil
}

func decodeSlot[T any](slots map[string][]byte, name string, dst *[]T) error {
	payload, ok := slots[name]
	if !ok || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptSlot, name, err)
	}
	return nil
}

func encodeSlot[T any](slots map[string][]byte, name string, values []T) error {
	if values == nil {
		values = []T{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	slots[name] = payload
	return nil
}
