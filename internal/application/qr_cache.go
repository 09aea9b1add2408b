package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"golang.org/x/sync/errgroup"
)

// QRRenderer encodes a form URL as a PNG image.
type QRRenderer interface {
	PNG(content string) ([]byte, error)
}

// ArtifactError reports a QR artifact that could not be produced for one event.
type ArtifactError struct {
	EventID string
	Err     error
}

// Error implements the error interface.
func (e *ArtifactError) Error() string {
	return fmt.Sprintf("qr artifact for event %s: %v", e.EventID, e.Err)
}

// Unwrap exposes the underlying renderer error.
func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// QRCache memoizes QR artifacts per event id and form URL. Refreshes only
// render ids that lack an artifact, and a refresh computed against an older
// event list never overwrites the results of a newer one.
type QRCache struct {
	mu       sync.RWMutex
	renderer QRRenderer
	workers  int
	version  uint64
	live     map[string]string
	entries  map[string]qrCacheEntry
	pending  sync.WaitGroup
	logger   *slog.Logger
}

type qrCacheEntry struct {
	formURL string
	png     []byte
}

// NewQRCache constructs a cache rendering at most workers artifacts at once.
func NewQRCache(renderer QRRenderer, workers int, logger *slog.Logger) *QRCache {
	if workers <= 0 {
		workers = 4
	}
	return &QRCache{
		renderer: renderer,
		workers:  workers,
		live:     make(map[string]string),
		entries:  make(map[string]qrCacheEntry),
		logger:   defaultLogger(logger),
	}
}

// Get returns the cached artifact for eventID.
func (c *QRCache) Get(eventID string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[eventID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), entry.png...), true
}

// Len returns the number of cached artifacts.
func (c *QRCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Observe schedules a background refresh for change. It matches EventsObserver.
func (c *QRCache) Observe(ctx context.Context, change EventsChange) {
	if c == nil {
		return
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		_ = c.Refresh(context.WithoutCancel(ctx), change)
	}()
}

// Wait blocks until every scheduled refresh finished.
func (c *QRCache) Wait() {
	if c == nil {
		return
	}
	c.pending.Wait()
}

// Refresh brings the cache in line with change. Artifacts of events that left
// the list are dropped; missing artifacts are rendered concurrently. A failure
// for one event is logged and leaves only that artifact absent; the joined
// failures are returned.
func (c *QRCache) Refresh(ctx context.Context, change EventsChange) error {
	if c == nil {
		return nil
	}
	logger := serviceLogger(ctx, c.logger, "QRCache", "Refresh", "version", change.Version)

	c.mu.Lock()
	if change.Version < c.version {
		c.mu.Unlock()
		logger.DebugContext(ctx, "discarding stale event list")
		return nil
	}
	c.version = change.Version
	c.live = make(map[string]string, len(change.Events))
	for _, event := range change.Events {
		c.live[event.ID] = event.FormURL
	}
	for id, entry := range c.entries {
		if url, ok := c.live[id]; !ok || url != entry.formURL {
			delete(c.entries, id)
		}
	}
	var missing []Event
	for _, event := range change.Events {
		if _, ok := c.entries[event.ID]; !ok {
			missing = append(missing, event)
		}
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return nil
	}

	rendered := make([][]byte, len(missing))
	failures := make([]error, len(missing))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.workers)
	for i, event := range missing {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				failures[i] = &ArtifactError{EventID: event.ID, Err: err}
				return nil
			}
			png, err := c.render(event.FormURL)
			if err != nil {
				failures[i] = &ArtifactError{EventID: event.ID, Err: err}
				return nil
			}
			rendered[i] = png
			return nil
		})
	}
	_ = group.Wait()

	merged := 0
	c.mu.Lock()
	for i, event := range missing {
		if rendered[i] == nil {
			continue
		}
		if url, ok := c.live[event.ID]; !ok || url != event.FormURL {
			continue
		}
		if _, exists := c.entries[event.ID]; exists {
			continue
		}
		c.entries[event.ID] = qrCacheEntry{formURL: event.FormURL, png: rendered[i]}
		merged++
	}
	c.mu.Unlock()

	var errs []error
	for _, failure := range failures {
		if failure == nil {
			continue
		}
		logger.WarnContext(ctx, "qr artifact unavailable", "error", failure, "error_kind", ErrorKind(failure))
		errs = append(errs, failure)
	}
	logger.DebugContext(ctx, "qr artifacts refreshed", "rendered", merged, "failed", len(errs))
	return errors.Join(errs...)
}

// Artifact returns the PNG for event, rendering it on demand when the cache
// has no entry for its current form URL.
func (c *QRCache) Artifact(ctx context.Context, event Event) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("QRCache is nil")
	}
	c.mu.RLock()
	entry, ok := c.entries[event.ID]
	c.mu.RUnlock()
	if ok && entry.formURL == event.FormURL {
		return append([]byte(nil), entry.png...), nil
	}

	png, err := c.render(event.FormURL)
	if err != nil {
		return nil, &ArtifactError{EventID: event.ID, Err: err}
	}

	c.mu.Lock()
	if url, live := c.live[event.ID]; live && url == event.FormURL {
		c.entries[event.ID] = qrCacheEntry{formURL: event.FormURL, png: png}
	}
	c.mu.Unlock()
	return append([]byte(nil), png...), nil
}

func (c *QRCache) render(formURL string) ([]byte, error) {
	if c.renderer == nil {
		return nil, fmt.Errorf("qr renderer not configured")
	}
	return c.renderer.PNG(formURL)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// QRFileName returns the download name for an event's QR artifact.
func QRFileName(eventName string) string {
	return "QR_" + whitespaceRun.ReplaceAllString(eventName, "_") + ".png"
}
