package application

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// IDClock issues epoch millisecond stamps for identifiers. Stamps are strictly
// increasing within a process so two batches created in the same millisecond
// still receive distinct ids while keeping the evt_{millis}_{row} format.
type IDClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDClock constructs an IDClock backed by now.
func NewIDClock(now func() time.Time) *IDClock {
	if now == nil {
		now = time.Now
	}
	return &IDClock{now: now}
}

// Stamp returns the next epoch millisecond value.
func (c *IDClock) Stamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

// EventID formats the identifier of the row at index within an upload batch.
func EventID(stamp int64, index int) string {
	return fmt.Sprintf("evt_%d_%d", stamp, index)
}

// ResponseID formats a response identifier.
func ResponseID(stamp int64) string {
	return fmt.Sprintf("resp_%d", stamp)
}

// KeyID formats an API key record identifier.
func KeyID(stamp int64) string {
	return fmt.Sprintf("key_%d", stamp)
}

// FormQueryParam is the query parameter that switches a request into public form mode.
const FormQueryParam = "event"

// FormURLBuilder derives public form addresses from the configured origin and path.
type FormURLBuilder struct {
	base string
}

// NewFormURLBuilder validates base and strips any query or fragment from it.
func NewFormURLBuilder(base string) (FormURLBuilder, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		return FormURLBuilder{}, fmt.Errorf("public base URL is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return FormURLBuilder{}, fmt.Errorf("parse public base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return FormURLBuilder{}, fmt.Errorf("public base URL must be absolute: %q", base)
	}
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return FormURLBuilder{base: parsed.Scheme + "://" + parsed.Host + path}, nil
}

// Base returns the origin and path every form URL starts with.
func (b FormURLBuilder) Base() string {
	return b.base
}

// FormURL returns {origin}{path}?event={id}.
func (b FormURLBuilder) FormURL(eventID string) string {
	return b.base + "?" + FormQueryParam + "=" + url.QueryEscape(eventID)
}

// EventIDFromQuery extracts the public form routing signal from a query
// string. An empty value counts as absent.
func EventIDFromQuery(values url.Values) (string, bool) {
	id := values.Get(FormQueryParam)
	if id == "" {
		return "", false
	}
	return id, true
}
