package testfixtures

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/eventform/internal/application"
)

var (
	eventCounter    uint64
	responseCounter uint64
	keyCounter      uint64
)

var referenceTime = time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// DefaultBaseURL is the public form base used by fixture events.
const DefaultBaseURL = "https://forms.example.com/register"

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic event record.
type EventFixture struct {
	ID        string
	Name      string
	StartDate string
	EndDate   string
	Location  string
	Status    application.EventStatus
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic Draft event with optional overrides.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	fixture := EventFixture{
		ID:        application.EventID(referenceTime.UnixMilli(), int(idx)),
		Name:      fmt.Sprintf("Event %03d", idx),
		StartDate: "Mar 5, 2024",
		EndDate:   "Mar 6, 2024",
		Location:  "Remote",
		Status:    application.StatusDraft,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventName overrides the generated event name.
func WithEventName(name string) EventOption {
	return func(f *EventFixture) {
		f.Name = name
	}
}

// WithEventStatus sets the lifecycle status.
func WithEventStatus(status application.EventStatus) EventOption {
	return func(f *EventFixture) {
		f.Status = status
	}
}

// WithEventLocation overrides the venue.
func WithEventLocation(location string) EventOption {
	return func(f *EventFixture) {
		f.Location = location
	}
}

// Application returns the fixture as an application.Event whose form URL is
// built from DefaultBaseURL.
func (f EventFixture) Application() application.Event {
	urls, _ := application.NewFormURLBuilder(DefaultBaseURL)
	return application.Event{
		ID:        f.ID,
		Name:      f.Name,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Location:  f.Location,
		Status:    f.Status,
		FormURL:   urls.FormURL(f.ID),
	}
}

// --------------------------- Response fixtures ----------------------------

// ResponseFixture represents a deterministic public form submission.
type ResponseFixture struct {
	ID          string
	EventID     string
	EventName   string
	FullName    string
	Email       string
	Phone       string
	Title       string
	Company     string
	Intents     []string
	SubmittedAt time.Time
}

// ResponseOption configures the generated response fixture.
type ResponseOption func(*ResponseFixture)

// NewResponseFixture returns a deterministic response to event.
func NewResponseFixture(event EventFixture, opts ...ResponseOption) ResponseFixture {
	idx := atomic.AddUint64(&responseCounter, 1)
	submitted := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ResponseFixture{
		ID:          application.ResponseID(submitted.UnixMilli()),
		EventID:     event.ID,
		EventName:   event.Name,
		FullName:    fmt.Sprintf("Attendee %03d", idx),
		Email:       fmt.Sprintf("attendee-%03d@example.com", idx),
		Phone:       fmt.Sprintf("+1 555 %04d", idx),
		Title:       "Engineer",
		Company:     "Example Corp",
		Intents:     []string{application.IntentAMP},
		SubmittedAt: submitted,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithResponseIntents overrides the selected intents.
func WithResponseIntents(intents ...string) ResponseOption {
	return func(f *ResponseFixture) {
		f.Intents = intents
	}
}

// WithResponseFullName overrides the attendee name.
func WithResponseFullName(name string) ResponseOption {
	return func(f *ResponseFixture) {
		f.FullName = name
	}
}

// WithResponseSubmittedAt overrides the submission instant.
func WithResponseSubmittedAt(t time.Time) ResponseOption {
	return func(f *ResponseFixture) {
		f.SubmittedAt = t
	}
}

// Application returns the fixture as an application.Response value.
func (f ResponseFixture) Application() application.Response {
	return application.Response{
		ID:          f.ID,
		EventID:     f.EventID,
		EventName:   f.EventName,
		FullName:    f.FullName,
		Email:       f.Email,
		Phone:       f.Phone,
		Title:       f.Title,
		Company:     f.Company,
		Intents:     append([]string(nil), f.Intents...),
		SubmittedAt: f.SubmittedAt,
	}
}

// ----------------------------- Key fixtures -------------------------------

// KeyFixture represents a deterministic API key record.
type KeyFixture struct {
	ID        string
	Key       string
	Label     string
	CreatedAt time.Time
}

// KeyOption configures the generated key fixture.
type KeyOption func(*KeyFixture)

// NewKeyFixture returns a deterministic key whose secret ends in its counter.
func NewKeyFixture(opts ...KeyOption) KeyFixture {
	idx := atomic.AddUint64(&keyCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Second)
	fixture := KeyFixture{
		ID:        application.KeyID(created.UnixMilli()),
		Key:       fmt.Sprintf("%s%s%04d", application.KeyPrefix, strings.Repeat("0", application.KeySecretLength-4), idx),
		Label:     fmt.Sprintf("Integration %03d", idx),
		CreatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithKeyLabel overrides the key label.
func WithKeyLabel(label string) KeyOption {
	return func(f *KeyFixture) {
		f.Label = label
	}
}

// WithKeySecret overrides the full key value.
func WithKeySecret(secret string) KeyOption {
	return func(f *KeyFixture) {
		f.Key = secret
	}
}

// Application returns the fixture as an application.APIKey value.
func (f KeyFixture) Application() application.APIKey {
	return application.APIKey{
		ID:        f.ID,
		Key:       f.Key,
		Label:     f.Label,
		CreatedAt: f.CreatedAt,
	}
}
