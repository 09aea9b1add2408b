package application

import (
	"fmt"
	"time"
)

// EventStatus is the lifecycle state of an event's public form.
type EventStatus string

const (
	// StatusDraft is assigned to every event at ingestion time.
	StatusDraft EventStatus = "Draft"
	// StatusLive marks an event whose form is actively promoted.
	StatusLive EventStatus = "Live"
	// StatusClosed rejects further submissions.
	StatusClosed EventStatus = "Closed"
)

// Next returns the status that follows s in the Draft, Live, Closed cycle.
func (s EventStatus) Next() EventStatus {
	switch s {
	case StatusDraft:
		return StatusLive
	case StatusLive:
		return StatusClosed
	default:
		return StatusDraft
	}
}

// Valid reports whether s is one of the known statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusLive, StatusClosed:
		return true
	}
	return false
}

// ParseEventStatus converts user input into an EventStatus.
func ParseEventStatus(value string) (EventStatus, error) {
	status := EventStatus(value)
	if !status.Valid() {
		return "", fmt.Errorf("unknown event status %q", value)
	}
	return status, nil
}

// Event is an organizer-defined occasion with a public registration form.
type Event struct {
	ID        string
	Name      string
	StartDate string
	EndDate   string
	Location  string
	Status    EventStatus
	FormURL   string
}

// EventSummary pairs an event with the live number of responses referencing it.
type EventSummary struct {
	Event         Event
	ResponseCount int
}

// Intent catalog offered on every public form.
const (
	IntentSimplicity        = "Simplicity"
	IntentLiquidNetwork     = "Liquid Network"
	IntentEnterpriseCustody = "Enterprise Custody Solutions"
	IntentAMP               = "AMP"
)

// IntentCatalog returns the fixed list of interest areas in display order.
func IntentCatalog() []string {
	return []string{IntentSimplicity, IntentLiquidNetwork, IntentEnterpriseCustody, IntentAMP}
}

func knownIntent(intent string) bool {
	for _, candidate := range IntentCatalog() {
		if candidate == intent {
			return true
		}
	}
	return false
}

// Response is a single attendee submission linked to one event.
type Response struct {
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

// ResponseInput captures the attendee supplied fields of a public form.
type ResponseInput struct {
	FullName string `validate:"required"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"required"`
	Title    string `validate:"required"`
	Company  string `validate:"required"`
	Intents  []string
}

// SubmitResponseParams wraps the data required to submit a public form.
type SubmitResponseParams struct {
	EventID string
	Input   ResponseInput
}

// FormState describes what the public form should present for an event.
type FormState string

const (
	// FormOpen renders the submission form.
	FormOpen FormState = "open"
	// FormClosed renders the terminal "Registration Closed" view.
	FormClosed FormState = "closed"
)

// PublicFormView is the public form projection of a single event.
type PublicFormView struct {
	State   FormState
	Event   *Event
	Intents []string
}

// APIKey is a bearer credential record for the described automation hookup.
type APIKey struct {
	ID        string
	Key       string
	Label     string
	CreatedAt time.Time
	LastUsed  *time.Time
}

// MaskedKey returns the display form exposing only the last four characters.
func (k APIKey) MaskedKey() string {
	return maskKey(k.Key)
}

// GeneratedKey is returned exactly once, when the secret is still visible.
type GeneratedKey struct {
	Key APIKey
}

// KeyView is the listing projection of an API key without its secret.
type KeyView struct {
	ID        string
	Label     string
	Masked    string
	CreatedAt time.Time
	LastUsed  *time.Time
}

// DeleteEventsParams wraps the inputs of a destructive bulk delete.
type DeleteEventsParams struct {
	Selection *Selection
	Confirmed bool
}

// RevokeKeyParams wraps the inputs of a destructive key revocation.
type RevokeKeyParams struct {
	KeyID     string
	Confirmed bool
}

// ExportParams selects which responses are exported and how.
type ExportParams struct {
	EventID string
	Quoting string
}

// ExportResult is a rendered CSV document and its download name.
type ExportResult struct {
	FileName string
	Content  []byte
	Rows     int
}

// AllEvents is the filter value selecting every response.
const AllEvents = "all"
