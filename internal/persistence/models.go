package persistence

// Slot names of the durable collections. Each slot holds a JSON array.
const (
	SlotEvents    = "ef_events"
	SlotResponses = "ef_responses"
	SlotKeys      = "ef_keys"
)

// Slots lists every slot in load order.
func Slots() []string {
	return []string{SlotEvents, SlotResponses, SlotKeys}
}

// Event is the stored form of an event.
type Event struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Location  string `json:"location"`
	Status    string `json:"status"`
	FormURL   string `json:"formUrl"`
}

// Response is the stored form of a public form submission. SubmittedAt keeps
// the ISO-8601 text it was written with.
type Response struct {
	ID          string   `json:"id"`
	EventID     string   `json:"eventId"`
	EventName   string   `json:"eventName"`
	FullName    string   `json:"fullName"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Intents     []string `json:"intents"`
	SubmittedAt string   `json:"submittedAt"`
}

// APIKey is the stored form of an integration key.
type APIKey struct {
	ID        string  `json:"id"`
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	CreatedAt string  `json:"createdAt"`
	LastUsed  *string `json:"lastUsed,omitempty"`
}

// Collections groups the three durable collections in display order.
type Collections struct {
	Events    []Event
	Responses []Response
	Keys      []APIKey
}
