package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// NoIntentSelected is the message shown when a submission carries no intent.
const NoIntentSelected = "no intent selected"

var responseFieldNames = map[string]string{
	"FullName": "fullName",
	"Email":    "email",
	"Phone":    "phone",
	"Title":    "title",
	"Company":  "company",
}

// ResponseService accepts public form submissions and projects the response store.
type ResponseService struct {
	state    *State
	clock    *IDClock
	now      func() time.Time
	validate *validator.Validate
	logger   *slog.Logger
}

// NewResponseService constructs a response service with the provided dependencies.
func NewResponseService(state *State, clock *IDClock, now func() time.Time) *ResponseService {
	return NewResponseServiceWithLogger(state, clock, now, nil)
}

// NewResponseServiceWithLogger constructs a response service with a specified logger.
func NewResponseServiceWithLogger(state *State, clock *IDClock, now func() time.Time, logger *slog.Logger) *ResponseService {
	if now == nil {
		now = time.Now
	}
	if clock == nil {
		clock = NewIDClock(now)
	}
	return &ResponseService{
		state:    state,
		clock:    clock,
		now:      now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   defaultLogger(logger),
	}
}

func (s *ResponseService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResponseService", operation, attrs...)
}

// PublicForm resolves what the public form presents for eventID. Missing and
// Closed events produce the closed view.
func (s *ResponseService) PublicForm(ctx context.Context, eventID string) (PublicFormView, error) {
	if s == nil || s.state == nil {
		return PublicFormView{}, fmt.Errorf("ResponseService is not configured")
	}
	event, ok := s.state.findEvent(eventID)
	if !ok || event.Status == StatusClosed {
		return PublicFormView{State: FormClosed}, nil
	}
	return PublicFormView{State: FormOpen, Event: &event, Intents: IntentCatalog()}, nil
}

// Submit validates a public form submission and prepends the resulting response.
func (s *ResponseService) Submit(ctx context.Context, params SubmitResponseParams) (response Response, err error) {
	if s == nil || s.state == nil {
		err = fmt.Errorf("ResponseService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "Submit", "event_id", params.EventID)
	defer func() {
		if err != nil {
			level := slog.LevelError
			var vErr *ValidationError
			if errors.As(err, &vErr) || errors.Is(err, ErrRegistrationClosed) {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "failed to submit response", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("response_id", response.ID).InfoContext(ctx, "response submitted")
	}()

	event, ok := s.state.findEvent(params.EventID)
	if !ok || event.Status == StatusClosed {
		err = ErrRegistrationClosed
		return
	}

	input, vErr := s.validateInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	response = Response{
		ID:          ResponseID(s.clock.Stamp()),
		EventID:     event.ID,
		EventName:   event.Name,
		FullName:    input.FullName,
		Email:       input.Email,
		Phone:       input.Phone,
		Title:       input.Title,
		Company:     input.Company,
		Intents:     input.Intents,
		SubmittedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	err = s.state.commit(ctx, func(next *Snapshot) change {
		stored := response
		stored.Intents = append([]string(nil), response.Intents...)
		next.Responses = append([]Response{stored}, next.Responses...)
		return changeResponses
	})
	if err != nil {
		response = Response{}
	}
	return
}

func (s *ResponseService) validateInput(input ResponseInput) (ResponseInput, *ValidationError) {
	normalized := ResponseInput{
		FullName: strings.TrimSpace(input.FullName),
		Email:    strings.TrimSpace(input.Email),
		Phone:    strings.TrimSpace(input.Phone),
		Title:    strings.TrimSpace(input.Title),
		Company:  strings.TrimSpace(input.Company),
	}

	vErr := &ValidationError{}
	seen := make(map[string]struct{}, len(input.Intents))
	for _, intent := range input.Intents {
		if _, dup := seen[intent]; dup {
			continue
		}
		seen[intent] = struct{}{}
		if !knownIntent(intent) {
			vErr.add("intents", fmt.Sprintf("unknown intent %q", intent))
			continue
		}
		normalized.Intents = append(normalized.Intents, intent)
	}
	if len(input.Intents) == 0 {
		vErr.add("intents", NoIntentSelected)
	}

	if err := s.validate.Struct(normalized); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			vErr.add("input", err.Error())
			return normalized, vErr
		}
		for _, fe := range fieldErrs {
			name := responseFieldNames[fe.Field()]
			if name == "" {
				name = fe.Field()
			}
			switch fe.Tag() {
			case "required":
				vErr.add(name, "is required")
			case "email":
				vErr.add(name, "must be a valid email address")
			default:
				vErr.add(name, "is invalid")
			}
		}
	}
	return normalized, vErr
}

// FilterByEvent returns the responses for eventID, or every response when
// eventID is "all" or empty.
func (s *ResponseService) FilterByEvent(ctx context.Context, eventID string) ([]Response, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("ResponseService is not configured")
	}
	return filterResponses(s.state.Responses(), eventID), nil
}

// CountForEvent counts the responses referencing eventID, including orphans.
func (s *ResponseService) CountForEvent(ctx context.Context, eventID string) (int, error) {
	if s == nil || s.state == nil {
		return 0, fmt.Errorf("ResponseService is not configured")
	}
	return countByEvent(s.state.Responses())[eventID], nil
}

func filterResponses(responses []Response, eventID string) []Response {
	if eventID == "" || eventID == AllEvents {
		return responses
	}
	var out []Response
	for _, response := range responses {
		if response.EventID == eventID {
			out = append(out, response)
		}
	}
	return out
}
