package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/eventform/internal/application"
	"github.com/example/eventform/internal/export"
)

type formService interface {
	PublicForm(ctx context.Context, eventID string) (application.PublicFormView, error)
	Submit(ctx context.Context, params application.SubmitResponseParams) (application.Response, error)
}

// FormHandler serves the public registration form selected by the event
// query parameter. Requests without the parameter go to the fallback handler.
type FormHandler struct {
	service   formService
	fallback  http.Handler
	responder responder
	logger    *slog.Logger
}

func NewFormHandler(service formService, fallback http.Handler, logger *slog.Logger) *FormHandler {
	base := defaultLogger(logger)
	return &FormHandler{service: service, fallback: fallback, responder: newResponder(base), logger: base}
}

func (h *FormHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "FormHandler", operation, attrs...)
}

// Get renders the form view, or defers to the fallback without an event signal.
func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := application.EventIDFromQuery(r.URL.Query())
	if !ok {
		if h.fallback == nil {
			http.NotFound(w, r)
			return
		}
		h.fallback.ServeHTTP(w, r)
		return
	}

	view, err := h.service.PublicForm(r.Context(), eventID)
	if err != nil {
		h.log(r.Context(), "Get", "event_id", eventID).ErrorContext(r.Context(), "public form lookup failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toFormView(view))
}

func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := application.EventIDFromQuery(r.URL.Query())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEventID)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Submit", "event_id", eventID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode submission", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	response, err := h.service.Submit(r.Context(), application.SubmitResponseParams{
		EventID: eventID,
		Input:   req.toInput(),
	})
	if err != nil {
		if errors.Is(err, application.ErrRegistrationClosed) {
			h.responder.writeJSON(r.Context(), w, http.StatusGone, formView{State: string(application.FormClosed), Message: closedMessage})
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, submitResponse{
		Message:  "Thank you",
		Response: toResponseDTO(response),
	})
}

const closedMessage = "Registration Closed"

type submitRequest struct {
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Title    string   `json:"title"`
	Company  string   `json:"company"`
	Intents  []string `json:"intents"`
}

func (r submitRequest) toInput() application.ResponseInput {
	return application.ResponseInput{
		FullName: r.FullName,
		Email:    r.Email,
		Phone:    r.Phone,
		Title:    r.Title,
		Company:  r.Company,
		Intents:  r.Intents,
	}
}

type formView struct {
	State   string    `json:"state"`
	Message string    `json:"message,omitempty"`
	Event   *eventDTO `json:"event,omitempty"`
	Intents []string  `json:"intents,omitempty"`
}

func toFormView(view application.PublicFormView) formView {
	out := formView{State: string(view.State), Intents: view.Intents}
	if view.State == application.FormClosed {
		out.Message = closedMessage
	}
	if view.Event != nil {
		dto := toEventDTO(*view.Event)
		out.Event = &dto
	}
	return out
}

type submitResponse struct {
	Message  string      `json:"message"`
	Response responseDTO `json:"response"`
}

type responseDTO struct {
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

func toResponseDTO(response application.Response) responseDTO {
	intents := response.Intents
	if intents == nil {
		intents = []string{}
	}
	return responseDTO{
		ID:          response.ID,
		EventID:     response.EventID,
		EventName:   response.EventName,
		FullName:    response.FullName,
		Email:       response.Email,
		Phone:       response.Phone,
		Title:       response.Title,
		Company:     response.Company,
		Intents:     intents,
		SubmittedAt: formatTimestamp(response.SubmittedAt),
	}
}

func formatTimestamp(at time.Time) string {
	return at.UTC().Format(export.TimestampLayout)
}
