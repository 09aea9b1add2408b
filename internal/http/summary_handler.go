package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/eventform/internal/application"
)

type eventLister interface {
	ListEvents(ctx context.Context) ([]application.EventSummary, error)
}

type keyLister interface {
	ListKeys(ctx context.Context) ([]application.KeyView, error)
}

// SummaryHandler answers the management landing page with collection totals.
type SummaryHandler struct {
	events    eventLister
	responses responseService
	keys      keyLister
	responder responder
	logger    *slog.Logger
}

func NewSummaryHandler(events eventLister, responses responseService, keys keyLister, logger *slog.Logger) *SummaryHandler {
	base := defaultLogger(logger)
	return &SummaryHandler{events: events, responses: responses, keys: keys, responder: newResponder(base), logger: base}
}

func (h *SummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.events == nil || h.responses == nil || h.keys == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	events, err := h.events.ListEvents(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	responses, err := h.responses.FilterByEvent(ctx, application.AllEvents)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	keys, err := h.keys.ListKeys(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	summary := summaryResponse{
		Events:    len(events),
		ByStatus:  map[string]int{},
		Responses: len(responses),
		Keys:      len(keys),
	}
	for _, status := range []application.EventStatus{application.StatusDraft, application.StatusLive, application.StatusClosed} {
		summary.ByStatus[string(status)] = 0
	}
	for _, item := range events {
		summary.ByStatus[string(item.Event.Status)]++
	}

	handlerLogger(ctx, h.logger, "SummaryHandler", "Get").DebugContext(ctx, "summary served", "events", summary.Events)
	h.responder.writeJSON(ctx, w, http.StatusOK, summary)
}

type summaryResponse struct {
	Events    int            `json:"events"`
	ByStatus  map[string]int `json:"byStatus"`
	Responses int            `json:"responses"`
	Keys      int            `json:"keys"`
}
