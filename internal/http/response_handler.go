package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/eventform/internal/application"
)

type responseService interface {
	FilterByEvent(ctx context.Context, eventID string) ([]application.Response, error)
}

type reportService interface {
	Export(ctx context.Context, params application.ExportParams) (application.ExportResult, error)
}

type ResponseHandler struct {
	responses responseService
	reports   reportService
	responder responder
	logger    *slog.Logger
}

func NewResponseHandler(responses responseService, reports reportService, logger *slog.Logger) *ResponseHandler {
	base := defaultLogger(logger)
	return &ResponseHandler{responses: responses, reports: reports, responder: newResponder(base), logger: base}
}

func (h *ResponseHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ResponseHandler", operation, attrs...)
}

// List returns the responses of one event, or all of them for "all" or no filter.
func (h *ResponseHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.responses == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	filter := r.URL.Query().Get("event")
	responses, err := h.responses.FilterByEvent(r.Context(), filter)
	if err != nil {
		h.log(r.Context(), "List", "event_filter", filter).ErrorContext(r.Context(), "response listing failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]responseDTO, 0, len(responses))
	for _, response := range responses {
		dtos = append(dtos, toResponseDTO(response))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, responseListResponse{Responses: dtos})
}

// Export downloads the filtered responses as CSV. An empty store answers 204.
func (h *ResponseHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reports == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filter := query.Get("event")
	if filter == "" {
		filter = application.AllEvents
	}
	logger := h.log(r.Context(), "Export", "event_filter", filter)

	result, err := h.reports.Export(r.Context(), application.ExportParams{
		EventID: filter,
		Quoting: query.Get("quote"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Content)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Content); err != nil {
		logger.WarnContext(r.Context(), "failed to write export", "error", err)
	}
}

type responseListResponse struct {
	Responses []responseDTO `json:"responses"`
}
