package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/eventform/internal/application"
	"github.com/example/eventform/internal/qrcode"
)

// MaxUploadBytes bounds the size of an uploaded spreadsheet.
const MaxUploadBytes = 32 << 20

type eventService interface {
	Ingest(ctx context.Context, params application.IngestParams) (application.IngestResult, error)
	CycleStatus(ctx context.Context, eventID string) (application.Event, bool, error)
	SetBulkStatus(ctx context.Context, selection *application.Selection, status application.EventStatus) (int, error)
	DeleteSelected(ctx context.Context, params application.DeleteEventsParams) (int, error)
	GetEvent(ctx context.Context, eventID string) (application.Event, error)
	ListEvents(ctx context.Context) ([]application.EventSummary, error)
	ListByStatus(ctx context.Context, status application.EventStatus) ([]application.Event, error)
}

type qrArtifacts interface {
	Artifact(ctx context.Context, event application.Event) ([]byte, error)
	Get(eventID string) ([]byte, bool)
}

type EventHandler struct {
	service   eventService
	qr        qrArtifacts
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, qr qrArtifacts, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, qr: qr, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	summaries, err := h.service.ListEvents(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "event listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]eventDTO, 0, len(summaries))
	for _, summary := range summaries {
		dto := toEventDTO(summary.Event)
		count := summary.ResponseCount
		dto.ResponseCount = &count
		if h.qr != nil {
			// only artifacts already rendered by a refresh are inlined
			if png, ok := h.qr.Get(summary.Event.ID); ok {
				dto.QRDataURL = qrcode.DataURL(png)
			}
		}
		dtos = append(dtos, dto)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventListResponse{Events: dtos})
}

// ListLive serves the integration feed of Live events.
func (h *EventHandler) ListLive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	events, err := h.service.ListByStatus(r.Context(), application.StatusLive)
	if err != nil {
		h.log(r.Context(), "ListLive").ErrorContext(r.Context(), "live event listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]eventDTO, 0, len(events))
	for _, event := range events {
		dtos = append(dtos, toEventDTO(event))
	}
	h.log(r.Context(), "ListLive").DebugContext(r.Context(), "live events served", "count", len(dtos))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventListResponse{Events: dtos})
}

func (h *EventHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.log(r.Context(), "Upload", "error_kind", "bad_request").WarnContext(r.Context(), "missing upload", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingUpload)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.log(r.Context(), "Upload", "error_kind", "bad_request").WarnContext(r.Context(), "failed to read upload", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingUpload)
		return
	}

	logger := h.log(r.Context(), "Upload", "file_name", header.Filename, "bytes", len(data))

	result, err := h.service.Ingest(r.Context(), application.IngestParams{FileName: header.Filename, Data: data})
	if err != nil {
		logger.WarnContext(r.Context(), "upload rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]eventDTO, 0, len(result.Events))
	for _, event := range result.Events {
		dtos = append(dtos, toEventDTO(event))
	}
	logger.InfoContext(r.Context(), "upload ingested", "batch_id", result.BatchID, "created", len(dtos))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, ingestResponse{BatchID: result.BatchID, Events: dtos})
}

func (h *EventHandler) Cycle(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := pathVar(r, "id")
	if eventID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEventID)
		return
	}

	logger := h.log(r.Context(), "Cycle", "event_id", eventID)

	event, found, err := h.service.CycleStatus(r.Context(), eventID)
	if err != nil {
		logger.ErrorContext(r.Context(), "status cycle failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !found {
		// unknown ids are a no-op for the command
		h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bulkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "BulkStatus", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode bulk status request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	selection, err := h.selection(r.Context(), req.selectionRequest)
	if err != nil {
		h.log(r.Context(), "BulkStatus").ErrorContext(r.Context(), "selection failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger := h.log(r.Context(), "BulkStatus", "status", req.Status, "selected", selection.Len())

	updated, err := h.service.SetBulkStatus(r.Context(), selection, application.EventStatus(req.Status))
	if err != nil {
		logger.WarnContext(r.Context(), "bulk status failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{Count: updated})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req deleteEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode delete request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	selection, err := h.selection(r.Context(), req.selectionRequest)
	if err != nil {
		h.log(r.Context(), "Delete").ErrorContext(r.Context(), "selection failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger := h.log(r.Context(), "Delete", "selected", selection.Len(), "confirmed", req.Confirm)

	removed, err := h.service.DeleteSelected(r.Context(), application.DeleteEventsParams{
		Selection: selection,
		Confirmed: req.Confirm,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "event deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{Count: removed})
}

// selection replays the listing checkboxes: ids is the captured set, each
// toggled id flips membership in order, and toggleAll flips the header box
// over every current event last.
func (h *EventHandler) selection(ctx context.Context, req selectionRequest) (*application.Selection, error) {
	selection := application.NewSelection(req.IDs...)
	for _, id := range req.Toggle {
		if id == "" {
			continue
		}
		selection.Toggle(id)
	}
	if !req.ToggleAll {
		return selection, nil
	}

	summaries, err := h.service.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	all := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		all = append(all, summary.Event.ID)
	}
	selection.ToggleAll(all)
	return selection, nil
}

// QRCode streams the PNG artifact of one event as a download.
func (h *EventHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil || h.qr == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := pathVar(r, "id")
	logger := h.log(r.Context(), "QRCode", "event_id", eventID)

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	png, err := h.qr.Artifact(r.Context(), event)
	if err != nil {
		logger.ErrorContext(r.Context(), "qr artifact unavailable", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", application.QRFileName(event.Name)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		logger.WarnContext(r.Context(), "failed to write qr artifact", "error", err)
	}
}

type eventDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Location      string `json:"location"`
	Status        string `json:"status"`
	FormURL       string `json:"formUrl"`
	ResponseCount *int   `json:"responseCount,omitempty"`
	QRDataURL     string `json:"qrDataUrl,omitempty"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:        event.ID,
		Name:      event.Name,
		StartDate: event.StartDate,
		EndDate:   event.EndDate,
		Location:  event.Location,
		Status:    string(event.Status),
		FormURL:   event.FormURL,
	}
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type eventListResponse struct {
	Events []eventDTO `json:"events"`
}

type ingestResponse struct {
	BatchID string     `json:"batchId"`
	Events  []eventDTO `json:"events"`
}

type selectionRequest struct {
	IDs       []string `json:"ids"`
	Toggle    []string `json:"toggle,omitempty"`
	ToggleAll bool     `json:"toggleAll,omitempty"`
}

type bulkStatusRequest struct {
	selectionRequest
	Status string `json:"status"`
}

type deleteEventsRequest struct {
	selectionRequest
	Confirm bool `json:"confirm"`
}

type countResponse struct {
	Count int `json:"count"`
}
