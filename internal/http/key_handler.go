package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/example/eventform/internal/application"
)

type keyService interface {
	GenerateKey(ctx context.Context, label string) (application.GeneratedKey, error)
	RevokeKey(ctx context.Context, params application.RevokeKeyParams) (bool, error)
	ListKeys(ctx context.Context) ([]application.KeyView, error)
}

type KeyHandler struct {
	service   keyService
	responder responder
	logger    *slog.Logger
}

func NewKeyHandler(service keyService, logger *slog.Logger) *KeyHandler {
	base := defaultLogger(logger)
	return &KeyHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *KeyHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "KeyHandler", operation, attrs...)
}

func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	views, err := h.service.ListKeys(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "key listing failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]keyDTO, 0, len(views))
	for _, view := range views {
		dtos = append(dtos, keyDTO{
			ID:        view.ID,
			Label:     view.Label,
			Key:       view.Masked,
			CreatedAt: formatTimestamp(view.CreatedAt),
			LastUsed:  optionalTimestamp(view.LastUsed),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, keyListResponse{Keys: dtos})
}

// Generate issues a key and reveals its full secret in this response only.
func (h *KeyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req generateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Generate", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode key request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	generated, err := h.service.GenerateKey(r.Context(), req.Label)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	key := generated.Key
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, keyResponse{Key: keyDTO{
		ID:        key.ID,
		Label:     key.Label,
		Key:       key.Key,
		CreatedAt: formatTimestamp(key.CreatedAt),
	}})
}

// Revoke hard deletes a key. The confirm query parameter must be true.
func (h *KeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	keyID := pathVar(r, "id")
	if keyID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingKeyID)
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	revoked, err := h.service.RevokeKey(r.Context(), application.RevokeKeyParams{KeyID: keyID, Confirmed: confirmed})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, revokeKeyResponse{Revoked: revoked})
}

type keyDTO struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Key       string  `json:"key"`
	CreatedAt string  `json:"createdAt"`
	LastUsed  *string `json:"lastUsed,omitempty"`
}

func optionalTimestamp(at *time.Time) *string {
	if at == nil {
		return nil
	}
	formatted := formatTimestamp(*at)
	return &formatted
}

type generateKeyRequest struct {
	Label string `json:"label"`
}

type keyResponse struct {
	Key keyDTO `json:"key"`
}

type keyListResponse struct {
	Keys []keyDTO `json:"keys"`
}

type revokeKeyResponse struct {
	Revoked bool `json:"revoked"`
}
