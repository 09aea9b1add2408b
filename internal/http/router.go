package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type RouterConfig struct {
	Forms     *FormHandler
	Events    *EventHandler
	Responses *ResponseHandler
	Keys      *KeyHandler
	// Admin verifies the bearer token of every management route.
	Admin      AdminVerifier
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	admin := RequireAdmin(cfg.Admin, cfg.Logger)
	apiKey := RequireAPIKey(cfg.Logger)

	guard := func(mw func(http.Handler) http.Handler, fn http.HandlerFunc) http.Handler {
		return mw(fn)
	}

	if cfg.Forms != nil {
		router.HandleFunc("/", cfg.Forms.Get).Methods(http.MethodGet)
		router.HandleFunc("/", cfg.Forms.Submit).Methods(http.MethodPost)
	}

	if cfg.Events != nil {
		router.Handle("/events", guard(admin, cfg.Events.List)).Methods(http.MethodGet)
		router.Handle("/events/upload", guard(admin, cfg.Events.Upload)).Methods(http.MethodPost)
		router.Handle("/events/bulk-status", guard(admin, cfg.Events.BulkStatus)).Methods(http.MethodPost)
		router.Handle("/events/delete", guard(admin, cfg.Events.Delete)).Methods(http.MethodPost)
		router.Handle("/events/{id}/cycle", guard(admin, cfg.Events.Cycle)).Methods(http.MethodPost)
		router.Handle("/events/{id}/qr.png", guard(admin, cfg.Events.QRCode)).Methods(http.MethodGet)

		router.Handle("/api/events", guard(apiKey, cfg.Events.ListLive)).Methods(http.MethodGet)
	}

	if cfg.Responses != nil {
		router.Handle("/responses", guard(admin, cfg.Responses.List)).Methods(http.MethodGet)
		router.Handle("/responses/export", guard(admin, cfg.Responses.Export)).Methods(http.MethodGet)

		router.Handle("/api/responses", guard(apiKey, cfg.Responses.List)).Methods(http.MethodGet)
	}

	if cfg.Keys != nil {
		router.Handle("/keys", guard(admin, cfg.Keys.List)).Methods(http.MethodGet)
		router.Handle("/keys", guard(admin, cfg.Keys.Generate)).Methods(http.MethodPost)
		router.Handle("/keys/{id}", guard(admin, cfg.Keys.Revoke)).Methods(http.MethodDelete)

		router.Handle("/api/keys", guard(admin, cfg.Keys.Generate)).Methods(http.MethodPost)
	}

	var handler http.Handler = router
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
