package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"

	"github.com/example/eventform/internal/application"
	"github.com/example/eventform/internal/config"
	httptransport "github.com/example/eventform/internal/http"
	"github.com/example/eventform/internal/logging"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

// newHandler builds the routed, logged and CORS wrapped HTTP surface of a.
func newHandler(a *app, admin httptransport.AdminVerifier) http.Handler {
	logger := a.logger
	summary := httptransport.NewSummaryHandler(a.events, a.responses, a.keys, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Forms:     httptransport.NewFormHandler(a.responses, httptransport.RequireAdmin(admin, logger)(summary), logger),
		Events:    httptransport.NewEventHandler(a.events, a.qr, logger),
		Responses: httptransport.NewResponseHandler(a.responses, a.reports, logger),
		Keys:      httptransport.NewKeyHandler(a.keys, logger),
		Admin:     admin,
		Logger:    logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID"}),
	)(router)
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	admin, err := application.NewAdminCredential(cfg.AdminToken, application.DefaultArgon2idParams)
	if err != nil {
		return fmt.Errorf("admin credential: %w", err)
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open application", "error", err)
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHandler(a, admin),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("http server starting", "port", cfg.HTTPPort, "store", cfg.StoreDriver, "public_base_url", cfg.PublicBaseURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server error", "error", err)
		return err
	}
	logger.Info("http server stopped")
	return nil
}
