package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/eventform/internal/application"
	"github.com/example/eventform/internal/config"
	"github.com/example/eventform/internal/ingest"
	"github.com/example/eventform/internal/persistence"
	"github.com/example/eventform/internal/persistence/redis"
	"github.com/example/eventform/internal/persistence/sqlite"
	"github.com/example/eventform/internal/qrcode"
)

// slotStore is a persistence.SlotStore that owns a connection.
type slotStore interface {
	persistence.SlotStore
	io.Closer
}

// app is the loaded state container plus every service sharing it.
type app struct {
	store     slotStore
	state     *application.State
	events    *application.EventService
	responses *application.ResponseService
	keys      *application.KeyService
	reports   *application.ReportService
	qr        *application.QRCache
	logger    *slog.Logger
}

func openStore(ctx context.Context, cfg config.Config) (slotStore, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		storage, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLiteDSN))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return storage, nil
	case config.StoreRedis:
		storage, err := redis.Open(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		return storage, nil
	case config.StoreMemory:
		return persistence.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// openApp connects the configured store, wires the services and loads the
// persisted collections.
func openApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	urls, err := application.NewFormURLBuilder(cfg.PublicBaseURL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	now := time.Now
	ids := application.NewIDClock(now)
	state := application.NewState(newSnapshotStoreAdapter(persistence.NewRepository(store)), logger)
	qr := application.NewQRCache(qrcode.Default(), cfg.QRWorkers, logger)
	state.OnEventsChanged(qr.Observe)

	a := &app{
		store:     store,
		state:     state,
		events:    application.NewEventServiceWithLogger(state, ingest.NewParser(), ids, urls, uuid.NewString, logger),
		responses: application.NewResponseServiceWithLogger(state, ids, now, logger),
		keys:      application.NewKeyServiceWithLogger(state, ids, now, application.NewSecretGenerator(cfg.KeySource), logger),
		reports:   application.NewReportServiceWithLogger(state, now, cfg.CSVQuoting, logger),
		qr:        qr,
		logger:    logger,
	}

	if err := state.Load(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	return a, nil
}

// Close waits for pending QR renders and releases the store.
func (a *app) Close() error {
	if a == nil {
		return nil
	}
	a.qr.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
		return err
	}
	return nil
}
