package testfixtures

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/eventform/internal/application"
	"github.com/example/eventform/internal/export"
	"github.com/example/eventform/internal/ingest"
	"github.com/example/eventform/internal/qrcode"
)

// MemorySnapshotStore keeps the last saved snapshot in memory and counts saves.
type MemorySnapshotStore struct {
	mu       sync.Mutex
	snapshot application.Snapshot
	saves    int
	// SaveErr, when set, is returned by every SaveSnapshot call.
	SaveErr error
}

// NewMemorySnapshotStore returns a store whose first load yields seed.
func NewMemorySnapshotStore(seed application.Snapshot) *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshot: seed}
}

func (m *MemorySnapshotStore) LoadSnapshot(ctx context.Context) (application.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, nil
}

func (m *MemorySnapshotStore) SaveSnapshot(ctx context.Context, snapshot application.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.snapshot = snapshot
	m.saves++
	return nil
}

// Saved returns the last persisted snapshot.
func (m *MemorySnapshotStore) Saved() application.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// SaveCount reports how many snapshots were persisted.
func (m *MemorySnapshotStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	BaseURL     string
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("batch"),
		BaseURL:     DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("batch")
	}
	if factory.BaseURL == "" {
		factory.BaseURL = DefaultBaseURL
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the batch identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithBaseURL overrides the public form base URL.
func WithBaseURL(base string) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.BaseURL = base
	}
}

// Services is a fully wired, loaded set of application services sharing one
// state container.
type Services struct {
	Store     *MemorySnapshotStore
	State     *application.State
	Events    *application.EventService
	Responses *application.ResponseService
	Keys      *application.KeyService
	Reports   *application.ReportService
	QR        *application.QRCache
}

// NewServices wires every service over a memory store seeded with seed and
// loads the state. QR artifacts are refreshed synchronously after every
// event change.
func (f *ServiceFactory) NewServices(tb testing.TB, seed application.Snapshot) *Services {
	tb.Helper()

	urls, err := application.NewFormURLBuilder(f.BaseURL)
	if err != nil {
		tb.Fatalf("invalid base url %q: %v", f.BaseURL, err)
	}

	now := f.Clock.NowFunc()
	ids := application.NewIDClock(now)
	store := NewMemorySnapshotStore(seed)
	state := application.NewState(store, f.Logger)
	qr := application.NewQRCache(qrcode.Default(), 2, f.Logger)
	state.OnEventsChanged(func(ctx context.Context, change application.EventsChange) {
		_ = qr.Refresh(ctx, change)
	})

	services := &Services{
		Store:     store,
		State:     state,
		Events:    application.NewEventServiceWithLogger(state, ingest.NewParser(), ids, urls, f.IDGenerator.NextFunc(), f.Logger),
		Responses: application.NewResponseServiceWithLogger(state, ids, now, f.Logger),
		Keys:      application.NewKeyServiceWithLogger(state, ids, now, application.NewSecretGenerator(application.SecretSourceCrypto), f.Logger),
		Reports:   application.NewReportServiceWithLogger(state, now, export.QuotingLegacy, f.Logger),
		QR:        qr,
	}

	if err := state.Load(context.Background()); err != nil {
		tb.Fatalf("failed to load state: %v", err)
	}
	return services
}
