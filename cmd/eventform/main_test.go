package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/eventform/internal/application"
	"github.com/example/eventform/internal/config"
	"github.com/example/eventform/internal/logging"
	"github.com/example/eventform/internal/persistence"
	"github.com/example/eventform/internal/persistence/sqlite"
)

func sampleSnapshot() application.Snapshot {
	submitted := time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)
	used := submitted.Add(90 * time.Minute)
	return application.Snapshot{
		Events: []application.Event{{
			ID:        "evt_1709631000000_0",
			Name:      "Summit",
			StartDate: "Mar 5, 2024",
			EndDate:   "Mar 6, 2024",
			Location:  "Berlin",
			Status:    application.StatusLive,
			FormURL:   "https://forms.example.com/register?event=evt_1709631000000_0",
		}},
		Responses: []application.Response{{
			ID:          "resp_1709631000000",
			EventID:     "evt_1709631000000_0",
			EventName:   "Summit",
			FullName:    "Ada Lovelace",
			Email:       "ada@example.com",
			Phone:       "+44 20 0000",
			Title:       "Analyst",
			Company:     "Engines Ltd",
			Intents:     []string{application.IntentAMP, application.IntentSimplicity},
			SubmittedAt: submitted,
		}},
		Keys: []application.APIKey{{
			ID:        "key_1709631000000",
			Key:       application.KeyPrefix + strings.Repeat("a", application.KeySecretLength),
			Label:     "Zapier",
			CreatedAt: submitted,
			LastUsed:  &used,
		}},
	}
}

func TestSnapshotStoreAdapterRoundTrip(t *testing.T) {
	stores := map[string]func(t *testing.T) persistence.SlotStore{
		"memory": func(t *testing.T) persistence.SlotStore {
			return persistence.NewMemoryStore()
		},
		"sqlite": func(t *testing.T) persistence.SlotStore {
			storage, err := sqlite.Open(t.Context(), sqlite.InMemoryConfig())
			require.NoError(t, err)
			t.Cleanup(func() { _ = storage.Close() })
			require.NoError(t, storage.Migrate(t.Context()))
			return storage
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			adapter := newSnapshotStoreAdapter(persistence.NewRepository(store))
			want := sampleSnapshot()

			require.NoError(t, adapter.SaveSnapshot(t.Context(), want))

			got, err := adapter.LoadSnapshot(t.Context())
			require.NoError(t, err)
			require.Equal(t, want, got)

			slots, err := store.LoadSlots(t.Context(), persistence.SlotResponses, persistence.SlotKeys)
			require.NoError(t, err)
			require.Contains(t, string(slots[persistence.SlotResponses]), `"submittedAt":"2024-03-05T09:30:00.000Z"`)
			require.Contains(t, string(slots[persistence.SlotKeys]), `"lastUsed":"2024-03-05T11:00:00.000Z"`)
		})
	}
}

func TestSnapshotStoreAdapterAcceptsForeignOffsets(t *testing.T) {
	store := persistence.NewMemoryStore()
	require.NoError(t, store.SaveSlots(t.Context(), map[string][]byte{
		persistence.SlotResponses: []byte(`[{"id":"resp_1","eventId":"evt_1_0","intents":[],"submittedAt":"2024-03-05T10:30:00+01:00"}]`),
	}))

	snapshot, err := newSnapshotStoreAdapter(persistence.NewRepository(store)).LoadSnapshot(t.Context())
	require.NoError(t, err)
	require.Len(t, snapshot.Responses, 1)
	require.True(t, snapshot.Responses[0].SubmittedAt.Equal(time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)))
	require.Equal(t, time.UTC, snapshot.Responses[0].SubmittedAt.Location())
}

func TestSnapshotStoreAdapterRejectsCorruptTimestamps(t *testing.T) {
	tests := map[string]map[string][]byte{
		"response": {persistence.SlotResponses: []byte(`[{"id":"resp_1","submittedAt":"yesterday"}]`)},
		"key":      {persistence.SlotKeys: []byte(`[{"id":"key_1","createdAt":"2024-03-05T09:30:00.000Z","lastUsed":"soon"}]`)},
	}
	for name, slots := range tests {
		t.Run(name, func(t *testing.T) {
			store := persistence.NewMemoryStore()
			require.NoError(t, store.SaveSlots(t.Context(), slots))

			_, err := newSnapshotStoreAdapter(persistence.NewRepository(store)).LoadSnapshot(t.Context())
			require.ErrorIs(t, err, persistence.ErrCorruptSlot)
		})
	}
}

func setCLIEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("EVENTFORM_CONFIG", "")
	t.Setenv("EVENTFORM_STORE_DRIVER", config.StoreSQLite)
	t.Setenv("EVENTFORM_SQLITE_DSN", filepath.Join(dir, "eventform.db"))
	t.Setenv("EVENTFORM_ADMIN_TOKEN", "admin-secret")
	t.Setenv("EVENTFORM_PUBLIC_BASE_URL", "https://forms.example.com/register")
	t.Setenv("EVENTFORM_LOG_LEVEL", "error")
	return dir
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func TestCommandLineWorkflow(t *testing.T) {
	dir := setCLIEnv(t)

	out, _, err := runCLI(t, "keys", "generate", "--label", "Zapier")
	require.NoError(t, err)
	fields := strings.Split(strings.TrimSpace(out), "\t")
	require.Len(t, fields, 3)
	keyID, fullKey := fields[0], fields[2]
	require.True(t, strings.HasPrefix(fullKey, application.KeyPrefix))

	out, _, err = runCLI(t, "keys", "list")
	require.NoError(t, err)
	require.Contains(t, out, "Zapier")
	require.Contains(t, out, "sk_live_..."+fullKey[len(fullKey)-4:])
	require.NotContains(t, out, fullKey)

	_, _, err = runCLI(t, "keys", "revoke", keyID)
	require.ErrorContains(t, err, "--yes")

	_, stderr, err := runCLI(t, "export")
	require.NoError(t, err)
	require.Contains(t, stderr, "nothing to export")

	sheet := filepath.Join(dir, "events.csv")
	require.NoError(t, os.WriteFile(sheet, []byte("Event,Date,City\nSummit,2024-03-05,Berlin\nExpo,,\n"), 0o644))
	out, _, err = runCLI(t, "ingest", sheet)
	require.NoError(t, err)
	require.Contains(t, out, ": 2 events")
	require.Contains(t, out, "https://forms.example.com/register?event=evt_")

	cfg, err := config.Load()
	require.NoError(t, err)
	a, err := openApp(t.Context(), cfg, logging.New(&bytes.Buffer{}, "error"))
	require.NoError(t, err)
	events := a.state.Events()
	require.Len(t, events, 2)
	_, found, err := a.events.CycleStatus(t.Context(), events[0].ID)
	require.NoError(t, err)
	require.True(t, found)
	_, err = a.responses.Submit(t.Context(), application.SubmitResponseParams{
		EventID: events[0].ID,
		Input: application.ResponseInput{
			FullName: "Ada Lovelace",
			Email:    "ada@example.com",
			Phone:    "+44 20 0000",
			Title:    "Analyst",
			Company:  "Engines Ltd",
			Intents:  []string{application.IntentAMP},
		},
	})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	target := filepath.Join(dir, "responses.csv")
	_, stderr, err = runCLI(t, "export", "--event", events[0].ID, "--out", target, "--quote", "rfc4180")
	require.NoError(t, err)
	require.Contains(t, stderr, "wrote 1 rows")
	content, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Contains(t, string(content), "Ada Lovelace")
	require.Contains(t, string(content), "Summit")

	out, _, err = runCLI(t, "keys", "revoke", keyID, "--yes")
	require.NoError(t, err)
	require.Contains(t, out, "revoked "+keyID)

	_, _, err = runCLI(t, "keys", "revoke", keyID, "--yes")
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestExportRejectsUnknownQuoting(t *testing.T) {
	setCLIEnv(t)
	_, _, err := runCLI(t, "export", "--quote", "fancy")
	require.Error(t, err)
}

func TestNewHandlerAppliesCORSAndAuth(t *testing.T) {
	cfg := config.Config{
		StoreDriver:   config.StoreMemory,
		PublicBaseURL: "https://forms.example.com/register",
		KeySource:     application.SecretSourceCrypto,
		QRWorkers:     1,
	}
	a, err := openApp(t.Context(), cfg, logging.New(&bytes.Buffer{}, "error"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	admin, err := application.NewAdminCredential("admin-secret", application.Argon2idParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16})
	require.NoError(t, err)
	handler := newHandler(a, admin)

	preflight := httptest.NewRequest(http.MethodOptions, "/events", nil)
	preflight.Header.Set("Origin", "https://crm.example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, preflight)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Origin", "https://crm.example.com")
	req.Header.Set("Authorization", "Bearer admin-secret")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, recorder.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/events", nil)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}
