package http

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/eventform/internal/application"
)

type fakeVerifier struct {
	token string
	err   error
}

func (f fakeVerifier) Verify(token string) error {
	if f.err != nil {
		return f.err
	}
	if token != f.token {
		return application.ErrUnauthorized
	}
	return nil
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		header         string
		verifier       AdminVerifier
		expectedStatus int
	}{
		{name: "missing credentials", verifier: fakeVerifier{token: "good"}, expectedStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", verifier: fakeVerifier{token: "good"}, expectedStatus: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer bad", verifier: fakeVerifier{token: "good"}, expectedStatus: http.StatusUnauthorized},
		{name: "verifier failure", header: "Bearer good", verifier: fakeVerifier{err: errors.New("boom")}, expectedStatus: http.StatusInternalServerError},
		{name: "no verifier", header: "Bearer good", expectedStatus: http.StatusInternalServerError},
		{name: "valid token", header: "bearer good", verifier: fakeVerifier{token: "good"}, expectedStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			called := false
			handler := RequireAdmin(tc.verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, req)

			if recorder.Code != tc.expectedStatus {
				t.Fatalf("expected %d, got %d", tc.expectedStatus, recorder.Code)
			}
			if called != (tc.expectedStatus == http.StatusOK) {
				t.Fatalf("unexpected next handler invocation: %v", called)
			}
		})
	}
}

func TestRequireAPIKeyAttachesKey(t *testing.T) {
	t.Parallel()

	key := application.KeyPrefix + strings.Repeat("a", application.KeySecretLength)
	var captured string
	handler := RequireAPIKey(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = APIKeyFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK || captured != key {
		t.Fatalf("expected key in context, got %d %q", recorder.Code, captured)
	}

	for _, bad := range []string{"", "Bearer sk_live_", "Bearer " + key + "!", "Bearer sk_test_" + strings.Repeat("a", 32)} {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		if bad != "" {
			req.Header.Set("Authorization", bad)
		}
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %q, got %d", bad, recorder.Code)
		}
	}
}

func TestRequestLoggerAttachesRequestScopedLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Errorf("expected a request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("X-Request-ID", "req-42")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("expected request id echo, got %q", recorder.Header().Get("X-Request-ID"))
	}
	logged := buf.String()
	if !strings.Contains(logged, `"request_id":"req-42"`) || !strings.Contains(logged, `"status":418`) {
		t.Fatalf("unexpected log output %s", logged)
	}

	fresh := httptest.NewRecorder()
	handler.ServeHTTP(fresh, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(fresh.Header().Get("X-Request-ID")) != 36 {
		t.Fatalf("expected a generated uuid, got %q", fresh.Header().Get("X-Request-ID"))
	}
}
