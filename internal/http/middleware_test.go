package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/raid-controller/internal/application"
)

var fastTokenParams = application.Argon2idParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestVerifier(t *testing.T, token string) *application.TokenVerifier {
	t.Helper()
	encoded, err := application.HashToken(token, fastTokenParams)
	if err != nil {
		t.Fatalf("HashToken() error = %v", err)
	}
	verifier, err := application.NewTokenVerifier(encoded)
	if err != nil {
		t.Fatalf("NewTokenVerifier() error = %v", err)
	}
	return verifier
}

func TestRequireToken(t *testing.T) {
	t.Parallel()

	verifier := newTestVerifier(t, "s3cret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RequireToken(verifier, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{name: "missing credentials", expectedStatus: http.StatusUnauthorized},
		{name: "non bearer scheme", header: "Basic czNjcmV0", expectedStatus: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer nope", expectedStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer s3cret", expectedStatus: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, req)
			if recorder.Code != tc.expectedStatus {
				t.Fatalf("expected %d, got %d (%s)", tc.expectedStatus, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestRequestLoggerAttachesLogger(t *testing.T) {
	t.Parallel()

	var attached bool
	handler := RequestLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attached = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusNoContent)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/wipes", nil))
	if !attached {
		t.Fatalf("expected request scoped logger in context")
	}
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected downstream status, got %d", recorder.Code)
	}
}
