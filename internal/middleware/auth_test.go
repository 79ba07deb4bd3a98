package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestAuthAcceptsValidKey(t *testing.T) {
	handler := Auth([]string{"key-one", "key-two"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/jobs/1", nil)
	req.Header.Set("Authorization", "Bearer key-two")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	handler := Auth([]string{"key-one"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/jobs/1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error_code"] != "authentication_error" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
	if body["message"] != "API key required" {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestAuthRejectsWrongKey(t *testing.T) {
	handler := Auth([]string{"key-one"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/jobs/1", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] != "Invalid API key" {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestAuthRejectsNonBearerScheme(t *testing.T) {
	handler := Auth([]string{"key-one"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/jobs/1", nil)
	req.Header.Set("Authorization", "Basic a2V5LW9uZQ==")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
