package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gateway/internal/domain"
	"gateway/internal/middleware"
)

// baseResponse carries the fields every response body shares.
type baseResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	baseResponse
	ErrorCode domain.ErrorCode `json:"error_code"`
	Details   map[string]any   `json:"details,omitempty"`
}

func (a *App) base(r *http.Request, message string) baseResponse {
	return baseResponse{
		Success:   true,
		Message:   message,
		RequestID: middleware.RequestIDFromContext(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError renders err as the standard error envelope. Server side
// failures keep their detail out of production responses; the full error is
// always logged.
func (a *App) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := domain.CodeInternal
	message := err.Error()
	var details map[string]any

	if apiErr, ok := domain.AsAPIError(err); ok {
		status = apiErr.Status
		code = apiErr.Code
		message = apiErr.Message
		details = apiErr.Details
	} else if errors.Is(err, domain.ErrFileNotFound) {
		status = http.StatusNotFound
		code = domain.CodeValidation
		message = "file not found"
	}

	if status >= 500 {
		a.Logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("request failed")
		// Raw error text from unclassified failures stays out of production
		// responses. APIError messages are already client-safe.
		if code == domain.CodeInternal && !a.Cfg.IsDevelopment() {
			message = "Internal server error"
			details = nil
		}
	}

	body := errorResponse{
		baseResponse: baseResponse{
			Success:   false,
			Message:   message,
			RequestID: middleware.RequestIDFromContext(r.Context()),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		ErrorCode: code,
		Details:   details,
	}
	a.json(w, status, body)
}
