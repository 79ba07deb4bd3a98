package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies the normalized failure kind carried in error envelopes.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "validation_error"
	CodeAuthentication    ErrorCode = "authentication_error"
	CodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"
	CodeFileTooLarge      ErrorCode = "file_too_large"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeProcessing        ErrorCode = "processing_error"
	CodeExternalAPI       ErrorCode = "external_api_error"
	CodeInternal          ErrorCode = "internal_error"
)

// ErrFileNotFound is returned by the storage layer when a stored file is
// absent. Boundary code maps it to a 404 response.
var ErrFileNotFound = errors.New("file not found")

// APIError is a failure that carries a suggested HTTP status and a normalized
// error kind. APIErrors propagate unchanged from the layer that raised them to
// the HTTP boundary.
type APIError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsAPIError unwraps err into an *APIError if one is present in its chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func ValidationError(message string) *APIError {
	return &APIError{Code: CodeValidation, Status: http.StatusBadRequest, Message: message}
}

func FileTooLargeError(message string) *APIError {
	return &APIError{Code: CodeFileTooLarge, Status: http.StatusRequestEntityTooLarge, Message: message}
}

func UnsupportedFormatError(message string, details map[string]any) *APIError {
	return &APIError{Code: CodeUnsupportedFormat, Status: http.StatusUnsupportedMediaType, Message: message, Details: details}
}

func ProcessingError(message string) *APIError {
	return &APIError{Code: CodeProcessing, Status: http.StatusInternalServerError, Message: message}
}

func ExternalAPIError(status int, message string) *APIError {
	return &APIError{Code: CodeExternalAPI, Status: status, Message: message}
}

func InternalError(message string) *APIError {
	return &APIError{Code: CodeInternal, Status: http.StatusInternalServerError, Message: message}
}
