// Package falai integrates the fal.ai inference API. All operations return
// normalized results with locally generated job identifiers so the rest of the
// service never depends on the provider's ID scheme.
package falai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gateway/internal/domain"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("falai: api key is required")

// Options configures the fal.ai client.
type Options struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client performs HTTP calls to the fal.ai workflow API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	closeOnce  sync.Once
}

// Model describes one inference model advertised by the provider.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// fileUpload is one named file part of a multipart request.
type fileUpload struct {
	field    string
	filename string
	content  []byte
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://fal.run/fal-ai"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 30,
			},
		}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

// Close releases pooled connections. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.httpClient.CloseIdleConnections()
	})
}

// call performs one request against the provider. When files are present the
// body is multipart form data with map-valued fields JSON-encoded, matching
// what the workflow endpoints expect; otherwise the payload is sent as JSON.
// Responses with status >= 400 become APIErrors with the provider's message.
func (c *Client) call(ctx context.Context, method, endpoint string, payload map[string]any, files []fileUpload) (map[string]any, error) {
	endpointURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")

	var body io.Reader
	contentType := ""
	if len(files) > 0 {
		buf := &bytes.Buffer{}
		writer := multipart.NewWriter(buf)
		for key, value := range payload {
			var field string
			if m, ok := value.(map[string]any); ok {
				encoded, err := json.Marshal(m)
				if err != nil {
					return nil, fmt.Errorf("falai: encode field %s: %w", key, err)
				}
				field = string(encoded)
			} else {
				field = fmt.Sprintf("%v", value)
			}
			if err := writer.WriteField(key, field); err != nil {
				return nil, fmt.Errorf("falai: write field %s: %w", key, err)
			}
		}
		for _, file := range files {
			part, err := writer.CreateFormFile(file.field, file.filename)
			if err != nil {
				return nil, fmt.Errorf("falai: create file part: %w", err)
			}
			if _, err := part.Write(file.content); err != nil {
				return nil, fmt.Errorf("falai: write file part: %w", err)
			}
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("falai: finalize multipart body: %w", err)
		}
		body = buf
		contentType = writer.FormDataContentType()
	} else if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("falai: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, endpointURL, body)
	if err != nil {
		return nil, fmt.Errorf("falai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(err)
	}

	decoded := map[string]any{}
	if len(raw) > 0 {
		// A malformed body on a success status is still a provider failure.
		if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode < 400 {
			return nil, domain.ExternalAPIError(http.StatusBadGateway, "invalid response from provider")
		}
	}

	if resp.StatusCode >= 400 {
		message := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if m, ok := decoded["message"].(string); ok && m != "" {
			message = m
		}
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Str("message", message).
			Msg("falai: request rejected")
		return nil, &domain.APIError{
			Code:    mapErrorCode(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: message,
		}
	}
	return decoded, nil
}

// transportError maps network-level failures: timeouts surface as 504,
// everything else as 503.
func (c *Client) transportError(err error) error {
	var urlErr *url.Error
	timedOut := errors.Is(err, context.DeadlineExceeded)
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		timedOut = true
	}
	if timedOut {
		c.logger.Error().Err(err).Msg("falai: request timed out")
		return domain.ExternalAPIError(http.StatusGatewayTimeout, "Request timed out")
	}
	c.logger.Error().Err(err).Msg("falai: request failed")
	return domain.ExternalAPIError(http.StatusServiceUnavailable, "Connection error: "+err.Error())
}

func mapErrorCode(status int) domain.ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return domain.CodeValidation
	case http.StatusUnauthorized:
		return domain.CodeAuthentication
	case http.StatusTooManyRequests:
		return domain.CodeRateLimitExceeded
	case http.StatusRequestEntityTooLarge:
		return domain.CodeFileTooLarge
	default:
		return domain.CodeExternalAPI
	}
}

// EnhanceImage submits an image to the enhancement workflow.
func (c *Client) EnhanceImage(ctx context.Context, imageData []byte, filename string, params domain.EnhanceParams) (*domain.Result, error) {
	resp, err := c.call(ctx, http.MethodPost, "/workflows/enhance-image",
		params.Map(),
		[]fileUpload{{field: "image", filename: filename, content: imageData}})
	if err != nil {
		return nil, err
	}
	return &domain.Result{
		JobID:     uuid.NewString(),
		Status:    domain.JobStatusCompleted,
		ResultURL: stringField(resp, "image_url"),
		Metadata: map[string]any{
			"model_used":      "image-enhancement",
			"processing_time": numberField(resp, "processing_time"),
			"original_size":   len(imageData),
		},
	}, nil
}

// StyleTransfer submits an image to the style transfer workflow.
func (c *Client) StyleTransfer(ctx context.Context, imageData []byte, filename string, params domain.StyleTransferParams) (*domain.Result, error) {
	resp, err := c.call(ctx, http.MethodPost, "/workflows/style-transfer",
		params.Map(),
		[]fileUpload{{field: "image", filename: filename, content: imageData}})
	if err != nil {
		return nil, err
	}
	return &domain.Result{
		JobID:     uuid.NewString(),
		Status:    domain.JobStatusCompleted,
		ResultURL: stringField(resp, "image_url"),
		Metadata: map[string]any{
			"model_used":      "style-transfer",
			"processing_time": numberField(resp, "processing_time"),
			"style_reference": params.StyleReference,
		},
	}, nil
}

// GenerateImage runs text-to-image generation.
func (c *Client) GenerateImage(ctx context.Context, params domain.GenerateParams) (*domain.Result, error) {
	resp, err := c.call(ctx, http.MethodPost, "/workflows/stable-diffusion-xl", params.Map(), nil)
	if err != nil {
		return nil, err
	}
	seed := any(nil)
	if params.Seed != nil {
		seed = *params.Seed
	}
	if s, ok := resp["seed"]; ok {
		seed = s
	}
	return &domain.Result{
		JobID:     uuid.NewString(),
		Status:    domain.JobStatusCompleted,
		ResultURL: stringField(resp, "image_url"),
		Metadata: map[string]any{
			"model_used":      "stable-diffusion-xl",
			"processing_time": numberField(resp, "processing_time"),
			"prompt":          params.Prompt,
			"seed":            seed,
			"dimensions":      fmt.Sprintf("%dx%d", params.Width, params.Height),
		},
	}, nil
}

// ProcessVideo submits a video to the processing workflow.
func (c *Client) ProcessVideo(ctx context.Context, videoData []byte, filename string, params domain.VideoParams) (*domain.Result, error) {
	resp, err := c.call(ctx, http.MethodPost, "/workflows/video-process",
		params.Map(),
		[]fileUpload{{field: "video", filename: filename, content: videoData}})
	if err != nil {
		return nil, err
	}
	metadata := map[string]any{
		"model_used":      "video-" + string(params.Operation),
		"processing_time": numberField(resp, "processing_time"),
		"original_size":   len(videoData),
		"quality":         params.Quality,
	}
	if params.FPS != nil {
		metadata["fps"] = *params.FPS
	}
	return &domain.Result{
		JobID:     uuid.NewString(),
		Status:    domain.JobStatusCompleted,
		ResultURL: stringField(resp, "video_url"),
		Metadata:  metadata,
	}, nil
}

// GetJobStatus polls the provider for the state of a delegated job. Unknown
// provider states are reported as pending so pollers keep waiting instead of
// failing on vocabulary drift.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*domain.UpstreamJob, error) {
	resp, err := c.call(ctx, http.MethodGet, "/jobs/"+jobID, nil, nil)
	if err != nil {
		return nil, err
	}
	metadata, _ := resp["metadata"].(map[string]any)
	return &domain.UpstreamJob{
		JobID:     jobID,
		Status:    mapJobStatus(stringField(resp, "status")),
		Progress:  numberField(resp, "progress"),
		ResultURL: stringField(resp, "result_url"),
		Metadata:  metadata,
	}, nil
}

func mapJobStatus(providerStatus string) domain.JobStatus {
	switch providerStatus {
	case "queued":
		return domain.JobStatusPending
	case "running":
		return domain.JobStatusProcessing
	case "completed":
		return domain.JobStatusCompleted
	case "failed":
		return domain.JobStatusFailed
	case "cancelled":
		return domain.JobStatusCancelled
	default:
		return domain.JobStatusPending
	}
}

// ListModels fetches the models the provider currently advertises.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	resp, err := c.call(ctx, http.MethodGet, "/models", nil, nil)
	if err != nil {
		return nil, err
	}
	raw, ok := resp["models"]
	if !ok {
		return nil, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, domain.ExternalAPIError(http.StatusBadGateway, "invalid models payload")
	}
	var models []Model
	if err := json.Unmarshal(encoded, &models); err != nil {
		return nil, domain.ExternalAPIError(http.StatusBadGateway, "invalid models payload")
	}
	return models, nil
}

// Health reports provider reachability by listing models with a short budget.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := c.ListModels(ctx)
	return err
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func numberField(m map[string]any, key string) float64 {
	f, _ := m[key].(float64)
	return f
}
