package handlers

import (
	"net/http"

	"gateway/internal/pipeline"
	"gateway/internal/providers/falai"
)

type capabilitiesResponse struct {
	baseResponse
	Capabilities map[string][]string `json:"capabilities"`
	Models       []falai.Model       `json:"models"`
	Limits       map[string]any      `json:"limits"`
}

// staticModels is the advertised model set when the provider catalog is
// unreachable.
var staticModels = []falai.Model{
	{ID: "stable-diffusion-xl", Name: "Stable Diffusion XL", Description: "High-quality image generation from text prompts", Type: "image_generation"},
	{ID: "image-enhancement", Name: "Image Enhancement", Description: "AI-powered image quality improvement", Type: "image_enhancement"},
	{ID: "style-transfer", Name: "Style Transfer", Description: "Artistic style transfer for images and videos", Type: "style_transfer"},
	{ID: "video-enhancement", Name: "Video Enhancement", Description: "Video quality improvement and stabilization", Type: "video_processing"},
}

// Capabilities handles GET /api/v1/capabilities. The model list comes from
// the live provider catalog when possible, falling back to the static set.
func (a *App) Capabilities(w http.ResponseWriter, r *http.Request) {
	models, err := a.Provider.ListModels(r.Context())
	if err != nil || len(models) == 0 {
		if err != nil {
			a.Logger.Warn().Err(err).Msg("capabilities: model catalog unavailable, using static list")
		}
		models = staticModels
	}

	a.json(w, http.StatusOK, capabilitiesResponse{
		baseResponse: a.base(r, "API capabilities"),
		Capabilities: map[string][]string{
			"image": {"enhance", "style_transfer", "generate"},
			"video": {"enhance", "stabilize", "style_transfer"},
		},
		Models: models,
		Limits: map[string]any{
			"max_file_size":        a.Cfg.MaxFileSize,
			"max_batch_size":       pipeline.MaxBatchSize,
			"max_image_resolution": "4096x4096",
			"max_video_resolution": "1920x1080",
			"max_video_duration":   300,
			"rate_limit": map[string]any{
				"requests_per_minute": a.Cfg.RateLimitPerMin,
			},
			"supported_formats": map[string]any{
				"image": a.Cfg.AllowedImageTypes,
				"video": a.Cfg.AllowedVideoTypes,
			},
		},
	})
}

// Info handles GET /, the root API description.
func (a *App) Info(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"name":        "Media Gateway",
		"version":     Version,
		"description": "AI-powered photo and video processing API",
		"status":      "online",
		"environment": a.Cfg.AppEnv,
		"api_v1":      "/api/v1",
		"endpoints": map[string]any{
			"image": map[string]string{
				"enhance":        "/api/v1/image/enhance",
				"style_transfer": "/api/v1/image/style-transfer",
				"generate":       "/api/v1/image/generate",
				"batch":          "/api/v1/image/batch",
			},
			"video": map[string]string{
				"process":        "/api/v1/video/process",
				"enhance":        "/api/v1/video/enhance",
				"stabilize":      "/api/v1/video/stabilize",
				"style_transfer": "/api/v1/video/style-transfer",
				"formats":        "/api/v1/video/formats",
			},
			"health": map[string]string{
				"basic":     "/api/v1/health",
				"detailed":  "/api/v1/health/detailed",
				"readiness": "/api/v1/health/readiness",
				"liveness":  "/api/v1/health/liveness",
			},
			"capabilities": "/api/v1/capabilities",
		},
	})
}
