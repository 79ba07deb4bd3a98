package handlers

import (
	"net/http"
	"strconv"

	"gateway/internal/domain"
)

type videoResponse struct {
	baseResponse
	VideoURL     string         `json:"video_url"`
	ThumbnailURL string         `json:"thumbnail_url,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ProcessVideo handles POST /api/v1/video/process. Multipart form data: the
// video under "file" plus "operation", "quality", "fps" and "resolution".
func (a *App) ProcessVideo(w http.ResponseWriter, r *http.Request) {
	a.processVideo(w, r, "")
}

// EnhanceVideo handles POST /api/v1/video/enhance.
func (a *App) EnhanceVideo(w http.ResponseWriter, r *http.Request) {
	a.processVideo(w, r, domain.VideoOpEnhance)
}

// StabilizeVideo handles POST /api/v1/video/stabilize.
func (a *App) StabilizeVideo(w http.ResponseWriter, r *http.Request) {
	a.processVideo(w, r, domain.VideoOpStabilize)
}

// VideoStyleTransfer handles POST /api/v1/video/style-transfer.
func (a *App) VideoStyleTransfer(w http.ResponseWriter, r *http.Request) {
	a.processVideo(w, r, domain.VideoOpStyleTransfer)
}

// processVideo implements all video operations. The shortcut routes pin the
// operation; the generic route takes it from the form.
func (a *App) processVideo(w http.ResponseWriter, r *http.Request, fixedOp domain.VideoOperation) {
	content, header, err := a.readUpload(r, "file")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	op := fixedOp
	if op == "" {
		op = domain.VideoOperation(r.FormValue("operation"))
	}
	params := domain.DefaultVideoParams(op)
	if quality := r.FormValue("quality"); quality != "" {
		params.Quality = quality
	}
	if raw := r.FormValue("fps"); raw != "" {
		fps, err := strconv.Atoi(raw)
		if err != nil {
			a.respondError(w, r, domain.ValidationError("invalid fps: not a number"))
			return
		}
		params.FPS = &fps
	}
	if resolution := r.FormValue("resolution"); resolution != "" {
		params.Resolution = resolution
	}

	upload, err := a.Store.SaveUpload(r.Context(), content, contentTypeOf(header), header.Filename)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	stored, err := a.Store.Read(r.Context(), upload.Filename, upload.Subdir)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	result, err := a.Pipeline.ProcessVideo(r.Context(), stored, upload.Info, upload.Filename, params)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	message := "Video processed successfully"
	if result.Cached {
		message += " (cached)"
	}
	a.json(w, http.StatusOK, videoResponse{
		baseResponse: a.base(r, message),
		VideoURL:     result.Result.ResultURL,
		Metadata:     result.Result.Metadata,
	})
}

// VideoJobStatus handles GET /api/v1/video/job/{job_id}.
func (a *App) VideoJobStatus(w http.ResponseWriter, r *http.Request) {
	a.jobStatus(w, r, "Video job")
}

// VideoFormats handles GET /api/v1/video/formats.
func (a *App) VideoFormats(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"supported_formats": map[string]any{
			"input":  a.Cfg.AllowedVideoTypes,
			"output": []string{"video/mp4", "video/avi", "video/mov"},
		},
		"specifications": map[string]any{
			"max_file_size":         a.Cfg.MaxFileSize,
			"max_duration":          300,
			"supported_resolutions": []string{"480p", "720p", "1080p", "4k"},
			"supported_fps":         []int{24, 30, 60},
			"supported_codecs":      []string{"h264", "h265", "vp9"},
		},
		"operations": map[string]any{
			"enhance": map[string]any{
				"description": "Improve video quality and reduce noise",
				"parameters":  []string{"quality"},
			},
			"stabilize": map[string]any{
				"description": "Reduce camera shake and improve stability",
				"parameters":  []string{"quality"},
			},
			"style_transfer": map[string]any{
				"description": "Apply artistic styles to video",
				"parameters":  []string{"style_reference", "quality"},
			},
		},
	})
}
