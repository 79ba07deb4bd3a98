package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gateway/internal/domain"
	"gateway/internal/pipeline"
)

func newBatchID() string {
	return uuid.NewString()
}

type imageResponse struct {
	baseResponse
	ImageURL     string         `json:"image_url"`
	ThumbnailURL string         `json:"thumbnail_url,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type jobResponse struct {
	baseResponse
	JobID     string           `json:"job_id"`
	Status    domain.JobStatus `json:"status"`
	Progress  float64          `json:"progress"`
	ResultURL string           `json:"result_url,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

type batchResponse struct {
	baseResponse
	BatchID    string                     `json:"batch_id"`
	TotalItems int                        `json:"total_items"`
	Completed  int                        `json:"completed_items"`
	Failed     int                        `json:"failed_items"`
	Results    []pipeline.BatchItemResult `json:"results"`
}

// EnhanceImage handles POST /api/v1/image/enhance. The request is multipart
// form data: the image under "file" plus optional tuning fields.
func (a *App) EnhanceImage(w http.ResponseWriter, r *http.Request) {
	content, header, err := a.readUpload(r, "file")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	params := domain.DefaultEnhanceParams()
	if err := overlayFormParams(r, map[string]fieldSetter{
		"strength":         floatSetter(&params.Strength),
		"preserve_details": boolSetter(&params.PreserveDetails),
		"enhance_colors":   boolSetter(&params.EnhanceColors),
		"reduce_noise":     boolSetter(&params.ReduceNoise),
	}); err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := params.Validate(); err != nil {
		a.respondError(w, r, err)
		return
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

	result, err := a.Pipeline.EnhanceImage(r.Context(), stored, upload.Info, upload.Filename, params)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	message := "Image enhanced successfully"
	if result.Cached {
		message += " (cached)"
	}
	a.json(w, http.StatusOK, imageResponse{
		baseResponse: a.base(r, message),
		ImageURL:     result.Result.ResultURL,
		ThumbnailURL: upload.ThumbnailURL,
		Metadata:     result.Result.Metadata,
	})
}

// StyleTransfer handles POST /api/v1/image/style-transfer.
func (a *App) StyleTransfer(w http.ResponseWriter, r *http.Request) {
	content, header, err := a.readUpload(r, "file")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	params := domain.DefaultStyleTransferParams()
	if err := overlayFormParams(r, map[string]fieldSetter{
		"style_strength":     floatSetter(&params.StyleStrength),
		"preserve_structure": boolSetter(&params.PreserveStructure),
		"style_reference":    stringSetter(&params.StyleReference),
	}); err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := params.Validate(); err != nil {
		a.respondError(w, r, err)
		return
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

	result, err := a.Pipeline.StyleTransfer(r.Context(), stored, upload.Info, upload.Filename, params)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	message := "Style transfer applied successfully"
	if result.Cached {
		message += " (cached)"
	}
	a.json(w, http.StatusOK, imageResponse{
		baseResponse: a.base(r, message),
		ImageURL:     result.Result.ResultURL,
		ThumbnailURL: upload.ThumbnailURL,
		Metadata:     result.Result.Metadata,
	})
}

// GenerateImage handles POST /api/v1/image/generate with a JSON body.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	params := domain.DefaultGenerateParams()
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		a.respondError(w, r, domain.ValidationError("invalid JSON body: "+err.Error()))
		return
	}

	result, err := a.Pipeline.GenerateImage(r.Context(), params)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	message := "Image generated successfully"
	if result.Cached {
		message += " (cached)"
	}
	a.json(w, http.StatusOK, imageResponse{
		baseResponse: a.base(r, message),
		ImageURL:     result.Result.ResultURL,
		Metadata:     result.Result.Metadata,
	})
}

// BatchProcess handles POST /api/v1/image/batch: multiple "files" parts plus
// "operation" and an optional JSON "parameters" field.
func (a *App) BatchProcess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(a.Cfg.MaxFileSize + 1<<20); err != nil {
		a.respondError(w, r, domain.ValidationError("invalid multipart form: "+err.Error()))
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		a.respondError(w, r, domain.ValidationError("at least one file is required"))
		return
	}

	params := domain.BatchParams{Operation: domain.BatchOperation(r.FormValue("operation"))}
	if raw := r.FormValue("parameters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Parameters); err != nil {
			a.respondError(w, r, domain.ValidationError("parameters must be a JSON object"))
			return
		}
	}

	var files []pipeline.BatchFile
	for _, header := range r.MultipartForm.File["files"] {
		content, err := readFileHeader(header, a.Cfg.MaxFileSize)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		files = append(files, pipeline.BatchFile{
			Content:     content,
			ContentType: contentTypeOf(header),
			Filename:    header.Filename,
		})
	}

	result, err := a.Pipeline.ProcessBatch(r.Context(), files, params)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	a.json(w, http.StatusOK, batchResponse{
		baseResponse: a.base(r, fmt.Sprintf("Batch processing completed: %d successful, %d failed", result.Completed, result.Failed)),
		BatchID:      newBatchID(),
		TotalItems:   result.TotalFiles,
		Completed:    result.Completed,
		Failed:       result.Failed,
		Results:      result.Items,
	})
}

// ImageJobStatus handles GET /api/v1/image/job/{job_id}.
func (a *App) ImageJobStatus(w http.ResponseWriter, r *http.Request) {
	a.jobStatus(w, r, "Job")
}

func (a *App) jobStatus(w http.ResponseWriter, r *http.Request, kind string) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Pipeline.JobStatus(r.Context(), jobID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, jobResponse{
		baseResponse: a.base(r, fmt.Sprintf("%s %s is %s", kind, jobID, job.Status)),
		JobID:        job.JobID,
		Status:       job.Status,
		Progress:     job.Progress,
		ResultURL:    job.ResultURL,
		Metadata:     job.Metadata,
	})
}

// readUpload pulls one named file out of a multipart request, bounded by the
// configured maximum size.
func (a *App) readUpload(r *http.Request, field string) ([]byte, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(a.Cfg.MaxFileSize + 1<<20); err != nil {
		return nil, nil, domain.ValidationError("invalid multipart form: " + err.Error())
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, domain.ValidationError(fmt.Sprintf("%s is required", field))
	}
	defer file.Close()

	content, err := readAllLimited(file, a.Cfg.MaxFileSize)
	if err != nil {
		return nil, nil, err
	}
	return content, header, nil
}

func readFileHeader(header *multipart.FileHeader, maxSize int64) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, domain.ValidationError("could not read uploaded file: " + header.Filename)
	}
	defer file.Close()
	return readAllLimited(file, maxSize)
}

func readAllLimited(r io.Reader, maxSize int64) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, domain.InternalError("failed to read upload")
	}
	if int64(len(content)) > maxSize {
		return nil, domain.FileTooLargeError(fmt.Sprintf("file size exceeds maximum limit of %d bytes", maxSize))
	}
	return content, nil
}

func contentTypeOf(header *multipart.FileHeader) string {
	return header.Header.Get("Content-Type")
}

// fieldSetter parses one optional form field into a typed destination.
type fieldSetter func(value string) error

func floatSetter(dst *float64) fieldSetter {
	return func(value string) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("not a number")
		}
		*dst = f
		return nil
	}
}

func boolSetter(dst *bool) fieldSetter {
	return func(value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("not a boolean")
		}
		*dst = b
		return nil
	}
}

func stringSetter(dst *string) fieldSetter {
	return func(value string) error {
		*dst = value
		return nil
	}
}

// overlayFormParams applies present form fields over defaults already in the
// destinations. Absent fields leave the defaults untouched.
func overlayFormParams(r *http.Request, setters map[string]fieldSetter) error {
	for field, set := range setters {
		value := r.FormValue(field)
		if value == "" {
			continue
		}
		if err := set(value); err != nil {
			return domain.ValidationError(fmt.Sprintf("invalid %s: %v", field, err))
		}
	}
	return nil
}
