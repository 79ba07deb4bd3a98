// Package pipeline orchestrates media operations: check the result cache,
// delegate to the upstream provider, then cache and return the normalized
// result. Uploads arrive already validated and persisted by the storage layer.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"gateway/internal/cache"
	"gateway/internal/domain"
	"gateway/internal/storage"
)

// Upstream is the provider surface the pipeline delegates inference to.
type Upstream interface {
	EnhanceImage(ctx context.Context, imageData []byte, filename string, params domain.EnhanceParams) (*domain.Result, error)
	StyleTransfer(ctx context.Context, imageData []byte, filename string, params domain.StyleTransferParams) (*domain.Result, error)
	GenerateImage(ctx context.Context, params domain.GenerateParams) (*domain.Result, error)
	ProcessVideo(ctx context.Context, videoData []byte, filename string, params domain.VideoParams) (*domain.Result, error)
	GetJobStatus(ctx context.Context, jobID string) (*domain.UpstreamJob, error)
}

// Pipeline coordinates the storage, cache and upstream layers for every media
// operation.
type Pipeline struct {
	store    *storage.MediaStore
	cache    *cache.ResultCache
	upstream Upstream
	logger   zerolog.Logger
}

// ImageResult is an image operation outcome plus cache provenance.
type ImageResult struct {
	Result *domain.Result
	Cached bool
}

// VideoResult is a video operation outcome plus cache provenance.
type VideoResult struct {
	Result *domain.Result
	Cached bool
}

// New wires a Pipeline from its collaborators.
func New(store *storage.MediaStore, resultCache *cache.ResultCache, upstream Upstream, logger zerolog.Logger) *Pipeline {
	return &Pipeline{store: store, cache: resultCache, upstream: upstream, logger: logger}
}

// EnhanceImage serves the result from cache when an identical file has been
// enhanced with identical parameters before. info carries the validation
// outcome for content, including the content hash the cache key is built from.
func (p *Pipeline) EnhanceImage(ctx context.Context, content []byte, info storage.FileInfo, filename string, params domain.EnhanceParams) (*ImageResult, error) {
	if !info.IsImage {
		return nil, domain.ValidationError("file must be an image")
	}

	key := p.cache.Key("enhance", params.Map(), info.Hash)
	if result, ok := p.cache.Get(ctx, key); ok {
		p.logger.Info().Str("key", key).Msg("pipeline: enhance served from cache")
		return &ImageResult{Result: result, Cached: true}, nil
	}

	result, err := p.upstream.EnhanceImage(ctx, content, filename, params)
	if err != nil {
		return nil, normalizeError(err, "image enhancement failed")
	}
	p.cache.Set(ctx, key, result)
	return &ImageResult{Result: result}, nil
}

// StyleTransfer applies the style transfer workflow, caching by content hash
// and parameters.
func (p *Pipeline) StyleTransfer(ctx context.Context, content []byte, info storage.FileInfo, filename string, params domain.StyleTransferParams) (*ImageResult, error) {
	if !info.IsImage {
		return nil, domain.ValidationError("file must be an image")
	}

	key := p.cache.Key("style_transfer", params.Map(), info.Hash)
	if result, ok := p.cache.Get(ctx, key); ok {
		p.logger.Info().Str("key", key).Msg("pipeline: style transfer served from cache")
		return &ImageResult{Result: result, Cached: true}, nil
	}

	result, err := p.upstream.StyleTransfer(ctx, content, filename, params)
	if err != nil {
		return nil, normalizeError(err, "style transfer failed")
	}
	p.cache.Set(ctx, key, result)
	return &ImageResult{Result: result}, nil
}

// GenerateImage runs text-to-image generation. Generation consumes no file, so
// the cache key is built from parameters alone.
func (p *Pipeline) GenerateImage(ctx context.Context, params domain.GenerateParams) (*ImageResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key := p.cache.Key("generate", params.Map(), "")
	if result, ok := p.cache.Get(ctx, key); ok {
		p.logger.Info().Str("key", key).Msg("pipeline: generation served from cache")
		return &ImageResult{Result: result, Cached: true}, nil
	}

	result, err := p.upstream.GenerateImage(ctx, params)
	if err != nil {
		return nil, normalizeError(err, "image generation failed")
	}
	p.cache.Set(ctx, key, result)
	return &ImageResult{Result: result}, nil
}

// ProcessVideo delegates the requested video operation. The operation name is
// folded into the cache key so enhance and stabilize runs over the same file
// stay distinct.
func (p *Pipeline) ProcessVideo(ctx context.Context, content []byte, info storage.FileInfo, filename string, params domain.VideoParams) (*VideoResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !info.IsVideo {
		return nil, domain.ValidationError("file must be a video")
	}

	key := p.cache.Key("video_"+string(params.Operation), params.Map(), info.Hash)
	if result, ok := p.cache.Get(ctx, key); ok {
		p.logger.Info().Str("key", key).Msg("pipeline: video operation served from cache")
		return &VideoResult{Result: result, Cached: true}, nil
	}

	result, err := p.upstream.ProcessVideo(ctx, content, filename, params)
	if err != nil {
		return nil, normalizeError(err, "video processing failed")
	}
	p.cache.Set(ctx, key, result)
	return &VideoResult{Result: result}, nil
}

// JobStatus reports the current state of a delegated job.
func (p *Pipeline) JobStatus(ctx context.Context, jobID string) (*domain.UpstreamJob, error) {
	job, err := p.upstream.GetJobStatus(ctx, jobID)
	if err != nil {
		return nil, normalizeError(err, "failed to get job status")
	}
	return job, nil
}

// normalizeError passes APIErrors through untouched and collapses everything
// else into a generic processing error so internals never leak to clients.
func normalizeError(err error, message string) error {
	if _, ok := domain.AsAPIError(err); ok {
		return err
	}
	return domain.ProcessingError(message)
}
