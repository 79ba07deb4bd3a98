package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"gateway/internal/domain"
)

const (
	// MaxBatchSize caps the number of files accepted in one batch request.
	MaxBatchSize = 10

	batchConcurrency = 4
)

// BatchFile is one upload inside a batch request.
type BatchFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// BatchItemResult records the per-file outcome of a batch run. Exactly one of
// Result or Error is set.
type BatchItemResult struct {
	Filename string         `json:"filename"`
	Result   *domain.Result `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// BatchResult summarizes a completed batch run.
type BatchResult struct {
	TotalFiles int               `json:"total_files"`
	Completed  int               `json:"completed"`
	Failed     int               `json:"failed"`
	Items      []BatchItemResult `json:"results"`
}

// ProcessBatch applies one operation to every file concurrently. Individual
// failures are recorded per item and never abort the remaining files. Batch
// runs bypass the result cache: items are typically unique uploads and the
// per-item bookkeeping must reflect a live provider run.
func (p *Pipeline) ProcessBatch(ctx context.Context, files []BatchFile, params domain.BatchParams) (*BatchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.ValidationError("at least one file is required")
	}
	if len(files) > MaxBatchSize {
		return nil, domain.ValidationError(fmt.Sprintf("maximum %d files allowed per batch", MaxBatchSize))
	}

	items := make([]BatchItemResult, len(files))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(batchConcurrency)
	for i, file := range files {
		i, file := i, file
		group.Go(func() error {
			result, err := p.processBatchItem(ctx, file, params)
			if err != nil {
				items[i] = BatchItemResult{Filename: file.Filename, Error: err.Error()}
				return nil
			}
			items[i] = BatchItemResult{Filename: file.Filename, Result: result}
			return nil
		})
	}
	// Items never return errors, so this only waits.
	_ = group.Wait()

	out := &BatchResult{TotalFiles: len(files), Items: items}
	for _, item := range items {
		if item.Error == "" {
			out.Completed++
		} else {
			out.Failed++
		}
	}
	p.logger.Info().
		Int("total", out.TotalFiles).
		Int("completed", out.Completed).
		Int("failed", out.Failed).
		Str("operation", string(params.Operation)).
		Msg("pipeline: batch finished")
	return out, nil
}

// processBatchItem runs one file through the same store-then-delegate path the
// single-file endpoints use, so batch uploads are persisted, thumbnailed and
// subject to retention like any other upload.
func (p *Pipeline) processBatchItem(ctx context.Context, file BatchFile, params domain.BatchParams) (*domain.Result, error) {
	upload, err := p.store.SaveUpload(ctx, file.Content, file.ContentType, file.Filename)
	if err != nil {
		return nil, err
	}
	if !upload.Info.IsImage {
		return nil, domain.ValidationError("file must be an image")
	}

	switch params.Operation {
	case domain.BatchOpEnhance:
		enhance, err := domain.EnhanceFromMap(params.Parameters)
		if err != nil {
			return nil, err
		}
		result, err := p.upstream.EnhanceImage(ctx, file.Content, upload.Filename, enhance)
		if err != nil {
			return nil, normalizeError(err, "image enhancement failed")
		}
		return result, nil
	case domain.BatchOpStyleTransfer:
		style, err := domain.StyleTransferFromMap(params.Parameters)
		if err != nil {
			return nil, err
		}
		result, err := p.upstream.StyleTransfer(ctx, file.Content, upload.Filename, style)
		if err != nil {
			return nil, normalizeError(err, "style transfer failed")
		}
		return result, nil
	default:
		return nil, domain.ValidationError(fmt.Sprintf("unsupported operation: %s", params.Operation))
	}
}
