package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gateway/internal/domain"
	"gateway/internal/storage"
)

func TestProcessBatchRecordsPerItemOutcomes(t *testing.T) {
	p, _, upstream := newTestPipeline(t)

	files := []BatchFile{
		{Content: []byte("one"), ContentType: "image/png", Filename: "one.png"},
		{Content: []byte("two"), ContentType: "text/plain", Filename: "two.txt"},
		{Content: []byte("three"), ContentType: "image/jpeg", Filename: "three.jpg"},
	}
	result, err := p.ProcessBatch(context.Background(), files, domain.BatchParams{Operation: domain.BatchOpEnhance})
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if result.TotalFiles != 3 || result.Completed != 2 || result.Failed != 1 {
		t.Fatalf("summary = %+v", result)
	}
	if len(result.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(result.Items))
	}

	// Item order matches input order regardless of completion order.
	if result.Items[0].Filename != "one.png" || result.Items[0].Result == nil {
		t.Fatalf("item 0 = %+v", result.Items[0])
	}
	if result.Items[1].Filename != "two.txt" || result.Items[1].Error == "" {
		t.Fatalf("item 1 = %+v", result.Items[1])
	}
	if !strings.Contains(result.Items[1].Error, "unsupported") {
		t.Fatalf("item 1 error = %q", result.Items[1].Error)
	}
	if result.Items[2].Result == nil {
		t.Fatalf("item 2 = %+v", result.Items[2])
	}
	if upstream.enhanceCalls != 2 {
		t.Fatalf("upstream calls = %d, want 2 (invalid file skipped)", upstream.enhanceCalls)
	}
}

func TestProcessBatchPersistsUploads(t *testing.T) {
	p, store, _ := newTestPipeline(t)

	files := []BatchFile{
		{Content: []byte("one"), ContentType: "image/png", Filename: "one.png"},
		{Content: []byte("two"), ContentType: "image/jpeg", Filename: "two.jpg"},
	}
	result, err := p.ProcessBatch(context.Background(), files, domain.BatchParams{Operation: domain.BatchOpEnhance})
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if result.Completed != 2 {
		t.Fatalf("summary = %+v", result)
	}

	// Each item goes through the store like a single-file upload, so it is
	// on disk and subject to retention sweeps.
	entries, err := os.ReadDir(filepath.Join(store.Root(), storage.SubdirImages))
	if err != nil {
		t.Fatalf("read upload root: %v", err)
	}
	var stored []string
	for _, entry := range entries {
		if !entry.IsDir() {
			stored = append(stored, entry.Name())
		}
	}
	if len(stored) != 2 {
		t.Fatalf("persisted files = %v, want 2", stored)
	}
	for _, name := range stored {
		if !strings.HasPrefix(name, "one_") && !strings.HasPrefix(name, "two_") {
			t.Fatalf("unexpected stored file %q", name)
		}
	}
}

func TestProcessBatchAppliesParameterOverrides(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	files := []BatchFile{{Content: []byte("one"), ContentType: "image/png", Filename: "one.png"}}
	result, err := p.ProcessBatch(context.Background(), files, domain.BatchParams{
		Operation:  domain.BatchOpEnhance,
		Parameters: map[string]any{"strength": 0.5},
	})
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if result.Completed != 1 {
		t.Fatalf("summary = %+v", result)
	}
}

func TestProcessBatchRejectsInvalidParameters(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	files := []BatchFile{{Content: []byte("one"), ContentType: "image/png", Filename: "one.png"}}
	result, err := p.ProcessBatch(context.Background(), files, domain.BatchParams{
		Operation:  domain.BatchOpEnhance,
		Parameters: map[string]any{"strength": 5.0},
	})
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("summary = %+v", result)
	}
	if !strings.Contains(result.Items[0].Error, "strength") {
		t.Fatalf("item error = %q", result.Items[0].Error)
	}
}

func TestProcessBatchEnforcesSizeLimit(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	files := make([]BatchFile, MaxBatchSize+1)
	for i := range files {
		files[i] = BatchFile{Content: []byte("x"), ContentType: "image/png", Filename: "f.png"}
	}
	_, err := p.ProcessBatch(context.Background(), files, domain.BatchParams{Operation: domain.BatchOpEnhance})
	apiErr, ok := domain.AsAPIError(err)
	if !ok || apiErr.Code != domain.CodeValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestProcessBatchRequiresFiles(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	_, err := p.ProcessBatch(context.Background(), nil, domain.BatchParams{Operation: domain.BatchOpStyleTransfer})
	apiErr, ok := domain.AsAPIError(err)
	if !ok || apiErr.Code != domain.CodeValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestProcessBatchRejectsUnknownOperation(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	files := []BatchFile{{Content: []byte("x"), ContentType: "image/png", Filename: "f.png"}}
	_, err := p.ProcessBatch(context.Background(), files, domain.BatchParams{Operation: "sharpen"})
	apiErr, ok := domain.AsAPIError(err)
	if !ok || apiErr.Code != domain.CodeValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}
