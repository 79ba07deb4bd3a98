package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestThumbnailBoundsLongEdge(t *testing.T) {
	store := newTestStoreWithLimit(t, 1<<20)
	ctx := context.Background()

	src := image.NewRGBA(image.Rect(0, 0, 800, 400))
	for x := 0; x < 800; x++ {
		for y := 0; y < 400; y++ {
			src.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	name, err := store.Persist(ctx, encodePNG(t, src), "wide.png", SubdirImages)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	thumbName, err := store.Thumbnail(ctx, name)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if !strings.HasPrefix(thumbName, "thumb_") || !strings.HasSuffix(thumbName, ".jpg") {
		t.Fatalf("unexpected thumbnail name %q", thumbName)
	}

	data, err := store.Read(ctx, thumbName, SubdirThumbnails)
	if err != nil {
		t.Fatalf("Read thumbnail: %v", err)
	}
	thumb, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	bounds := thumb.Bounds()
	if bounds.Dx() != 256 {
		t.Fatalf("width = %d, want 256", bounds.Dx())
	}
	if bounds.Dy() != 128 {
		t.Fatalf("height = %d, want 128 (aspect preserved)", bounds.Dy())
	}
}

func TestThumbnailFlattensAlphaOntoWhite(t *testing.T) {
	store := newTestStoreWithLimit(t, 1<<20)
	ctx := context.Background()

	// Fully transparent image: flattened output should be white.
	src := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	name, err := store.Persist(ctx, encodePNG(t, src), "clear.png", SubdirImages)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	thumbName, err := store.Thumbnail(ctx, name)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	data, err := store.Read(ctx, thumbName, SubdirThumbnails)
	if err != nil {
		t.Fatalf("Read thumbnail: %v", err)
	}
	thumb, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	r, g, b, _ := thumb.At(32, 32).RGBA()
	// JPEG is lossy; accept near-white.
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Fatalf("center pixel = (%d,%d,%d), want near-white", r>>8, g>>8, b>>8)
	}
}

func TestThumbnailSkipsResizeForSmallImages(t *testing.T) {
	store := newTestStoreWithLimit(t, 1<<20)
	ctx := context.Background()

	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	name, err := store.Persist(ctx, encodePNG(t, src), "small.png", SubdirImages)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	thumbName, err := store.Thumbnail(ctx, name)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	data, err := store.Read(ctx, thumbName, SubdirThumbnails)
	if err != nil {
		t.Fatalf("Read thumbnail: %v", err)
	}
	thumb, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if thumb.Bounds().Dx() != 100 || thumb.Bounds().Dy() != 50 {
		t.Fatalf("dimensions = %dx%d, want 100x50", thumb.Bounds().Dx(), thumb.Bounds().Dy())
	}
}

func TestThumbnailRejectsCorruptImage(t *testing.T) {
	store := newTestStoreWithLimit(t, 1<<20)
	ctx := context.Background()

	name, err := store.Persist(ctx, []byte("not an image"), "bad.png", SubdirImages)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if _, err := store.Thumbnail(ctx, name); err == nil {
		t.Fatal("expected decode error for corrupt image")
	}
}
