package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	_ "image/gif" // register GIF decoder
	_ "image/png" // register PNG decoder

	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	thumbnailMaxEdge = 256
	thumbnailQuality = 85
)

// Thumbnail derives a JPEG thumbnail from a stored image and writes it into
// the thumbnails subdirectory. Decode and encode run behind a bounded
// semaphore so a burst of uploads cannot monopolize the CPU.
func (s *MediaStore) Thumbnail(ctx context.Context, sourceFilename string) (string, error) {
	select {
	case s.thumbSem <- struct{}{}:
		defer func() { <-s.thumbSem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	data, err := s.Read(ctx, sourceFilename, SubdirImages)
	if err != nil {
		return "", err
	}

	encoded, err := renderThumbnail(data)
	if err != nil {
		return "", fmt.Errorf("storage: thumbnail %s: %w", sourceFilename, err)
	}

	ext := filepath.Ext(sourceFilename)
	thumbName := "thumb_" + strings.TrimSuffix(sourceFilename, ext) + ".jpg"
	if err := os.WriteFile(s.path(thumbName, SubdirThumbnails), encoded, 0o644); err != nil {
		return "", fmt.Errorf("storage: write thumbnail: %w", err)
	}
	return thumbName, nil
}

func renderThumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img = flattenAlpha(img)

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > thumbnailMaxEdge || height > thumbnailMaxEdge {
		var targetW, targetH int
		if width >= height {
			targetW = thumbnailMaxEdge
			targetH = height * thumbnailMaxEdge / width
		} else {
			targetH = thumbnailMaxEdge
			targetW = width * thumbnailMaxEdge / height
		}
		if targetW < 1 {
			targetW = 1
		}
		if targetH < 1 {
			targetH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// flattenAlpha composites images that carry transparency onto a white
// background, since JPEG has no alpha channel.
func flattenAlpha(img image.Image) image.Image {
	if img.ColorModel() == color.YCbCrModel || img.ColorModel() == color.GrayModel {
		return img
	}
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}
