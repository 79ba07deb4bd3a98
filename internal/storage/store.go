// Package storage persists uploaded and derived media files on the local
// filesystem, partitioned into fixed subdirectories per media kind.
package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gateway/internal/domain"
)

// Fixed subdirectories under the upload root.
const (
	SubdirImages     = "images"
	SubdirVideos     = "videos"
	SubdirProcessed  = "processed"
	SubdirThumbnails = "thumbnails"
)

var subdirs = []string{SubdirImages, SubdirVideos, SubdirProcessed, SubdirThumbnails}

// Options configures a MediaStore.
type Options struct {
	Root              string
	MaxFileSize       int64
	AllowedImageTypes []string
	AllowedVideoTypes []string
	Logger            zerolog.Logger

	// ThumbnailWorkers bounds concurrent thumbnail encodes so decode work
	// cannot starve request handling. Defaults to 4.
	ThumbnailWorkers int
}

// MediaStore validates, persists, retrieves and expires media files. Filenames
// are made unique at generation time, so concurrent writes never collide and
// no locking is needed on the upload directories.
type MediaStore struct {
	root          string
	maxFileSize   int64
	allowedImages map[string]struct{}
	allowedVideos map[string]struct{}
	logger        zerolog.Logger
	thumbSem      chan struct{}
}

// FileInfo is the outcome of validating an upload.
type FileInfo struct {
	IsImage     bool
	IsVideo     bool
	Hash        string
	Size        int64
	ContentType string
	Filename    string
}

// StoredUpload describes a validated upload that has been written to disk.
type StoredUpload struct {
	Filename          string
	OriginalFilename  string
	Subdir            string
	Info              FileInfo
	ThumbnailFilename string
	FileURL           string
	ThumbnailURL      string
}

// StorageStats summarizes the state of the upload root.
type StorageStats struct {
	TotalFiles  int                `json:"total_files"`
	TotalSize   int64              `json:"total_size"`
	ByExtension map[string]ExtStat `json:"by_type"`
}

// ExtStat aggregates per-extension counts and sizes.
type ExtStat struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// NewMediaStore initializes the store and creates the upload root plus its
// fixed subdirectories.
func NewMediaStore(opts Options) (*MediaStore, error) {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		return nil, errors.New("storage: upload root is required")
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	for _, sub := range subdirs {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure %s dir: %w", sub, err)
		}
	}
	workers := opts.ThumbnailWorkers
	if workers <= 0 {
		workers = 4
	}
	return &MediaStore{
		root:          root,
		maxFileSize:   opts.MaxFileSize,
		allowedImages: toSet(opts.AllowedImageTypes),
		allowedVideos: toSet(opts.AllowedVideoTypes),
		logger:        opts.Logger,
		thumbSem:      make(chan struct{}, workers),
	}, nil
}

// Root returns the absolute upload root directory.
func (s *MediaStore) Root() string {
	return s.root
}

// Validate checks size and declared content type, and computes the content
// hash over the raw bytes. The hash deduplicates cache entries; every upload
// still gets its own uniquely named file on disk.
func (s *MediaStore) Validate(content []byte, contentType, filename string) (FileInfo, error) {
	if int64(len(content)) > s.maxFileSize {
		return FileInfo{}, domain.FileTooLargeError(
			fmt.Sprintf("file size exceeds maximum limit of %d bytes", s.maxFileSize))
	}

	_, isImage := s.allowedImages[contentType]
	_, isVideo := s.allowedVideos[contentType]
	if !isImage && !isVideo {
		return FileInfo{}, domain.UnsupportedFormatError(
			"unsupported file type: "+contentType,
			map[string]any{"allowed_types": append(keys(s.allowedImages), keys(s.allowedVideos)...)})
	}

	sum := md5.Sum(content)
	return FileInfo{
		IsImage:     isImage,
		IsVideo:     isVideo,
		Hash:        hex.EncodeToString(sum[:]),
		Size:        int64(len(content)),
		ContentType: contentType,
		Filename:    filename,
	}, nil
}

// Persist writes content under subdir with a collision-free filename derived
// from the original name and returns that filename.
func (s *MediaStore) Persist(ctx context.Context, content []byte, originalName, subdir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := s.uniqueFilename(originalName)
	path := s.path(name, subdir)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	s.logger.Debug().Str("path", path).Int("size", len(content)).Msg("storage: saved file")
	return name, nil
}

// Read loads a stored file. Returns domain.ErrFileNotFound when absent.
func (s *MediaStore) Read(ctx context.Context, filename, subdir string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(filename, subdir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("storage: %s/%s: %w", subdir, filename, domain.ErrFileNotFound)
		}
		return nil, fmt.Errorf("storage: read file: %w", err)
	}
	return data, nil
}

// Delete removes a stored file. It is idempotent: deleting an absent file
// returns false, not an error.
func (s *MediaStore) Delete(ctx context.Context, filename, subdir string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path := s.path(filename, subdir)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: delete file: %w", err)
	}
	s.logger.Debug().Str("path", path).Msg("storage: deleted file")
	return true, nil
}

// SaveUpload validates content, persists it under the subdirectory for its
// media kind and, for images, derives a thumbnail on a best-effort basis.
func (s *MediaStore) SaveUpload(ctx context.Context, content []byte, contentType, filename string) (*StoredUpload, error) {
	info, err := s.Validate(content, contentType, filename)
	if err != nil {
		return nil, err
	}

	subdir := SubdirVideos
	if info.IsImage {
		subdir = SubdirImages
	}
	name, err := s.Persist(ctx, content, filename, subdir)
	if err != nil {
		return nil, err
	}

	upload := &StoredUpload{
		Filename:         name,
		OriginalFilename: filename,
		Subdir:           subdir,
		Info:             info,
		FileURL:          FileURL(name, subdir),
	}

	if info.IsImage {
		thumbName, err := s.Thumbnail(ctx, name)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("storage: failed to create thumbnail")
		} else {
			upload.ThumbnailFilename = thumbName
			upload.ThumbnailURL = FileURL(thumbName, SubdirThumbnails)
		}
	}
	return upload, nil
}

// SweepOlderThan walks every subdirectory and deletes files whose modification
// time is older than maxAge. Individual deletion failures are logged and do
// not abort the sweep.
func (s *MediaStore) SweepOlderThan(maxAge time.Duration) (int, error) {
	deleted := 0
	cutoff := time.Now().Add(-maxAge)

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("storage: sweep walk error")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("storage: sweep stat failed")
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("storage: sweep delete failed")
			return nil
		}
		deleted++
		s.logger.Info().Str("path", path).Msg("storage: deleted old file")
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("storage: sweep: %w", err)
	}
	return deleted, nil
}

// Stats aggregates file counts and sizes across the upload root.
func (s *MediaStore) Stats() (StorageStats, error) {
	stats := StorageStats{ByExtension: make(map[string]ExtStat)}
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		stats.TotalFiles++
		stats.TotalSize += info.Size()
		agg := stats.ByExtension[ext]
		agg.Count++
		agg.Size += info.Size()
		stats.ByExtension[ext] = agg
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("storage: stats: %w", err)
	}
	return stats, nil
}

// FileURL returns the public path a stored file is served from.
func FileURL(filename, subdir string) string {
	if subdir == "" {
		return "/files/" + filename
	}
	return "/files/" + subdir + "/" + filename
}

// uniqueFilename builds "<sanitized>_<timestamp>_<8-char-suffix><ext>" so that
// concurrent uploads of identically named files never collide.
func (s *MediaStore) uniqueFilename(originalName string) string {
	sanitized := sanitizeFilename(originalName)
	ext := filepath.Ext(sanitized)
	base := strings.TrimSuffix(sanitized, ext)
	if base == "" {
		base = "upload"
	}
	suffix := uuid.NewString()[:8]
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s%s", base, timestamp, suffix, ext)
}

// sanitizeFilename strips path separators, parent-directory references and
// home-directory markers, and truncates to a bounded length while keeping the
// extension.
func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", "~", "_")
	cleaned := replacer.Replace(filename)
	if len(cleaned) > 255 {
		ext := filepath.Ext(cleaned)
		base := strings.TrimSuffix(cleaned, ext)
		if len(base) > 250 {
			base = base[:250]
		}
		cleaned = base + ext
	}
	return cleaned
}

func (s *MediaStore) path(filename, subdir string) string {
	if subdir == "" {
		return filepath.Join(s.root, filename)
	}
	return filepath.Join(s.root, subdir, filename)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
