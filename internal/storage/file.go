package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// fileUploader implements Uploader on a local directory that is served
// under publicURL.
type fileUploader struct {
	dir       string
	publicURL string
	logger    zerolog.Logger
}

// NewFileUploader creates a new directory-backed uploader.
func NewFileUploader(dir, publicURL string, logger zerolog.Logger) Uploader {
	return &fileUploader{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With().Str("component", "file-uploader").Logger(),
	}
}

// Upload writes obj to dir/key. The write goes through a temporary file so a
// reader never sees a partial image.
func (u *fileUploader) Upload(ctx context.Context, obj Object) (string, error) {
	if len(obj.Data) == 0 {
		return "", ErrEmptyObject
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := filepath.ToSlash(filepath.Clean("/" + obj.Key))[1:]
	if key == "" || strings.HasPrefix(key, "..") {
		return "", fmt.Errorf("invalid object key %q", obj.Key)
	}
	path := filepath.Join(u.dir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		u.logger.Error().Err(err).Str("dir", u.dir).Msg("failed to create upload directory")
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		u.logger.Error().Err(err).Str("key", key).Msg("failed to create temporary file")
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(obj.Data); err != nil {
		tmp.Close()
		u.logger.Error().Err(err).Str("key", key).Msg("failed to write object")
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		u.logger.Error().Err(err).Str("key", key).Msg("failed to move object into place")
		return "", fmt.Errorf("failed to store object %s: %w", key, err)
	}

	u.logger.Info().
		Str("file", path).
		Int("bytes", len(obj.Data)).
		Msg("object stored on local file system")

	return u.publicURL + "/" + key, nil
}
