package storage

import (
	"context"

	"github.com/rs/zerolog"
)

// fallbackUploader tries S3 first, then falls back to the local file system.
type fallbackUploader struct {
	s3Uploader   Uploader
	fileUploader Uploader
	s3Enabled    bool
	logger       zerolog.Logger
}

// NewFallbackUploader creates an uploader that tries S3 first, then the local
// file system. If s3Uploader is nil, only the file uploader is used.
func NewFallbackUploader(s3Uploader, fileUploader Uploader, s3Enabled bool, logger zerolog.Logger) Uploader {
	return &fallbackUploader{
		s3Uploader:   s3Uploader,
		fileUploader: fileUploader,
		s3Enabled:    s3Enabled,
		logger:       logger.With().Str("component", "fallback-uploader").Logger(),
	}
}

// Upload stores obj in S3 when possible and locally otherwise.
func (u *fallbackUploader) Upload(ctx context.Context, obj Object) (string, error) {
	if u.s3Enabled && u.s3Uploader != nil {
		url, err := u.s3Uploader.Upload(ctx, obj)
		if err == nil {
			return url, nil
		}
		if err == ErrEmptyObject {
			return "", err
		}

		u.logger.Warn().
			Err(err).
			Str("key", obj.Key).
			Msg("failed to upload to S3, falling back to local file system")
	} else {
		u.logger.Debug().
			Bool("s3_enabled", u.s3Enabled).
			Bool("has_s3_uploader", u.s3Uploader != nil).
			Msg("S3 disabled or not configured, using local file system")
	}

	return u.fileUploader.Upload(ctx, obj)
}
