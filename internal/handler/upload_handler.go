package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"paloma-store/internal/model"
	"paloma-store/internal/storage"

	"github.com/rs/zerolog"
)

// UploadHandler stores product and category images.
type UploadHandler struct {
	uploader storage.Uploader
	now      func() time.Time
	logger   zerolog.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(uploader storage.Uploader, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		uploader: uploader,
		now:      time.Now,
		logger:   logger.With().Str("handler", "upload").Logger(),
	}
}

// uploadResponse is the public URL of a stored image.
type uploadResponse struct {
	URL string `json:"url"`
}

// Upload handles POST /api/admin/uploads/{kind} with a multipart "file"
// field. kind is product or category.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	kind := storage.Kind(r.PathValue("kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "upload kind must be product or category", h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "a file field with the image is required", h.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxImageSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "failed to read upload", h.logger)
		return
	}
	if len(data) > storage.MaxImageSize {
		writeError(w, http.StatusRequestEntityTooLarge, model.ErrCodeValidation, "image must be at most 5 MB", h.logger)
		return
	}

	contentType := header.Header.Get("Content-Type")
	ext, ok := storage.ImageExtension(contentType)
	if !ok {
		// Fall back to sniffing when the client sent a generic type.
		contentType = http.DetectContentType(data)
		ext, ok = storage.ImageExtension(contentType)
	}
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "image must be webp, jpeg, png or avif", h.logger)
		return
	}

	key := storage.ObjectName(kind, header.Filename, ext, h.now())
	url, err := h.uploader.Upload(r.Context(), storage.Object{Key: key, ContentType: contentType, Data: data})
	if err != nil {
		if errors.Is(err, storage.ErrEmptyObject) {
			writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "image is empty", h.logger)
			return
		}
		writeDomainError(w, model.NewPersistenceError("failed to store image", err), h.logger)
		return
	}

	h.logger.Info().Str("key", key).Int("bytes", len(data)).Msg("image uploaded")

	writeJSON(w, http.StatusCreated, uploadResponse{URL: url}, h.logger)
}
