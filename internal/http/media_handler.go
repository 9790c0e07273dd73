package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/media"
	"github.com/freshveggie/veggie-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const uploadField = "file"

// StorageAdmin exposes the storage backend state to the back office.
type StorageAdmin interface {
	Admin() (media.BucketAdmin, error)
	State() string
}

type MediaHandler struct {
	media   *service.MediaService
	storage StorageAdmin
	timeout time.Duration
	log     *zap.Logger
}

func NewMediaHandler(mediaSvc *service.MediaService, storage StorageAdmin, timeout time.Duration, log *zap.Logger) *MediaHandler {
	return &MediaHandler{media: mediaSvc, storage: storage, timeout: timeout, log: log}
}

type UploadResponseDTO struct {
	Message  string `json:"message"`
	ImageURL string `json:"image_url"`
	FileSize int    `json:"file_size"`
	Storage  string `json:"storage"`
}

type StorageInfoDTO struct {
	StorageProvider string         `json:"storage_provider"`
	BreakerState    string         `json:"breaker_state"`
	ImageBucket     string         `json:"image_bucket,omitempty"`
	Buckets         []media.Bucket `json:"buckets"`
	Features        []string       `json:"features"`
}

type BucketCreatedDTO struct {
	Message string `json:"message"`
	Bucket  string `json:"bucket"`
	Public  bool   `json:"public"`
}

// Upload handles POST /admin/upload/{kind}-image/{id} for one image kind.
func (h *MediaHandler) Upload(kind domain.ImageKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		if err := r.ParseMultipartForm(service.MaxImageSize); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "expected multipart form with a file field")
			return
		}
		file, header, err := r.FormFile(uploadField)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "file is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			handleError(w, r, h.log, err)
			return
		}

		stored, err := h.media.Upload(ctx, kind, chi.URLParam(r, "id"), service.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
		if err != nil {
			handleError(w, r, h.log, err)
			return
		}
		respondJSON(w, http.StatusOK, UploadResponseDTO{
			Message:  capitalize(string(kind)) + " image uploaded successfully",
			ImageURL: stored.URL,
			FileSize: len(data),
			Storage:  stored.Storage,
		})
	}
}

// DELETE /admin/images/{kind}/{id}
func (h *MediaHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	kind, ok := domain.ParseImageKind(chi.URLParam(r, "kind"))
	if !ok {
		respondError(w, http.StatusBadRequest, "validation_error", "kind must be product, category or banner")
		return
	}
	if err := h.media.DeleteImage(ctx, kind, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondMessage(w, capitalize(string(kind))+" image deleted successfully")
}

// GET /admin/storage/info
func (h *MediaHandler) StorageInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	info := StorageInfoDTO{
		StorageProvider: media.StorageLocal,
		BreakerState:    h.storage.State(),
		Buckets:         []media.Bucket{},
		Features:        []string{"image_upload", "image_delete", "local_fallback"},
	}

	admin, err := h.storage.Admin()
	if err != nil && !errors.Is(err, media.ErrNoObjectStore) {
		handleError(w, r, h.log, err)
		return
	}
	if admin != nil {
		info.StorageProvider = media.StorageObject
		info.ImageBucket = admin.BucketName()
		buckets, err := admin.Buckets(ctx)
		if err != nil {
			h.log.Warn("list buckets failed", zap.Error(err))
		} else {
			info.Buckets = buckets
		}
		info.Features = append(info.Features, "public_urls", "bucket_management")
	}
	respondJSON(w, http.StatusOK, info)
}

// POST /admin/storage/bucket
func (h *MediaHandler) CreateBucket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	admin, err := h.storage.Admin()
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	created, err := admin.EnsureBucket(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	message := "Bucket already exists"
	if created {
		message = "Bucket created successfully"
	}
	respondJSON(w, http.StatusOK, BucketCreatedDTO{Message: message, Bucket: admin.BucketName(), Public: true})
}
