package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/logger"
	"github.com/freshveggie/veggie-api/internal/media"
	"github.com/freshveggie/veggie-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MaxImageSize = 5 << 20

// ImageStore is where uploaded images end up.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (media.Stored, error)
	DeleteURL(ctx context.Context, url string) error
}

type MediaService struct {
	store    ImageStore
	products repository.ProductRepository
	catalog  repository.CatalogRepository
	log      *zap.Logger
}

func NewMediaService(store ImageStore, products repository.ProductRepository, catalog repository.CatalogRepository, log *zap.Logger) *MediaService {
	return &MediaService{store: store, products: products, catalog: catalog, log: log}
}

type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Upload stores an image for a catalog entity and points the entity at it.
func (s *MediaService) Upload(ctx context.Context, kind domain.ImageKind, id string, up Upload) (media.Stored, error) {
	if _, err := s.currentImage(ctx, kind, id); err != nil {
		return media.Stored{}, err
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return media.Stored{}, domain.NewValidationError("file", "file must be an image")
	}
	if len(up.Data) > MaxImageSize {
		return media.Stored{}, domain.NewValidationError("file", "file size must be less than 5MB")
	}

	key := path.Join(kind.Folder(), imageFilename(kind, id, up.Filename))
	stored, err := s.store.Put(ctx, key, up.ContentType, up.Data)
	if err != nil {
		return media.Stored{}, fmt.Errorf("store image: %w", err)
	}

	log := logger.FromContext(ctx, s.log)
	if err := s.catalog.SetImageURL(ctx, kind, id, stored.URL); err != nil {
		if derr := s.store.DeleteURL(ctx, stored.URL); derr != nil {
			log.Warn("orphaned image cleanup failed", zap.String("url", stored.URL), zap.Error(derr))
		}
		return media.Stored{}, err
	}

	log.Info("image uploaded",
		zap.String("kind", string(kind)),
		zap.String("id", id),
		zap.String("storage", stored.Storage),
		zap.Int("bytes", len(up.Data)))
	return stored, nil
}

// DeleteImage clears the entity's image. Removing the stored object is best
// effort.
func (s *MediaService) DeleteImage(ctx context.Context, kind domain.ImageKind, id string) error {
	url, err := s.currentImage(ctx, kind, id)
	if err != nil {
		return err
	}
	if url != "" {
		if err := s.RemoveImage(ctx, url); err != nil {
			logger.FromContext(ctx, s.log).Warn("image delete failed", zap.String("url", url), zap.Error(err))
		}
	}
	return s.catalog.SetImageURL(ctx, kind, id, "")
}

// RemoveImage deletes a stored image by URL. URLs this service did not
// issue are ignored.
func (s *MediaService) RemoveImage(ctx context.Context, url string) error {
	err := s.store.DeleteURL(ctx, url)
	if errors.Is(err, media.ErrNotOwned) {
		return nil
	}
	return err
}

func (s *MediaService) currentImage(ctx context.Context, kind domain.ImageKind, id string) (string, error) {
	switch kind {
	case domain.ImageKindProduct:
		p, err := s.products.GetProduct(ctx, id)
		if err != nil {
			return "", err
		}
		return p.ImageURL, nil
	case domain.ImageKindCategory:
		c, err := s.catalog.GetCategory(ctx, id)
		if err != nil {
			return "", err
		}
		return c.ImageURL, nil
	case domain.ImageKindBanner:
		b, err := s.catalog.GetBanner(ctx, id)
		if err != nil {
			return "", err
		}
		return b.ImageURL, nil
	}
	return "", domain.NewValidationError("kind", "unknown image kind")
}

func imageFilename(kind domain.ImageKind, id, original string) string {
	ext := "jpg"
	if i := strings.LastIndexByte(original, '.'); i >= 0 && i < len(original)-1 {
		ext = strings.ToLower(original[i+1:])
	}
	if strings.IndexFunc(ext, func(r rune) bool { return (r < 'a' || r > 'z') && (r < '0' || r > '9') }) >= 0 {
		ext = "jpg"
	}
	return fmt.Sprintf("%s_%s_%s.%s", kind, id, strings.ReplaceAll(uuid.NewString(), "-", "")[:8], ext)
}
