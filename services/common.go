package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"trendzn-restful/apperrors"
	"trendzn-restful/config"
	"trendzn-restful/models"
	"trendzn-restful/repositories"
	"trendzn-restful/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Page is one window of a paginated list.
type Page[T any] struct {
	Items       []T
	Total       int64
	CurrentPage int
	TotalPages  int
}

func newPage[T any](items []T, total int64, p repositories.Page) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:       items,
		Total:       total,
		CurrentPage: p.Number,
		TotalPages:  int(math.Ceil(float64(total) / float64(p.Size))),
	}
}

// Paging normalises client supplied page parameters.
type Paging struct {
	DefaultSize int
	MaxSize     int
}

func NewPaging(cfg config.AppSettings) Paging {
	return Paging{DefaultSize: cfg.DefaultPageSize, MaxSize: cfg.MaxPageSize}
}

// Page clamps page to >= 1 and limit to [1, MaxSize], substituting the
// default for a missing limit.
func (p Paging) Page(page, limit int) repositories.Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = p.DefaultSize
	}
	if limit > p.MaxSize {
		limit = p.MaxSize
	}
	return repositories.Page{Number: page, Size: limit}
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(notFoundMsg)
	}
	return apperrors.Internal(op, err)
}

// storeImage saves img when present and returns the stored object.
func storeImage(ctx context.Context, store storage.ImageStore, img *storage.Image) (*storage.Object, error) {
	if img == nil {
		return &storage.Object{}, nil
	}
	obj, err := store.Save(ctx, img)
	if err != nil {
		return nil, apperrors.Internal("storing image", err)
	}
	return obj, nil
}

// discardImage removes an image whose record could not be written or was
// deleted. Failures are logged and otherwise ignored.
func discardImage(ctx context.Context, store storage.ImageStore, log *zap.Logger, key string) {
	if key == "" {
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		log.Warn("Failed to delete image", zap.String("key", key), zap.Error(err))
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(strings.ReplaceAll(t, models.TagSeparator, ""))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
