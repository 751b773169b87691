package services

import (
	"context"
	"strings"

	"trendzn-restful/apperrors"
	"trendzn-restful/auth"
	"trendzn-restful/models"
	"trendzn-restful/repositories"
	"trendzn-restful/storage"

	"go.uber.org/zap"
)

type TrendService interface {
	List(ctx context.Context, query TrendQuery) (*Page[models.Trend], error)
	Get(ctx context.Context, id uint) (*models.Trend, error)
	Create(ctx context.Context, owner *auth.Identity, input *CreateTrendInput, img *storage.Image) (*models.Trend, error)
	// RecordView adds one view and returns the new total.
	RecordView(ctx context.Context, id uint) (int64, error)
	// Delete removes the trend and then its image.
	Delete(ctx context.Context, id uint) error
}

type TrendQuery struct {
	Category string // "all" or empty means every category
	Status   string
	Page     int
	Limit    int
}

type CreateTrendInput struct {
	Title       string
	Description string
	Category    string
	Status      string
	Tags        []string
}

type trendService struct {
	trends repositories.TrendRepository
	images storage.ImageStore
	paging Paging
	log    *zap.Logger
}

var _ TrendService = (*trendService)(nil)

func NewTrendService(trends repositories.TrendRepository, images storage.ImageStore, paging Paging, log *zap.Logger) TrendService {
	return &trendService{trends: trends, images: images, paging: paging, log: log.Named("trends")}
}

func (s *trendService) List(ctx context.Context, query TrendQuery) (*Page[models.Trend], error) {
	filter := repositories.TrendFilter{Status: query.Status}
	if query.Category != "all" {
		filter.Category = query.Category
	}
	if filter.Status != "" && !models.ValidTrendStatus(filter.Status) {
		return nil, apperrors.Validation("Invalid status")
	}

	page := s.paging.Page(query.Page, query.Limit)
	items, total, err := s.trends.List(ctx, filter, page)
	if err != nil {
		return nil, apperrors.Internal("listing trends", err)
	}
	return newPage(items, total, page), nil
}

func (s *trendService) Get(ctx context.Context, id uint) (*models.Trend, error) {
	trend, err := s.trends.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Trend not found", "loading trend")
	}
	return trend, nil
}

func (s *trendService) Create(ctx context.Context, owner *auth.Identity, input *CreateTrendInput, img *storage.Image) (*models.Trend, error) {
	if owner == nil {
		return nil, apperrors.Unauthenticated("Access token required")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	category := strings.TrimSpace(input.Category)
	if title == "" || description == "" || category == "" {
		return nil, apperrors.Validation("Title, description and category are required")
	}
	status := input.Status
	if status == "" {
		status = models.StatusTrending
	}
	if !models.ValidTrendStatus(status) {
		return nil, apperrors.Validation("Invalid status")
	}

	obj, err := storeImage(ctx, s.images, img)
	if err != nil {
		return nil, err
	}

	trend := &models.Trend{
		Title:       title,
		Description: description,
		Category:    category,
		Status:      status,
		Tags:        cleanTags(input.Tags),
		ImageURL:    obj.URL,
		ImageKey:    obj.Key,
		CreatedByID: owner.UserID,
	}
	if err := s.trends.Create(ctx, trend); err != nil {
		discardImage(ctx, s.images, s.log, obj.Key)
		return nil, apperrors.Internal("creating trend", err)
	}
	trend.CreatedBy = &models.Author{ID: owner.UserID, Username: owner.Username}
	return trend, nil
}

func (s *trendService) RecordView(ctx context.Context, id uint) (int64, error) {
	views, err := s.trends.IncrementViews(ctx, id)
	if err != nil {
		return 0, notFoundOr(err, "Trend not found", "recording view")
	}
	return views, nil
}

func (s *trendService) Delete(ctx context.Context, id uint) error {
	trend, err := s.trends.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "Trend not found", "loading trend")
	}
	if err := s.trends.Delete(ctx, id); err != nil {
		return notFoundOr(err, "Trend not found", "deleting trend")
	}
	discardImage(ctx, s.images, s.log, trend.ImageKey)
	s.log.Info("Trend deleted", zap.Uint("trend_id", id))
	return nil
}
