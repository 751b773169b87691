package services

import (
	"context"
	"errors"
	"strings"

	"trendzn-restful/apperrors"
	"trendzn-restful/auth"
	"trendzn-restful/models"
	"trendzn-restful/repositories"
	"trendzn-restful/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MemeService interface {
	// List returns only the memes created by owner.
	List(ctx context.Context, owner *auth.Identity, page, limit int) (*Page[models.Meme], error)
	Create(ctx context.Context, owner *auth.Identity, input *CreateMemeInput, img *storage.Image) (*models.Meme, error)
}

// CreateMemeInput references at most one of a template or a trend.
type CreateMemeInput struct {
	Title      string
	TemplateID *uint
	TrendID    *uint
}

type memeService struct {
	memes     repositories.MemeRepository
	templates repositories.TemplateRepository
	trends    repositories.TrendRepository
	images    storage.ImageStore
	paging    Paging
	log       *zap.Logger
}

var _ MemeService = (*memeService)(nil)

func NewMemeService(memes repositories.MemeRepository, templates repositories.TemplateRepository, trends repositories.TrendRepository,
	images storage.ImageStore, paging Paging, log *zap.Logger) MemeService {
	return &memeService{
		memes:     memes,
		templates: templates,
		trends:    trends,
		images:    images,
		paging:    paging,
		log:       log.Named("memes"),
	}
}

func (s *memeService) List(ctx context.Context, owner *auth.Identity, page, limit int) (*Page[models.Meme], error) {
	if owner == nil {
		return nil, apperrors.Unauthenticated("Access token required")
	}
	p := s.paging.Page(page, limit)
	items, total, err := s.memes.List(ctx, repositories.MemeFilter{OwnerID: owner.UserID}, p)
	if err != nil {
		return nil, apperrors.Internal("listing memes", err)
	}
	return newPage(items, total, p), nil
}

func (s *memeService) Create(ctx context.Context, owner *auth.Identity, input *CreateMemeInput, img *storage.Image) (*models.Meme, error) {
	if owner == nil {
		return nil, apperrors.Unauthenticated("Access token required")
	}
	if img == nil {
		return nil, apperrors.Validation("Meme image is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.Validation("Title is required")
	}
	if input.TemplateID != nil && input.TrendID != nil {
		return nil, apperrors.Validation("A meme can reference a template or a trend, not both")
	}

	meme := &models.Meme{
		Title:       title,
		TemplateID:  input.TemplateID,
		TrendID:     input.TrendID,
		CreatedByID: owner.UserID,
		IsPublic:    true,
	}
	var (
		templateRef *models.TemplateRef
		trendRef    *models.TrendRef
	)
	if input.TemplateID != nil {
		tpl, err := s.templates.FindByID(ctx, *input.TemplateID)
		if err != nil {
			return nil, referenceError(err, "Template does not exist", "loading template")
		}
		templateRef = &models.TemplateRef{ID: tpl.ID, Name: tpl.Name, Icon: tpl.Icon}
	}
	if input.TrendID != nil {
		trend, err := s.trends.FindByID(ctx, *input.TrendID)
		if err != nil {
			return nil, referenceError(err, "Trend does not exist", "loading trend")
		}
		trendRef = &models.TrendRef{ID: trend.ID, Title: trend.Title}
	}

	obj, err := storeImage(ctx, s.images, img)
	if err != nil {
		return nil, err
	}
	meme.ImageURL = obj.URL
	meme.ImageKey = obj.Key

	if err := s.memes.Create(ctx, meme); err != nil {
		discardImage(ctx, s.images, s.log, obj.Key)
		return nil, apperrors.Internal("creating meme", err)
	}
	meme.Template = templateRef
	meme.Trend = trendRef
	return meme, nil
}

func referenceError(err error, msg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.Validation(msg)
	}
	return apperrors.Internal(op, err)
}
