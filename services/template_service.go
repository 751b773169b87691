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

type TemplateService interface {
	List(ctx context.Context, query TemplateQuery) (*Page[models.Template], error)
	Get(ctx context.Context, id uint) (*models.Template, error)
	Create(ctx context.Context, owner *auth.Identity, input *CreateTemplateInput, img *storage.Image) (*models.Template, error)
	RecordUse(ctx context.Context, id uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

// CategoryPopular is the pseudo category that lists templates by popularity.
const CategoryPopular = "popular"

type TemplateQuery struct {
	Category string
	Page     int
	Limit    int
}

type CreateTemplateInput struct {
	Name        string
	Description string
	Category    string
	Icon        string
	Tags        []string
}

type templateService struct {
	templates repositories.TemplateRepository
	images    storage.ImageStore
	paging    Paging
	log       *zap.Logger
}

var _ TemplateService = (*templateService)(nil)

func NewTemplateService(templates repositories.TemplateRepository, images storage.ImageStore, paging Paging, log *zap.Logger) TemplateService {
	return &templateService{templates: templates, images: images, paging: paging, log: log.Named("templates")}
}

func (s *templateService) List(ctx context.Context, query TemplateQuery) (*Page[models.Template], error) {
	var filter repositories.TemplateFilter
	switch query.Category {
	case "", "all":
	case CategoryPopular:
		filter.SortByPopularity = true
	default:
		filter.Category = query.Category
	}

	page := s.paging.Page(query.Page, query.Limit)
	items, total, err := s.templates.List(ctx, filter, page)
	if err != nil {
		return nil, apperrors.Internal("listing templates", err)
	}
	return newPage(items, total, page), nil
}

func (s *templateService) Get(ctx context.Context, id uint) (*models.Template, error) {
	template, err := s.templates.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Template not found", "loading template")
	}
	return template, nil
}

func (s *templateService) Create(ctx context.Context, owner *auth.Identity, input *CreateTemplateInput, img *storage.Image) (*models.Template, error) {
	if owner == nil {
		return nil, apperrors.Unauthenticated("Access token required")
	}
	if img == nil {
		return nil, apperrors.Validation("Image is required")
	}
	name := strings.TrimSpace(input.Name)
	category := strings.TrimSpace(input.Category)
	if name == "" || category == "" {
		return nil, apperrors.Validation("Name and category are required")
	}
	if category == CategoryPopular {
		return nil, apperrors.Validation("Category \"popular\" is reserved")
	}
	icon := input.Icon
	if icon == "" {
		icon = models.DefaultTemplateIcon
	}

	obj, err := storeImage(ctx, s.images, img)
	if err != nil {
		return nil, err
	}

	template := &models.Template{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Category:    category,
		Icon:        icon,
		Tags:        cleanTags(input.Tags),
		ImageURL:    obj.URL,
		ImageKey:    obj.Key,
		CreatedByID: owner.UserID,
	}
	if err := s.templates.Create(ctx, template); err != nil {
		discardImage(ctx, s.images, s.log, obj.Key)
		return nil, apperrors.Internal("creating template", err)
	}
	template.CreatedBy = &models.Author{ID: owner.UserID, Username: owner.Username}
	return template, nil
}

func (s *templateService) RecordUse(ctx context.Context, id uint) (int64, error) {
	uses, err := s.templates.IncrementUses(ctx, id)
	if err != nil {
		return 0, notFoundOr(err, "Template not found", "recording use")
	}
	return uses, nil
}

func (s *templateService) Delete(ctx context.Context, id uint) error {
	template, err := s.templates.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "Template not found", "loading template")
	}
	if err := s.templates.Delete(ctx, id); err != nil {
		return notFoundOr(err, "Template not found", "deleting template")
	}
	discardImage(ctx, s.images, s.log, template.ImageKey)
	s.log.Info("Template deleted", zap.Uint("template_id", id))
	return nil
}
