package repositories

import (
	"context"
	"time"

	"trendzn-restful/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TemplateFilter struct {
	Category      string
	PopularOnly   bool
	CreatedBefore time.Time
	// SortByPopularity orders by uses then rating instead of newest first.
	SortByPopularity bool
}

type TemplateRepository interface {
	Create(ctx context.Context, template *models.Template) error
	FindByID(ctx context.Context, id uint) (*models.Template, error)
	List(ctx context.Context, filter TemplateFilter, page Page) ([]models.Template, int64, error)
	Count(ctx context.Context, filter TemplateFilter) (int64, error)
	IncrementUses(ctx context.Context, id uint) (int64, error)
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, q string, limit int) ([]models.Template, error)
}

type templateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, template *models.Template) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(template).Error
}

func (r *templateRepository) FindByID(ctx context.Context, id uint) (*models.Template, error) {
	var template models.Template
	if err := r.db.WithContext(ctx).Preload("CreatedBy").First(&template, id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *templateRepository) filtered(ctx context.Context, filter TemplateFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Template{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.PopularOnly {
		query = query.Where("is_popular = ?", true)
	}
	return createdBefore(query, filter.CreatedBefore)
}

func (r *templateRepository) List(ctx context.Context, filter TemplateFilter, page Page) ([]models.Template, int64, error) {
	orders := newestFirst
	if filter.SortByPopularity {
		orders = []string{"uses DESC", "rating DESC", "id DESC"}
	}

	var templates []models.Template
	total, err := findPage(r.filtered(ctx, filter), page, &templates, orders, "CreatedBy")
	if err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

func (r *templateRepository) Count(ctx context.Context, filter TemplateFilter) (int64, error) {
	var total int64
	err := r.filtered(ctx, filter).Count(&total).Error
	return total, err
}

func (r *templateRepository) IncrementUses(ctx context.Context, id uint) (int64, error) {
	return incrementCounter(ctx, r.db, &models.Template{}, id, "uses")
}

func (r *templateRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Template{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *templateRepository) Search(ctx context.Context, q string, limit int) ([]models.Template, error) {
	var templates []models.Template
	pattern := likePattern(q)
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!' OR tag_index LIKE ? ESCAPE '!'", pattern, pattern, pattern).
		Order("uses DESC").Order("id DESC").
		Limit(limit).
		Find(&templates).Error
	return templates, err
}
