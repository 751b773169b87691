package repositories

import (
	"context"
	"time"

	"trendzn-restful/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TrendFilter struct {
	Category      string
	Status        string
	CreatedBefore time.Time
}

type TrendRepository interface {
	Create(ctx context.Context, trend *models.Trend) error
	FindByID(ctx context.Context, id uint) (*models.Trend, error)
	List(ctx context.Context, filter TrendFilter, page Page) ([]models.Trend, int64, error)
	Count(ctx context.Context, filter TrendFilter) (int64, error)
	// IncrementViews atomically adds one view and returns the new count.
	IncrementViews(ctx context.Context, id uint) (int64, error)
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, q string, limit int) ([]models.Trend, error)
	// Engagement returns the summed views and shares of all trends.
	Engagement(ctx context.Context) (views, shares int64, err error)
}

type trendRepository struct {
	db *gorm.DB
}

func NewTrendRepository(db *gorm.DB) TrendRepository {
	return &trendRepository{db: db}
}

func (r *trendRepository) Create(ctx context.Context, trend *models.Trend) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(trend).Error
}

func (r *trendRepository) FindByID(ctx context.Context, id uint) (*models.Trend, error) {
	var trend models.Trend
	if err := r.db.WithContext(ctx).Preload("CreatedBy").First(&trend, id).Error; err != nil {
		return nil, err
	}
	return &trend, nil
}

func (r *trendRepository) filtered(ctx context.Context, filter TrendFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Trend{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return createdBefore(query, filter.CreatedBefore)
}

func (r *trendRepository) List(ctx context.Context, filter TrendFilter, page Page) ([]models.Trend, int64, error) {
	var trends []models.Trend
	total, err := findPage(r.filtered(ctx, filter), page, &trends, newestFirst, "CreatedBy")
	if err != nil {
		return nil, 0, err
	}
	return trends, total, nil
}

func (r *trendRepository) Count(ctx context.Context, filter TrendFilter) (int64, error) {
	var total int64
	err := r.filtered(ctx, filter).Count(&total).Error
	return total, err
}

func (r *trendRepository) IncrementViews(ctx context.Context, id uint) (int64, error) {
	return incrementCounter(ctx, r.db, &models.Trend{}, id, "views")
}

func (r *trendRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Trend{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *trendRepository) Search(ctx context.Context, q string, limit int) ([]models.Trend, error) {
	var trends []models.Trend
	pattern := likePattern(q)
	err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!' OR tag_index LIKE ? ESCAPE '!'", pattern, pattern, pattern).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&trends).Error
	return trends, err
}

func (r *trendRepository) Engagement(ctx context.Context) (int64, int64, error) {
	var sums struct {
		Views  int64
		Shares int64
	}
	err := r.db.WithContext(ctx).Model(&models.Trend{}).
		Select("COALESCE(SUM(views), 0) AS views, COALESCE(SUM(shares), 0) AS shares").
		Scan(&sums).Error
	return sums.Views, sums.Shares, err
}
