package repositories

import (
	"context"
	"time"

	"trendzn-restful/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MemeFilter struct {
	OwnerID       uint
	CreatedSince  time.Time
	CreatedBefore time.Time
}

type MemeRepository interface {
	Create(ctx context.Context, meme *models.Meme) error
	FindByID(ctx context.Context, id uint) (*models.Meme, error)
	List(ctx context.Context, filter MemeFilter, page Page) ([]models.Meme, int64, error)
	Count(ctx context.Context, filter MemeFilter) (int64, error)
}

type memeRepository struct {
	db *gorm.DB
}

func NewMemeRepository(db *gorm.DB) MemeRepository {
	return &memeRepository{db: db}
}

func (r *memeRepository) Create(ctx context.Context, meme *models.Meme) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(meme).Error
}

func (r *memeRepository) FindByID(ctx context.Context, id uint) (*models.Meme, error) {
	var meme models.Meme
	err := r.db.WithContext(ctx).
		Preload("Template").Preload("Trend").
		First(&meme, id).Error
	if err != nil {
		return nil, err
	}
	return &meme, nil
}

func (r *memeRepository) filtered(ctx context.Context, filter MemeFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Meme{})
	if filter.OwnerID != 0 {
		query = query.Where("created_by_id = ?", filter.OwnerID)
	}
	if !filter.CreatedSince.IsZero() {
		query = query.Where("created_at >= ?", filter.CreatedSince)
	}
	return createdBefore(query, filter.CreatedBefore)
}

func (r *memeRepository) List(ctx context.Context, filter MemeFilter, page Page) ([]models.Meme, int64, error) {
	var memes []models.Meme
	total, err := findPage(r.filtered(ctx, filter), page, &memes, newestFirst, "Template", "Trend")
	if err != nil {
		return nil, 0, err
	}
	return memes, total, nil
}

func (r *memeRepository) Count(ctx context.Context, filter MemeFilter) (int64, error) {
	var total int64
	err := r.filtered(ctx, filter).Count(&total).Error
	return total, err
}
