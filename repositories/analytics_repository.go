package repositories

import (
	"context"

	"trendzn-restful/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnalyticsRepository interface {
	// Upsert inserts the snapshot or replaces the totals of the row for the same day.
	Upsert(ctx context.Context, snapshot *models.AnalyticsSnapshot) error
	FindByDay(ctx context.Context, day string) (*models.AnalyticsSnapshot, error)
	// Since lists snapshots with Day >= day in ascending order.
	Since(ctx context.Context, day string) ([]models.AnalyticsSnapshot, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Upsert(ctx context.Context, snapshot *models.AnalyticsSnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_users", "total_trends", "total_templates", "total_memes",
			"total_views", "total_shares", "updated_at",
		}),
	}).Create(snapshot).Error
}

func (r *analyticsRepository) FindByDay(ctx context.Context, day string) (*models.AnalyticsSnapshot, error) {
	var snapshot models.AnalyticsSnapshot
	if err := r.db.WithContext(ctx).Where("day = ?", day).First(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *analyticsRepository) Since(ctx context.Context, day string) ([]models.AnalyticsSnapshot, error) {
	var snapshots []models.AnalyticsSnapshot
	err := r.db.WithContext(ctx).
		Where("day >= ?", day).
		Order("day ASC").
		Find(&snapshots).Error
	return snapshots, err
}
