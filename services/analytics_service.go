package services

import (
	"context"
	"time"

	"trendzn-restful/apperrors"
	"trendzn-restful/models"
	"trendzn-restful/repositories"

	"go.uber.org/zap"
)

type AnalyticsService interface {
	// Refresh recomputes today's snapshot, creating it if needed.
	Refresh(ctx context.Context) (*models.AnalyticsSnapshot, error)
	// History returns the snapshots of the last days days including today,
	// oldest first.
	History(ctx context.Context, days int) ([]models.AnalyticsSnapshot, error)
}

const maxHistoryDays = 365

type analyticsService struct {
	snapshots repositories.AnalyticsRepository
	users     repositories.UserRepository
	trends    repositories.TrendRepository
	templates repositories.TemplateRepository
	memes     repositories.MemeRepository
	now       func() time.Time
	log       *zap.Logger
}

var _ AnalyticsService = (*analyticsService)(nil)

func NewAnalyticsService(snapshots repositories.AnalyticsRepository, users repositories.UserRepository, trends repositories.TrendRepository,
	templates repositories.TemplateRepository, memes repositories.MemeRepository, log *zap.Logger) AnalyticsService {
	return &analyticsService{
		snapshots: snapshots,
		users:     users,
		trends:    trends,
		templates: templates,
		memes:     memes,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log.Named("analytics"),
	}
}

func (s *analyticsService) Refresh(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	snap := &models.AnalyticsSnapshot{Day: s.now().Format(models.DayLayout)}

	var err error
	if snap.TotalUsers, err = s.users.Count(ctx, repositories.UserFilter{}); err != nil {
		return nil, apperrors.Internal("counting users", err)
	}
	if snap.TotalTrends, err = s.trends.Count(ctx, repositories.TrendFilter{}); err != nil {
		return nil, apperrors.Internal("counting trends", err)
	}
	if snap.TotalTemplates, err = s.templates.Count(ctx, repositories.TemplateFilter{}); err != nil {
		return nil, apperrors.Internal("counting templates", err)
	}
	if snap.TotalMemes, err = s.memes.Count(ctx, repositories.MemeFilter{}); err != nil {
		return nil, apperrors.Internal("counting memes", err)
	}
	if snap.TotalViews, snap.TotalShares, err = s.trends.Engagement(ctx); err != nil {
		return nil, apperrors.Internal("summing engagement", err)
	}

	if err := s.snapshots.Upsert(ctx, snap); err != nil {
		return nil, apperrors.Internal("saving snapshot", err)
	}
	saved, err := s.snapshots.FindByDay(ctx, snap.Day)
	if err != nil {
		return nil, apperrors.Internal("reloading snapshot", err)
	}
	s.log.Info("Analytics snapshot refreshed",
		zap.String("day", saved.Day),
		zap.Int64("users", saved.TotalUsers),
		zap.Int64("memes", saved.TotalMemes),
	)
	return saved, nil
}

func (s *analyticsService) History(ctx context.Context, days int) ([]models.AnalyticsSnapshot, error) {
	if days < 1 {
		return nil, apperrors.Validation("days must be a positive number")
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}
	// Today counts as the first of the days.
	since := s.now().AddDate(0, 0, -(days - 1)).Format(models.DayLayout)
	snapshots, err := s.snapshots.Since(ctx, since)
	if err != nil {
		return nil, apperrors.Internal("loading snapshots", err)
	}
	if snapshots == nil {
		snapshots = []models.AnalyticsSnapshot{}
	}
	return snapshots, nil
}
