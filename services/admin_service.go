package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"trendzn-restful/apperrors"
	"trendzn-restful/auth"
	"trendzn-restful/models"
	"trendzn-restful/repositories"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// AdminService backs the administrator dashboard. Callers must already
// have passed the admin role gate.
type AdminService interface {
	Stats(ctx context.Context) (*DashboardStats, error)
	ListUsers(ctx context.Context, search string, page, limit int) (*Page[models.User], error)
	UpdateUser(ctx context.Context, actor *auth.Identity, userID uint, input *UpdateUserInput) (*models.User, error)
	// ToggleUserActive flips the stored active flag of the user.
	ToggleUserActive(ctx context.Context, actor *auth.Identity, userID uint) (*models.User, error)
	UserAudit(ctx context.Context, userID uint) ([]models.UserAudit, error)
	ExportUsers(ctx context.Context, w io.Writer) error
}

type UpdateUserInput struct {
	Role     *string `json:"role,omitempty" description:"user or admin"`
	IsActive *bool   `json:"isActive,omitempty"`
}

type StatsCounts struct {
	TotalUsers       int64 `json:"totalUsers"`
	TotalTrends      int64 `json:"totalTrends"`
	TotalTemplates   int64 `json:"totalTemplates"`
	TotalMemes       int64 `json:"totalMemes"`
	ActiveUsers      int64 `json:"activeUsers"`
	ViralTrends      int64 `json:"viralTrends"`
	PopularTemplates int64 `json:"popularTemplates"`
	TodaysMemes      int64 `json:"todaysMemes"`
}

// Growth is the percentage change per entity against the totals of
// records created before the start of the current UTC day.
type Growth struct {
	Users     float64 `json:"users"`
	Trends    float64 `json:"trends"`
	Templates float64 `json:"templates"`
	Memes     float64 `json:"memes"`
}

type DashboardStats struct {
	Stats  StatsCounts `json:"stats"`
	Growth Growth      `json:"growth"`
}

type adminService struct {
	users     repositories.UserRepository
	trends    repositories.TrendRepository
	templates repositories.TemplateRepository
	memes     repositories.MemeRepository
	paging    Paging
	now       func() time.Time
	log       *zap.Logger
}

var _ AdminService = (*adminService)(nil)

func NewAdminService(users repositories.UserRepository, trends repositories.TrendRepository, templates repositories.TemplateRepository,
	memes repositories.MemeRepository, paging Paging, log *zap.Logger) AdminService {
	return &adminService{
		users:     users,
		trends:    trends,
		templates: templates,
		memes:     memes,
		paging:    paging,
		now:       time.Now,
		log:       log.Named("admin"),
	}
}

// GrowthPercent returns (today-yesterday)/max(yesterday,1)*100 rounded to
// one decimal place.
func GrowthPercent(today, yesterday int64) float64 {
	base := yesterday
	if base < 1 {
		base = 1
	}
	pct := float64(today-yesterday) / float64(base) * 100
	return math.Round(pct*10) / 10
}

// startOfUTCDay matches the day keys of analytics snapshots.
func startOfUTCDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *adminService) Stats(ctx context.Context) (*DashboardStats, error) {
	// Stored timestamps carry the local zone; compare in it.
	today := startOfUTCDay(s.now()).Local()

	var (
		out       DashboardStats
		yesterday StatsCounts
		err       error
	)
	counts := []struct {
		dst   *int64
		count func() (int64, error)
	}{
		{&out.Stats.TotalUsers, func() (int64, error) { return s.users.Count(ctx, repositories.UserFilter{}) }},
		{&out.Stats.TotalTrends, func() (int64, error) { return s.trends.Count(ctx, repositories.TrendFilter{}) }},
		{&out.Stats.TotalTemplates, func() (int64, error) { return s.templates.Count(ctx, repositories.TemplateFilter{}) }},
		{&out.Stats.TotalMemes, func() (int64, error) { return s.memes.Count(ctx, repositories.MemeFilter{}) }},
		{&out.Stats.ActiveUsers, func() (int64, error) { return s.users.Count(ctx, repositories.UserFilter{ActiveOnly: true}) }},
		{&out.Stats.ViralTrends, func() (int64, error) {
			return s.trends.Count(ctx, repositories.TrendFilter{Status: models.StatusViral})
		}},
		{&out.Stats.PopularTemplates, func() (int64, error) {
			return s.templates.Count(ctx, repositories.TemplateFilter{PopularOnly: true})
		}},
		{&out.Stats.TodaysMemes, func() (int64, error) {
			return s.memes.Count(ctx, repositories.MemeFilter{CreatedSince: today})
		}},
		{&yesterday.TotalUsers, func() (int64, error) { return s.users.Count(ctx, repositories.UserFilter{CreatedBefore: today}) }},
		{&yesterday.TotalTrends, func() (int64, error) {
			return s.trends.Count(ctx, repositories.TrendFilter{CreatedBefore: today})
		}},
		{&yesterday.TotalTemplates, func() (int64, error) {
			return s.templates.Count(ctx, repositories.TemplateFilter{CreatedBefore: today})
		}},
		{&yesterday.TotalMemes, func() (int64, error) {
			return s.memes.Count(ctx, repositories.MemeFilter{CreatedBefore: today})
		}},
	}
	for _, c := range counts {
		if *c.dst, err = c.count(); err != nil {
			return nil, apperrors.Internal("computing dashboard stats", err)
		}
	}

	out.Growth = Growth{
		Users:     GrowthPercent(out.Stats.TotalUsers, yesterday.TotalUsers),
		Trends:    GrowthPercent(out.Stats.TotalTrends, yesterday.TotalTrends),
		Templates: GrowthPercent(out.Stats.TotalTemplates, yesterday.TotalTemplates),
		Memes:     GrowthPercent(out.Stats.TotalMemes, yesterday.TotalMemes),
	}
	return &out, nil
}

func (s *adminService) ListUsers(ctx context.Context, search string, page, limit int) (*Page[models.User], error) {
	p := s.paging.Page(page, limit)
	users, total, err := s.users.List(ctx, repositories.UserFilter{Search: search}, p)
	if err != nil {
		return nil, apperrors.Internal("listing users", err)
	}
	return newPage(users, total, p), nil
}

func (s *adminService) UpdateUser(ctx context.Context, actor *auth.Identity, userID uint, input *UpdateUserInput) (*models.User, error) {
	if input.Role != nil && !models.ValidRole(*input.Role) {
		return nil, apperrors.Validation("Invalid role")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found", "loading user")
	}

	if actor != nil && actor.UserID == user.ID {
		if input.Role != nil && *input.Role != models.RoleAdmin {
			return nil, apperrors.Validation("Administrators cannot demote themselves")
		}
		if input.IsActive != nil && !*input.IsActive {
			return nil, apperrors.Validation("Administrators cannot deactivate themselves")
		}
	}

	var audit []models.UserAudit
	record := func(field, oldValue, newValue string) {
		entry := models.UserAudit{UserID: user.ID, Field: field, OldValue: oldValue, NewValue: newValue}
		if actor != nil {
			entry.ActorID = actor.UserID
		}
		audit = append(audit, entry)
	}

	if input.Role != nil && *input.Role != user.Role {
		record("role", user.Role, *input.Role)
		user.Role = *input.Role
	}
	if input.IsActive != nil && *input.IsActive != user.IsActive {
		record("isActive", strconv.FormatBool(user.IsActive), strconv.FormatBool(*input.IsActive))
		user.IsActive = *input.IsActive
	}
	if len(audit) == 0 {
		return user, nil
	}

	if err := s.users.UpdateWithAudit(ctx, user, audit...); err != nil {
		return nil, apperrors.Internal("updating user", err)
	}
	s.log.Info("User updated by admin",
		zap.Uint("user_id", user.ID),
		zap.String("role", user.Role),
		zap.Bool("is_active", user.IsActive),
	)
	return user, nil
}

func (s *adminService) ToggleUserActive(ctx context.Context, actor *auth.Identity, userID uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found", "loading user")
	}
	next := !user.IsActive
	return s.UpdateUser(ctx, actor, userID, &UpdateUserInput{IsActive: &next})
}

func (s *adminService) UserAudit(ctx context.Context, userID uint) ([]models.UserAudit, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "User not found", "loading user")
	}
	entries, err := s.users.Audit(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("loading audit entries", err)
	}
	if entries == nil {
		entries = []models.UserAudit{}
	}
	return entries, nil
}

func (s *adminService) ExportUsers(ctx context.Context, w io.Writer) error {
	users, err := s.users.All(ctx)
	if err != nil {
		return apperrors.Internal("loading users", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Users"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return apperrors.Internal("creating sheet", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return apperrors.Internal("removing default sheet", err)
	}

	setRow := func(row int, values []any) error {
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	headers := []any{"ID", "Username", "Email", "Role", "Active", "Created", "Last login"}
	if err := setRow(1, headers); err != nil {
		return apperrors.Internal("writing header row", err)
	}
	for idx, u := range users {
		lastLogin := ""
		if u.LastLogin != nil {
			lastLogin = u.LastLogin.Format(time.RFC3339)
		}
		values := []any{u.ID, u.Username, u.Email, u.Role, u.IsActive, u.CreatedAt.Format(time.RFC3339), lastLogin}
		if err := setRow(idx+2, values); err != nil {
			return apperrors.Internal(fmt.Sprintf("writing row for user %d", u.ID), err)
		}
	}
	if err := f.SetColWidth(sheet, "B", "C", 28); err != nil {
		return apperrors.Internal("sizing columns", err)
	}
	if err := f.SetColWidth(sheet, "F", "G", 24); err != nil {
		return apperrors.Internal("sizing columns", err)
	}

	if err := f.Write(w); err != nil {
		return apperrors.Internal("writing spreadsheet", fmt.Errorf("export users: %w", err))
	}
	return nil
}
