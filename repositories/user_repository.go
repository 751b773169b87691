package repositories

import (
	"context"
	"time"

	"trendzn-restful/models"

	"gorm.io/gorm"
)

type UserFilter struct {
	Search        string // substring of username or email
	ActiveOnly    bool
	CreatedBefore time.Time
}

// UserRepository interface defines User-related database operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByUsernameOrEmail returns the first user holding either value.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context, filter UserFilter, page Page) ([]models.User, int64, error)
	All(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context, filter UserFilter) (int64, error)
	// UpdateWithAudit saves user and appends the audit entries in one
	// transaction; either both are stored or neither is.
	UpdateWithAudit(ctx context.Context, user *models.User, entries ...models.UserAudit) error
	Audit(ctx context.Context, userID uint) ([]models.UserAudit, error)
}

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error
}

func (r *userRepository) filtered(ctx context.Context, filter UserFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(username) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'", pattern, pattern)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	return createdBefore(query, filter.CreatedBefore)
}

func (r *userRepository) List(ctx context.Context, filter UserFilter, page Page) ([]models.User, int64, error) {
	var users []models.User
	total, err := findPage(r.filtered(ctx, filter), page, &users, newestFirst)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) All(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context, filter UserFilter) (int64, error) {
	var total int64
	err := r.filtered(ctx, filter).Count(&total).Error
	return total, err
}

func (r *userRepository) UpdateWithAudit(ctx context.Context, user *models.User, entries ...models.UserAudit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(user).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
}

func (r *userRepository) Audit(ctx context.Context, userID uint) ([]models.UserAudit, error) {
	var entries []models.UserAudit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&entries).Error
	return entries, err
}
