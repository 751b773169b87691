package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"trendzn-restful/apperrors"
	"trendzn-restful/auth"
	"trendzn-restful/models"
	"trendzn-restful/repositories"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService registers users, checks credentials and resolves the user
// behind a verified token.
type AuthService interface {
	Register(ctx context.Context, input *RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input *LoginInput) (*AuthResult, error)
	// CurrentUser reloads the caller from storage. Missing or disabled
	// accounts are reported as unauthenticated.
	CurrentUser(ctx context.Context, id *auth.Identity) (*models.User, error)
}

type RegisterInput struct {
	Username string `json:"username" description:"Unique display name"`
	Email    string `json:"email" description:"Unique e-mail address"`
	Password string `json:"password" description:"At least 6 characters"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	Token string
	User  *models.User
}

const minPasswordLength = 6

type authService struct {
	users      repositories.UserRepository
	tokens     *auth.TokenService
	bcryptCost int
	log        *zap.Logger

	// dummyHash is compared against when the email is unknown so that both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
	compare   func(hash, password []byte) error
}

var _ AuthService = (*authService)(nil)

func NewAuthService(users repositories.UserRepository, tokens *auth.TokenService, bcryptCost int, log *zap.Logger) AuthService {
	s := &authService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		log:        log.Named("auth"),
		compare:    bcrypt.CompareHashAndPassword,
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("trendzn-dummy-password"), bcryptCost)
	if err != nil {
		// Only an out-of-range cost fails here; fall back to the default.
		hash, _ = bcrypt.GenerateFromPassword([]byte("trendzn-dummy-password"), bcrypt.DefaultCost)
	}
	s.dummyHash = hash
	return s
}

func (s *authService) Register(ctx context.Context, input *RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return nil, apperrors.Validation("Username, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.Validation("Invalid email address")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.Validation("Password must be at least 6 characters")
	}

	_, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return nil, apperrors.Validation("User already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("checking existing user", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("hashing password", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Validation("User already exists")
		}
		return nil, apperrors.Internal("creating user", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.Internal("issuing token", err)
	}
	s.log.Info("User registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return &AuthResult{Token: token, User: user}, nil
}

func (s *authService) Login(ctx context.Context, input *LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, apperrors.Validation("Email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Avoid revealing whether the user exists, in the body or the timing.
			_ = s.compare(s.dummyHash, []byte(input.Password))
			return nil, apperrors.Validation("Invalid credentials")
		}
		return nil, apperrors.Internal("loading user", err)
	}
	if err := s.compare([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, apperrors.Validation("Invalid credentials")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("Account is disabled")
	}

	now := time.Now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, apperrors.Internal("recording login", err)
	}
	user.LastLogin = &now

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.Internal("issuing token", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *authService) CurrentUser(ctx context.Context, id *auth.Identity) (*models.User, error) {
	if id == nil {
		return nil, apperrors.Unauthenticated("Access token required")
	}
	user, err := s.users.FindByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthenticated("Invalid token")
		}
		return nil, apperrors.Internal("loading user", err)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthenticated("Account is disabled")
	}
	return user, nil
}
