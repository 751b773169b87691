package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"trendzn-restful/models"

	"github.com/golang-jwt/jwt/v4"
)

// CustomClaims are the claims carried by a session token.
type CustomClaims struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (id Identity) IsAdmin() bool { return id.Role == models.RoleAdmin }

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrExpiredToken   = errors.New("token is either expired or not active yet")
	ErrSignature      = errors.New("invalid token signature")
	ErrInvalidToken   = errors.New("invalid token")
)

// TokenService issues and verifies HS256 session tokens. It never touches
// storage: the role in a token is trusted until the token expires.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, issuer string) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Issue creates a signed token for the user.
func (s *TokenService) Issue(user *models.User) (string, error) {
	now := s.now()
	claims := &CustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates the token and returns the caller identity.
func (s *TokenService) Verify(tokenString string) (*Identity, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &CustomClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrMalformedToken
			case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
				return nil, ErrExpiredToken
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				return nil, ErrSignature
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == 0 || !models.ValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}
