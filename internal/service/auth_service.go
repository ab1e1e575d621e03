package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"driftbox/internal/config"
	"driftbox/internal/domain"
	"driftbox/internal/port"
)

// Claims represents the JWT claims carried by access tokens. PathPrefix scopes
// every path-bearing call the holder makes.
type Claims struct {
	jwt.RegisteredClaims
	UserID     uuid.UUID       `json:"user_id"`
	Role       domain.UserRole `json:"role"`
	PathPrefix string          `json:"path_prefix"`
}

// AuthService resolves callers into principals from either a bearer token or
// an API key.
type AuthService interface {
	IssueToken(userID uuid.UUID, role domain.UserRole, pathPrefix string) (string, error)
	ValidateToken(tokenString string) (*domain.Principal, error)
	ValidateAPIKey(ctx context.Context, rawKey string) (*domain.Principal, error)
}

type authService struct {
	apiKeys port.APIKeyRepository
	cfg     config.JWTConfig
}

// NewAuthService creates a new AuthService implementation.
func NewAuthService(apiKeys port.APIKeyRepository, cfg config.JWTConfig) AuthService {
	return &authService{apiKeys: apiKeys, cfg: cfg}
}

func (s *authService) IssueToken(userID uuid.UUID, role domain.UserRole, pathPrefix string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenExpiry)),
		},
		UserID:     userID,
		Role:       role,
		PathPrefix: pathPrefix,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("auth.IssueToken: %w", err)
	}
	return signed, nil
}

func (s *authService) ValidateToken(tokenString string) (*domain.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer))
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	return &domain.Principal{
		ID:         claims.UserID,
		Kind:       domain.PrincipalUser,
		Role:       claims.Role,
		PathPrefix: claims.PathPrefix,
	}, nil
}

// ValidateAPIKey checks a raw key of the form "dbk_<prefix>_<secret>" against
// the stored bcrypt hash for its prefix.
func (s *authService) ValidateAPIKey(ctx context.Context, rawKey string) (*domain.Principal, error) {
	parts := strings.SplitN(rawKey, "_", 3)
	if len(parts) != 3 || parts[0] != "dbk" {
		return nil, domain.ErrInvalidAPIKey
	}

	key, err := s.apiKeys.GetByPrefix(ctx, parts[1])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("auth.ValidateAPIKey: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(parts[2])); err != nil {
		return nil, domain.ErrInvalidAPIKey
	}

	return &domain.Principal{
		ID:         key.ID,
		Kind:       domain.PrincipalAPIKey,
		Role:       key.Role,
		PathPrefix: key.PathPrefix,
	}, nil
}
