package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"driftbox/internal/config"
	"driftbox/internal/domain"
	"driftbox/internal/service"
	"driftbox/mocks"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "driftbox-test",
	}
}

func TestIssueAndValidateToken(t *testing.T) {
	svc := service.NewAuthService(new(mocks.MockAPIKeyRepo), testJWTConfig())
	userID := uuid.New()

	token, err := svc.IssueToken(userID, domain.RoleAdmin, "/team-a")
	require.NoError(t, err)

	principal, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, principal.ID)
	assert.Equal(t, domain.PrincipalUser, principal.Kind)
	assert.Equal(t, domain.RoleAdmin, principal.Role)
	assert.Equal(t, "/team-a", principal.PathPrefix)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := service.NewAuthService(new(mocks.MockAPIKeyRepo), testJWTConfig())
	token, err := issuer.IssueToken(uuid.New(), domain.RoleMember, "/")
	require.NoError(t, err)

	otherCfg := testJWTConfig()
	otherCfg.Secret = "different-secret"
	validator := service.NewAuthService(new(mocks.MockAPIKeyRepo), otherCfg)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestValidateAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	keyID := uuid.New()
	repo := new(mocks.MockAPIKeyRepo)
	repo.On("GetByPrefix", mock.Anything, "abc123").Return(&domain.APIKey{
		ID:         keyID,
		Prefix:     "abc123",
		SecretHash: string(hash),
		PathPrefix: "/ingest",
		Role:       domain.RoleMember,
		IsActive:   true,
	}, nil)

	svc := service.NewAuthService(repo, testJWTConfig())

	principal, err := svc.ValidateAPIKey(context.Background(), "dbk_abc123_s3cret")
	require.NoError(t, err)
	assert.Equal(t, keyID, principal.ID)
	assert.Equal(t, domain.PrincipalAPIKey, principal.Kind)
	assert.Equal(t, "/ingest", principal.PathPrefix)

	_, err = svc.ValidateAPIKey(context.Background(), "dbk_abc123_wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestValidateAPIKey_MalformedKey(t *testing.T) {
	svc := service.NewAuthService(new(mocks.MockAPIKeyRepo), testJWTConfig())

	for _, raw := range []string{"", "dbk_onlyprefix", "other_abc_secret", "plainkey"} {
		_, err := svc.ValidateAPIKey(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrInvalidAPIKey, "key %q", raw)
	}
}

func TestValidateAPIKey_UnknownPrefix(t *testing.T) {
	repo := new(mocks.MockAPIKeyRepo)
	repo.On("GetByPrefix", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	svc := service.NewAuthService(repo, testJWTConfig())

	_, err := svc.ValidateAPIKey(context.Background(), "dbk_nope_secret")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}
