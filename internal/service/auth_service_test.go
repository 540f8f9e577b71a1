package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Arpan7125/procto-3.0/internal/config"
	"github.com/Arpan7125/procto-3.0/internal/model"
)

func newAuthService() *AuthService {
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4, // Minimum cost keeps the test fast.
	}
	return NewAuthService(cfg, nil)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	s := newAuthService()

	hash, err := s.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	require.NoError(t, s.CheckPassword(hash, "correct horse battery staple"))
	require.ErrorIs(t, s.CheckPassword(hash, "wrong password"), ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	s := newAuthService()
	user := &model.User{ID: uuid.New(), Role: model.RoleFaculty}

	token, err := s.GenerateToken(user)
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, model.RoleFaculty, claims.Role)
	require.Equal(t, user.ID.String(), claims.Subject)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	s := newAuthService()
	user := &model.User{ID: uuid.New(), Role: model.RoleStudent}

	token, err := s.GenerateToken(user)
	require.NoError(t, err)

	_, err = s.ValidateToken(token + "x")
	require.Error(t, err)

	// A token signed with a different secret must not validate.
	other := newAuthService()
	other.cfg.JWTSecret = "different-secret"
	foreign, err := other.GenerateToken(user)
	require.NoError(t, err)
	_, err = s.ValidateToken(foreign)
	require.Error(t, err)
}
