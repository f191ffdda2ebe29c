package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stitchline/atelier-api/internal/models"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
)

type userStoreStub struct {
	users      map[string]*models.User
	lastLogins map[string]time.Time
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{
		users:      make(map[string]*models.User),
		lastLogins: make(map[string]time.Time),
	}
}

func (s *userStoreStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			copy := *user
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *user
	return &copy, nil
}

func (s *userStoreStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.lastLogins[id] = ts
	return nil
}

func seedUser(t *testing.T, users *userStoreStub, email, password string, role models.UserRole, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         role,
		Active:       active,
	}
	users.users[user.ID] = user
	return user
}

func TestAuthServiceLogin(t *testing.T) {
	users := newUserStoreStub()
	user := seedUser(t, users, "qa@atelier.local", "sew-right", models.RoleQA, true)
	svc := NewAuthService(users, "test-secret", time.Hour, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "sew-right"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, int64(3600), resp.ExpiresIn)
	require.Equal(t, user.ID, resp.User.ID)
	require.Equal(t, models.RoleQA, resp.User.Role)
	require.Contains(t, users.lastLogins, user.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, models.RoleQA, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := newUserStoreStub()
	user := seedUser(t, users, "qa@atelier.local", "sew-right", models.RoleQA, true)
	svc := NewAuthService(users, "test-secret", time.Hour, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "wrong"})
	requireAppError(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newUserStoreStub(), "test-secret", time.Hour, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@atelier.local", Password: "any"})
	requireAppError(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	users := newUserStoreStub()
	user := seedUser(t, users, "qa@atelier.local", "sew-right", models.RoleQA, false)
	svc := NewAuthService(users, "test-secret", time.Hour, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "sew-right"})
	requireAppError(t, err, appErrors.ErrInactiveAccount)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	users := newUserStoreStub()
	user := seedUser(t, users, "qa@atelier.local", "sew-right", models.RoleQA, true)
	issuer := NewAuthService(users, "issuer-secret", time.Hour, nil)
	verifier := NewAuthService(users, "other-secret", time.Hour, nil)

	resp, err := issuer.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "sew-right"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(resp.AccessToken)
	requireAppError(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceUserFromClaims(t *testing.T) {
	users := newUserStoreStub()
	user := seedUser(t, users, "qa@atelier.local", "sew-right", models.RoleQA, true)
	svc := NewAuthService(users, "test-secret", time.Hour, nil)

	got, err := svc.UserFromClaims(context.Background(), &models.JWTClaims{UserID: user.ID})
	require.NoError(t, err)
	require.Equal(t, user.Email, got.Email)

	users.users[user.ID].Active = false
	_, err = svc.UserFromClaims(context.Background(), &models.JWTClaims{UserID: user.ID})
	requireAppError(t, err, appErrors.ErrInactiveAccount)

	_, err = svc.UserFromClaims(context.Background(), &models.JWTClaims{UserID: "missing"})
	requireAppError(t, err, appErrors.ErrUnauthorized)
}
