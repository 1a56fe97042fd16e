package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/repository/memory"
	apperrors "github.com/spec-kit/booking-service/pkg/util/errorutil"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)

	token, exp, err := tm.GenerateToken("user-1", domain.UserRoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.UserRoleAdmin, claims.Role)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	token, _, err := tm.GenerateToken("user-1", domain.UserRoleUser)
	require.NoError(t, err)

	_, err = NewTokenManager("other-secret", 15).ParseToken(token)
	assert.Error(t, err)

	expired := NewTokenManager("secret", 15)
	expired.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = expired.ParseToken(token)
	assert.Error(t, err)

	_, err = tm.ParseToken("not-a-jwt")
	assert.Error(t, err)
}

func TestPassword_HashAndCompare(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, ComparePassword("", "s3cret!"), ErrInvalidCredentials)

	// out of range costs fall back to the default
	defaultHash, err := HashPassword("s3cret!", 1)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(defaultHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func newProtectedApp(t *testing.T) (*fiber.App, *TokenManager, *domain.User, *domain.User) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	user := &domain.User{Username: "guest", Email: "guest@example.com", Role: domain.UserRoleUser}
	require.NoError(t, store.Users().Create(ctx, user))
	admin := &domain.User{Username: "admin", Email: "admin@example.com", Role: domain.UserRoleAdmin}
	require.NoError(t, store.Users().Create(ctx, admin))

	tokens := NewTokenManager("secret", 15)
	mw := NewAuthMiddleware(tokens, store.Users())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			derr := apperrors.ToDomainError(err)
			return c.Status(derr.HTTPStatus).SendString(derr.Code)
		},
	})
	app.Get("/me", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Username)
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.UserRoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tokens, user, admin
}

func TestAuthMiddleware(t *testing.T) {
	app, tokens, user, admin := newProtectedApp(t)

	userToken, _, err := tokens.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	adminToken, _, err := tokens.GenerateToken(admin.ID, admin.Role)
	require.NoError(t, err)
	// claims ADMIN but the stored role is USER
	forged, _, err := tokens.GenerateToken(user.ID, domain.UserRoleAdmin)
	require.NoError(t, err)
	ghost, _, err := tokens.GenerateToken("missing", domain.UserRoleUser)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"unknown user", "/me", "Bearer " + ghost, http.StatusUnauthorized},
		{"user ok", "/me", "Bearer " + userToken, http.StatusOK},
		{"user on admin route", "/admin", "Bearer " + userToken, http.StatusForbidden},
		{"forged role", "/admin", "Bearer " + forged, http.StatusForbidden},
		{"admin ok", "/admin", "Bearer " + adminToken, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
