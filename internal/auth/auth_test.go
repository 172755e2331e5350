package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

type stubAgents struct {
	agents map[int64]*domain.Agent
}

func (s *stubAgents) Create(context.Context, *domain.Agent) error { return nil }

func (s *stubAgents) GetByID(_ context.Context, id int64) (*domain.Agent, error) {
	if a, ok := s.agents[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubAgents) GetByUserID(context.Context, int64) (*domain.Agent, error) {
	return nil, repository.ErrNotFound
}

func (s *stubAgents) GetByEmail(context.Context, string) (*domain.Agent, error) {
	return nil, repository.ErrNotFound
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)

	token, expiresAt, err := tm.GenerateToken(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, RoleAgent, claims.Role)
	id, err := claims.AgentID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenManager_RejectsForeignAndExpiredTokens(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	other := NewTokenManager("other-secret", time.Minute)

	token, _, err := other.GenerateToken(1)
	require.NoError(t, err)
	_, err = tm.ParseToken(token)
	assert.Error(t, err)

	expired := NewTokenManager("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err = expired.GenerateToken(1)
	require.NoError(t, err)
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestPassword_HashAndCompare(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong"), ErrPasswordMismatch)
}

func newProtectedApp(tm *TokenManager, agents repository.AgentRepository) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	mw := NewAuthMiddleware(tm, agents)
	app.Get("/private", mw.Handle, RequireAgent(), func(c *fiber.Ctx) error {
		agent, _ := AgentFromContext(c)
		return c.SendString(agent.Name)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	agents := &stubAgents{agents: map[int64]*domain.Agent{7: {ID: 7, Name: "Bob"}}}
	app := newProtectedApp(tm, agents)

	valid, _, err := tm.GenerateToken(7)
	require.NoError(t, err)
	unknown, _, err := tm.GenerateToken(8)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"unknown agent", "Bearer " + unknown, http.StatusUnauthorized},
		{"valid agent", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRequireAgent_WithoutPrincipal(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/", RequireAgent(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTokenManager_RejectsWrongAlgorithmAndIssuer(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Role: RoleAgent,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ParseToken(unsigned)
	assert.Error(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: RoleAgent,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err := foreign.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(signed)
	assert.Error(t, err)
}
