package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

const minPasswordLength = 8

var (
	// ErrInvalidCredentials covers unknown emails, wrong passwords and users
	// without an agent record.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when provisioning an agent for a used email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrWeakPassword rejects passwords shorter than minPasswordLength.
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", minPasswordLength)
)

// AuthService coordinates agent login and provisioning.
type AuthService struct {
	users      repository.UserRepository
	agents     repository.AgentRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	AgentRepo repository.AgentRepository
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Agent     *domain.Agent
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		agents:     deps.AgentRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the token manager for the auth middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login authenticates an agent by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	agent, err := s.agents.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(agent.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Agent: agent, Token: token, ExpiresAt: exp}, nil
}

// ProvisionAgent creates a login identity and its agent record.
func (s *AuthService) ProvisionAgent(ctx context.Context, name, email, password string) (*domain.Agent, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, errors.New("name and email are required")
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	agent := &domain.Agent{Name: name, Email: email, UserID: user.ID}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return agent, nil
}
