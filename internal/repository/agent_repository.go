package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// AgentRepository handles persistence for support agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id int64) (*domain.Agent, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, user_id, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, user_id)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.UserID,
	).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) GetByID(ctx context.Context, id int64) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=$1`, id)
}

func (r *agentRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents WHERE user_id=$1`, userID)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents WHERE email=$1 ORDER BY id LIMIT 1`, email)
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.UserID,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	return &agent, nil
}
