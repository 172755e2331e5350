package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Relations selects which associations a ticket query loads.
type Relations uint8

const (
	WithCustomer Relations = 1 << iota
	WithAgent
	WithReplies
)

// Has reports whether every flag in other is set.
func (r Relations) Has(other Relations) bool {
	return r&other == other
}

// TicketUpdate lists the mutable ticket fields. Nil fields are left untouched.
type TicketUpdate struct {
	Summary     *string
	Description *string
	Status      *domain.TicketStatus
	AgentID     *int64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	FindByReference(ctx context.Context, reference string) (*domain.Ticket, error)
	FindByID(ctx context.Context, id int64, rel Relations) (*domain.Ticket, error)
	GetAllPaginated(ctx context.Context, page PageRequest, rel Relations) (Page[domain.Ticket], error)
	Update(ctx context.Context, ticket *domain.Ticket, update TicketUpdate) error
	AddReply(ctx context.Context, ticket *domain.Ticket, reply *domain.TicketReply) error
	LatestReply(ctx context.Context, ticketID int64) (*domain.TicketReply, error)
	SearchByCustomerName(ctx context.Context, pattern string, page PageRequest) (Page[domain.Ticket], error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const (
	ticketColumns = `t.id, t.reference_number, t.summary, t.description, t.status,
               t.customer_id, t.agent_id, t.created_at, t.updated_at`
	customerJoinColumns = `c.id, c.name, c.email, c.phone, c.created_at, c.updated_at`
	agentJoinColumns    = `a.id, a.name, a.email, a.user_id, a.created_at, a.updated_at`
)

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusNew
	}

	const query = `
        INSERT INTO tickets (reference_number, summary, description, status, customer_id, agent_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ReferenceNumber,
		ticket.Summary,
		ticket.Description,
		ticket.Status,
		ticket.CustomerID,
		ticket.AgentID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if isUniqueViolation(err, "tickets_reference_number_key") {
		return ErrDuplicateReference
	}
	return err
}

func (r *ticketRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tickets WHERE reference_number=$1)`, reference,
	).Scan(&exists)
	return exists, err
}

func (r *ticketRepository) FindByReference(ctx context.Context, reference string) (*domain.Ticket, error) {
	rel := WithCustomer | WithReplies
	query := selectTickets(rel) + ` WHERE t.reference_number=$1`
	return r.fetchSingle(ctx, rel, query, reference)
}

func (r *ticketRepository) FindByID(ctx context.Context, id int64, rel Relations) (*domain.Ticket, error) {
	query := selectTickets(rel) + ` WHERE t.id=$1`
	return r.fetchSingle(ctx, rel, query, id)
}

func (r *ticketRepository) GetAllPaginated(ctx context.Context, page PageRequest, rel Relations) (Page[domain.Ticket], error) {
	page = page.Normalize()
	result := Page[domain.Ticket]{Page: page.Page, PageSize: page.PageSize}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&result.Total); err != nil {
		return result, fmt.Errorf("count tickets: %w", err)
	}

	query := selectTickets(rel) + ` ORDER BY t.created_at DESC, t.id DESC LIMIT $1 OFFSET $2`
	items, err := r.list(ctx, rel, query, page.PageSize, page.Offset())
	if err != nil {
		return result, err
	}
	result.Items = items
	return result, nil
}

func (r *ticketRepository) SearchByCustomerName(ctx context.Context, pattern string, page PageRequest) (Page[domain.Ticket], error) {
	page = page.Normalize()
	result := Page[domain.Ticket]{Page: page.Page, PageSize: page.PageSize}
	like := "%" + escapeLike(pattern) + "%"

	const countQuery = `
        SELECT COUNT(*) FROM tickets t
        JOIN customers c ON c.id = t.customer_id
        WHERE c.name ILIKE $1`
	if err := r.pool.QueryRow(ctx, countQuery, like).Scan(&result.Total); err != nil {
		return result, fmt.Errorf("count tickets: %w", err)
	}

	rel := WithCustomer | WithAgent
	query := `SELECT ` + ticketColumns + `, ` + customerJoinColumns + `, ` + agentJoinColumns + `
             FROM tickets t
             JOIN customers c ON c.id = t.customer_id
             LEFT JOIN agents a ON a.id = t.agent_id
             WHERE c.name ILIKE $1
             ORDER BY t.created_at DESC, t.id DESC LIMIT $2 OFFSET $3`
	items, err := r.list(ctx, rel, query, like, page.PageSize, page.Offset())
	if err != nil {
		return result, err
	}
	result.Items = items
	return result, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket, update TicketUpdate) error {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if update.Summary != nil {
		add("summary", *update.Summary)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.AgentID != nil {
		add("agent_id", *update.AgentID)
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, ticket.ID)

	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d RETURNING updated_at`,
		strings.Join(sets, ", "), len(args))
	var updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&updatedAt); err != nil {
		return mapNoRows(err)
	}

	if update.Summary != nil {
		ticket.Summary = *update.Summary
	}
	if update.Description != nil {
		ticket.Description = *update.Description
	}
	if update.Status != nil {
		ticket.Status = *update.Status
	}
	if update.AgentID != nil {
		agentID := *update.AgentID
		ticket.AgentID = &agentID
	}
	ticket.UpdatedAt = updatedAt
	return nil
}

func (r *ticketRepository) AddReply(ctx context.Context, ticket *domain.Ticket, reply *domain.TicketReply) error {
	reply.TicketID = ticket.ID
	var updatedAt time.Time

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertReply = `
            INSERT INTO ticket_replies (ticket_id, agent_id, message)
            VALUES ($1,$2,$3)
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insertReply,
			reply.TicketID,
			reply.AgentID,
			reply.Message,
		).Scan(&reply.ID, &reply.CreatedAt, &reply.UpdatedAt); err != nil {
			return fmt.Errorf("insert reply: %w", err)
		}

		const markInProgress = `
            UPDATE tickets SET status=$1, updated_at=NOW()
            WHERE id=$2
            RETURNING updated_at`
		if err := tx.QueryRow(ctx, markInProgress, domain.TicketStatusInProgress, ticket.ID).Scan(&updatedAt); err != nil {
			return mapNoRows(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ticket.Status = domain.TicketStatusInProgress
	ticket.UpdatedAt = updatedAt
	return nil
}

func (r *ticketRepository) LatestReply(ctx context.Context, ticketID int64) (*domain.TicketReply, error) {
	query := selectReplies + `
        WHERE r.ticket_id=$1
        ORDER BY r.created_at DESC, r.id DESC
        LIMIT 1`
	reply, err := scanReply(r.pool.QueryRow(ctx, query, ticketID))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return reply, nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, rel Relations, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, arg), rel)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if rel.Has(WithReplies) {
		if err := r.attachReplies(ctx, []*domain.Ticket{ticket}); err != nil {
			return nil, err
		}
	}
	return ticket, nil
}

func (r *ticketRepository) list(ctx context.Context, rel Relations, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows, rel)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if rel.Has(WithReplies) && len(tickets) > 0 {
		ptrs := make([]*domain.Ticket, len(tickets))
		for i := range tickets {
			ptrs[i] = &tickets[i]
		}
		if err := r.attachReplies(ctx, ptrs); err != nil {
			return nil, err
		}
	}
	return tickets, nil
}

const selectReplies = `
        SELECT r.id, r.ticket_id, r.agent_id, r.message, r.created_at, r.updated_at,
               a.id, a.name, a.email, a.user_id, a.created_at, a.updated_at
        FROM ticket_replies r
        JOIN agents a ON a.id = r.agent_id`

// attachReplies loads replies for all tickets in one query, oldest first.
func (r *ticketRepository) attachReplies(ctx context.Context, tickets []*domain.Ticket) error {
	ids := make([]int64, len(tickets))
	byID := make(map[int64]*domain.Ticket, len(tickets))
	for i, ticket := range tickets {
		ids[i] = ticket.ID
		byID[ticket.ID] = ticket
		ticket.Replies = []domain.TicketReply{}
	}

	query := selectReplies + `
        WHERE r.ticket_id = ANY($1)
        ORDER BY r.created_at ASC, r.id ASC`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("load replies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return err
		}
		if ticket, ok := byID[reply.TicketID]; ok {
			ticket.Replies = append(ticket.Replies, *reply)
		}
	}
	return rows.Err()
}

func selectTickets(rel Relations) string {
	var b strings.Builder
	b.WriteString(`SELECT ` + ticketColumns)
	if rel.Has(WithCustomer) {
		b.WriteString(`, ` + customerJoinColumns)
	}
	if rel.Has(WithAgent) {
		b.WriteString(`, ` + agentJoinColumns)
	}
	b.WriteString(` FROM tickets t`)
	if rel.Has(WithCustomer) {
		b.WriteString(` LEFT JOIN customers c ON c.id = t.customer_id`)
	}
	if rel.Has(WithAgent) {
		b.WriteString(` LEFT JOIN agents a ON a.id = t.agent_id`)
	}
	return b.String()
}

// nullableCustomer and nullableAgent receive LEFT JOIN columns.
type nullableCustomer struct {
	ID        *int64
	Name      *string
	Email     *string
	Phone     *string
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

func (n *nullableCustomer) dest() []any {
	return []any{&n.ID, &n.Name, &n.Email, &n.Phone, &n.CreatedAt, &n.UpdatedAt}
}

func (n *nullableCustomer) value() *domain.Customer {
	if n.ID == nil {
		return nil
	}
	return &domain.Customer{
		ID:        *n.ID,
		Name:      *n.Name,
		Email:     *n.Email,
		Phone:     *n.Phone,
		CreatedAt: *n.CreatedAt,
		UpdatedAt: *n.UpdatedAt,
	}
}

type nullableAgent struct {
	ID        *int64
	Name      *string
	Email     *string
	UserID    *int64
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

func (n *nullableAgent) dest() []any {
	return []any{&n.ID, &n.Name, &n.Email, &n.UserID, &n.CreatedAt, &n.UpdatedAt}
}

func (n *nullableAgent) value() *domain.Agent {
	if n.ID == nil {
		return nil
	}
	return &domain.Agent{
		ID:        *n.ID,
		Name:      *n.Name,
		Email:     *n.Email,
		UserID:    *n.UserID,
		CreatedAt: *n.CreatedAt,
		UpdatedAt: *n.UpdatedAt,
	}
}

func scanTicket(row pgx.Row, rel Relations) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		customer nullableCustomer
		agent    nullableAgent
	)
	dest := []any{
		&ticket.ID,
		&ticket.ReferenceNumber,
		&ticket.Summary,
		&ticket.Description,
		&ticket.Status,
		&ticket.CustomerID,
		&ticket.AgentID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	}
	if rel.Has(WithCustomer) {
		dest = append(dest, customer.dest()...)
	}
	if rel.Has(WithAgent) {
		dest = append(dest, agent.dest()...)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	ticket.Customer = customer.value()
	ticket.Agent = agent.value()
	return &ticket, nil
}

func scanReply(row pgx.Row) (*domain.TicketReply, error) {
	var (
		reply domain.TicketReply
		agent domain.Agent
	)
	if err := row.Scan(
		&reply.ID,
		&reply.TicketID,
		&reply.AgentID,
		&reply.Message,
		&reply.CreatedAt,
		&reply.UpdatedAt,
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.UserID,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	reply.Agent = &agent
	return &reply, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
