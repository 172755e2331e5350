package handlers

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

// TicketService is the ticket workflow the handlers depend on.
type TicketService interface {
	CreateTicket(ctx context.Context, input service.TicketCreateInput) (*domain.Ticket, error)
	GetTicketByReference(ctx context.Context, reference string) (*domain.Ticket, error)
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	SearchTickets(ctx context.Context, query string, page repository.PageRequest) (repository.Page[domain.Ticket], error)
	AddReply(ctx context.Context, ticket *domain.Ticket, input service.ReplyInput) (*domain.TicketReply, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) (*domain.Ticket, error)
}

// AuthService authenticates agents.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
}

var (
	_ TicketService = (*service.TicketService)(nil)
	_ AuthService   = (*service.AuthService)(nil)
)
