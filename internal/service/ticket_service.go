package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
)

// maxReferenceAttempts bounds both the pre-check loop and the insert retries.
const maxReferenceAttempts = 5

var (
	// ErrReferenceExhausted is returned when no unique reference number could
	// be allocated.
	ErrReferenceExhausted = errors.New("could not allocate a unique reference number")
	// ErrInvalidStatus rejects statuses outside the known set.
	ErrInvalidStatus = errors.New("invalid ticket status")
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	customers  repository.CustomerRepository
	references domain.ReferenceGenerator
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CustomerRepo repository.CustomerRepository
	References   domain.ReferenceGenerator
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// TicketCreateInput describes a guest ticket submission.
type TicketCreateInput struct {
	Name        string
	Email       string
	Phone       string
	Summary     string
	Description string
}

// ReplyInput describes an agent reply.
type ReplyInput struct {
	Message string
	AgentID int64
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	references := deps.References
	if references == nil {
		references = domain.NewReferenceGenerator()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		customers:  deps.CustomerRepo,
		references: references,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// CreateTicket resolves the customer by email and opens a new ticket for it.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	customer, err := s.findOrCreateCustomer(ctx, input)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Summary:     strings.TrimSpace(input.Summary),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusNew,
		CustomerID:  &customer.ID,
	}
	if err := s.insertWithReference(ctx, ticket); err != nil {
		return nil, err
	}
	ticket.Customer = customer

	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, events.TicketCreatedPayload{
		ReferenceNumber: ticket.ReferenceNumber,
		Summary:         ticket.Summary,
		Description:     ticket.Description,
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
	}))
	return ticket, nil
}

// GetTicketByReference returns the ticket with its customer and replies, or
// repository.ErrNotFound.
func (s *TicketService) GetTicketByReference(ctx context.Context, reference string) (*domain.Ticket, error) {
	return s.tickets.FindByReference(ctx, strings.TrimSpace(reference))
}

// GetTicket loads a ticket with every relation for the agent view.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	return s.tickets.FindByID(ctx, id, repository.WithCustomer|repository.WithAgent|repository.WithReplies)
}

// GetAllTickets lists tickets newest first.
func (s *TicketService) GetAllTickets(ctx context.Context, page repository.PageRequest) (repository.Page[domain.Ticket], error) {
	return s.tickets.GetAllPaginated(ctx, page, repository.WithCustomer|repository.WithAgent)
}

// SearchTickets filters by customer name; a blank query lists everything.
func (s *TicketService) SearchTickets(ctx context.Context, query string, page repository.PageRequest) (repository.Page[domain.Ticket], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.GetAllTickets(ctx, page)
	}
	return s.tickets.SearchByCustomerName(ctx, query, page)
}

// AddReply records an agent reply, which moves the ticket to in_progress, and
// notifies the customer.
func (s *TicketService) AddReply(ctx context.Context, ticket *domain.Ticket, input ReplyInput) (*domain.TicketReply, error) {
	reply := &domain.TicketReply{
		AgentID: input.AgentID,
		Message: strings.TrimSpace(input.Message),
	}
	if err := s.tickets.AddReply(ctx, ticket, reply); err != nil {
		return nil, fmt.Errorf("add reply: %w", err)
	}

	latest, err := s.tickets.LatestReply(ctx, ticket.ID)
	if err != nil {
		s.logger.Error("failed to load latest reply", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return reply, nil
	}

	customer, err := s.ticketCustomer(ctx, ticket)
	if err != nil {
		s.logger.Warn("reply notification skipped", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return latest, nil
	}

	agentName := ""
	if latest.Agent != nil {
		agentName = latest.Agent.Name
	}
	s.publishEvent(ctx, events.NewEvent(events.EventTicketReplied, ticket.ID, events.TicketRepliedPayload{
		ReferenceNumber: ticket.ReferenceNumber,
		Summary:         ticket.Summary,
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		ReplyID:         latest.ID,
		AgentName:       agentName,
		Message:         latest.Message,
	}))
	return latest, nil
}

// UpdateStatus sets any known status; there is no transition graph.
func (s *TicketService) UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	ticket, err := s.tickets.FindByID(ctx, id, repository.WithCustomer|repository.WithAgent)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Update(ctx, ticket, repository.TicketUpdate{Status: &status}); err != nil {
		return nil, fmt.Errorf("update ticket status: %w", err)
	}
	return ticket, nil
}

// findOrCreateCustomer never overwrites an existing customer's details. A
// concurrent insert for the same email is resolved by reading the winner.
func (s *TicketService) findOrCreateCustomer(ctx context.Context, input TicketCreateInput) (*domain.Customer, error) {
	email := strings.TrimSpace(input.Email)

	customer, err := s.customers.GetByEmail(ctx, email)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}

	customer = &domain.Customer{
		Name:  strings.TrimSpace(input.Name),
		Email: email,
		Phone: strings.TrimSpace(input.Phone),
	}
	err = s.customers.Create(ctx, customer)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return s.customers.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return customer, nil
}

func (s *TicketService) insertWithReference(ctx context.Context, ticket *domain.Ticket) error {
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		reference, err := s.freshReference(ctx)
		if err != nil {
			return err
		}
		ticket.ReferenceNumber = reference

		err = s.tickets.Create(ctx, ticket)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateReference) {
			return fmt.Errorf("create ticket: %w", err)
		}
		s.logger.Warn("reference number collided on insert, retrying",
			zap.String("reference_number", reference),
			zap.Int("attempt", attempt))
	}
	return ErrReferenceExhausted
}

// freshReference generates candidates until one is not already taken.
func (s *TicketService) freshReference(ctx context.Context) (string, error) {
	for i := 0; i < maxReferenceAttempts; i++ {
		reference, err := s.references.Generate()
		if err != nil {
			return "", err
		}
		exists, err := s.tickets.ReferenceExists(ctx, reference)
		if err != nil {
			return "", fmt.Errorf("check reference number: %w", err)
		}
		if !exists {
			return reference, nil
		}
	}
	return "", ErrReferenceExhausted
}

func (s *TicketService) ticketCustomer(ctx context.Context, ticket *domain.Ticket) (*domain.Customer, error) {
	if ticket.Customer != nil {
		return ticket.Customer, nil
	}
	if ticket.CustomerID == nil {
		return nil, errors.New("ticket has no customer")
	}
	customer, err := s.customers.GetByID(ctx, *ticket.CustomerID)
	if err != nil {
		return nil, err
	}
	ticket.Customer = customer
	return customer, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
