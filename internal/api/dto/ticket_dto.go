package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest is the guest submission payload.
type CreateTicketRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Email       string `json:"email" validate:"required,email,max=100"`
	Phone       string `json:"phone" validate:"required,notblank,max=10"`
	Summary     string `json:"summary" validate:"required,notblank,max=255"`
	Description string `json:"description" validate:"required,notblank"`
}

// StatusCheckQuery looks a ticket up by its public reference.
type StatusCheckQuery struct {
	ReferenceNumber string `query:"reference_number" validate:"required,notblank"`
}

// TicketListQuery captures agent listing parameters.
type TicketListQuery struct {
	Search   string `query:"search"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

// ReplyRequest payload.
type ReplyRequest struct {
	Message string `json:"message" validate:"required,notblank"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status" validate:"required,oneof=new in_progress resolved closed"`
}

// CreateTicketResponse is returned to guests after submission.
type CreateTicketResponse struct {
	Message         string `json:"message"`
	ReferenceNumber string `json:"reference_number"`
}

// CustomerResponse response.
type CustomerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// AgentResponse response.
type AgentResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ReplyResponse is one message in a ticket thread.
type ReplyResponse struct {
	ID        int64          `json:"id"`
	TicketID  int64          `json:"ticket_id"`
	AgentID   int64          `json:"agent_id"`
	Message   string         `json:"message"`
	Agent     *AgentResponse `json:"agent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TicketResponse renders a ticket with whichever relations were loaded.
type TicketResponse struct {
	ID              int64               `json:"id"`
	ReferenceNumber string              `json:"reference_number"`
	Summary         string              `json:"summary"`
	Description     string              `json:"description"`
	Status          domain.TicketStatus `json:"status"`
	CustomerID      *int64              `json:"customer_id"`
	AgentID         *int64              `json:"agent_id"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Customer        *CustomerResponse   `json:"customer,omitempty"`
	Agent           *AgentResponse      `json:"agent,omitempty"`
	Replies         []ReplyResponse     `json:"replies,omitempty"`
}

// PageMeta describes a paginated listing.
type PageMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}
