package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every valid status.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for support requests. Customer, Agent and Replies
// are only populated when the repository was asked to load them.
type Ticket struct {
	ID              int64
	ReferenceNumber string
	Summary         string
	Description     string
	Status          TicketStatus
	CustomerID      *int64
	AgentID         *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Customer *Customer
	Agent    *Agent
	Replies  []TicketReply
}

// TicketReply is an agent-authored message on a ticket. Replies are immutable.
type TicketReply struct {
	ID        int64
	TicketID  int64
	AgentID   int64
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time

	Agent *Agent
}
