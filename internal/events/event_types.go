package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketReplied EventType = "ticket_replied"
)

// EventTypes lists every event the services publish.
var EventTypes = []EventType{EventTicketCreated, EventTicketReplied}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps a new event with an id and the current time.
func NewEvent(eventType EventType, ticketID int64, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload carries what the customer confirmation mail needs.
type TicketCreatedPayload struct {
	ReferenceNumber string `json:"reference_number"`
	Summary         string `json:"summary"`
	Description     string `json:"description"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
}

// TicketRepliedPayload payload.
type TicketRepliedPayload struct {
	ReferenceNumber string `json:"reference_number"`
	Summary         string `json:"summary"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	ReplyID         int64  `json:"reply_id"`
	AgentName       string `json:"agent_name"`
	Message         string `json:"message"`
}
