package handlers

import (
	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:              ticket.ID,
		ReferenceNumber: ticket.ReferenceNumber,
		Summary:         ticket.Summary,
		Description:     ticket.Description,
		Status:          ticket.Status,
		CustomerID:      ticket.CustomerID,
		AgentID:         ticket.AgentID,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		Customer:        customerResponse(ticket.Customer),
		Agent:           agentResponse(ticket.Agent),
	}
	if ticket.Replies != nil {
		resp.Replies = make([]dto.ReplyResponse, 0, len(ticket.Replies))
		for i := range ticket.Replies {
			resp.Replies = append(resp.Replies, replyResponse(&ticket.Replies[i]))
		}
	}
	return resp
}

func ticketPage(page repository.Page[domain.Ticket]) ([]dto.TicketResponse, dto.PageMeta) {
	items := make([]dto.TicketResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ticketResponse(&page.Items[i]))
	}
	return items, dto.PageMeta{
		Page:     page.Page,
		PageSize: page.PageSize,
		Total:    page.Total,
		LastPage: page.LastPage(),
	}
}

func replyResponse(reply *domain.TicketReply) dto.ReplyResponse {
	return dto.ReplyResponse{
		ID:        reply.ID,
		TicketID:  reply.TicketID,
		AgentID:   reply.AgentID,
		Message:   reply.Message,
		Agent:     agentResponse(reply.Agent),
		CreatedAt: reply.CreatedAt,
		UpdatedAt: reply.UpdatedAt,
	}
}

func customerResponse(customer *domain.Customer) *dto.CustomerResponse {
	if customer == nil {
		return nil
	}
	return &dto.CustomerResponse{
		ID:    customer.ID,
		Name:  customer.Name,
		Email: customer.Email,
		Phone: customer.Phone,
	}
}

func agentResponse(agent *domain.Agent) *dto.AgentResponse {
	if agent == nil {
		return nil
	}
	return &dto.AgentResponse{ID: agent.ID, Name: agent.Name, Email: agent.Email}
}
