package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// AgentTicketsHandler exposes ticket endpoints for authenticated agents.
type AgentTicketsHandler struct {
	service TicketService
}

// NewAgentTicketsHandler builds handler.
func NewAgentTicketsHandler(ticketService TicketService) *AgentTicketsHandler {
	return &AgentTicketsHandler{service: ticketService}
}

// ListTickets GET /tickets.
func (h *AgentTicketsHandler) ListTickets(c *fiber.Ctx) error {
	var query dto.TicketListQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewBadRequest("invalid query")
	}

	page, err := h.service.SearchTickets(c.UserContext(), query.Search, repository.PageRequest{
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return err
	}
	items, meta := ticketPage(page)
	return c.JSON(fiber.Map{"data": items, "meta": meta})
}

// GetTicket GET /tickets/:id.
func (h *AgentTicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.loadTicket(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Reply POST /tickets/:id/reply.
func (h *AgentTicketsHandler) Reply(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if err := apperrors.ValidateStruct(req); err != nil {
		return err
	}

	ticket, err := h.loadTicket(c)
	if err != nil {
		return err
	}

	reply, err := h.service.AddReply(c.UserContext(), ticket, service.ReplyInput{
		Message: req.Message,
		AgentID: agent.ID,
	})
	if err != nil {
		return apperrors.WithMessage(err, "failed to send reply, please try again")
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": replyResponse(reply)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *AgentTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if err := apperrors.ValidateStruct(req); err != nil {
		return err
	}

	ticket, err := h.service.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return mapTicketError(err)
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func (h *AgentTicketsHandler) loadTicket(c *fiber.Ctx) (*domain.Ticket, error) {
	id, err := ticketID(c)
	if err != nil {
		return nil, err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return nil, mapTicketError(err)
	}
	return ticket, nil
}

func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound("ticket", nil)
	}
	return id, nil
}

func mapTicketError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("ticket", nil)
	case errors.Is(err, service.ErrInvalidStatus):
		return apperrors.NewValidationError("validation failed", map[string]any{"status": err.Error()})
	default:
		return err
	}
}
