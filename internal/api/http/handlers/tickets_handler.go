package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketsHandler manages guest ticket endpoints.
type TicketsHandler struct {
	service TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if err := apperrors.ValidateStruct(req); err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Summary:     req.Summary,
		Description: req.Description,
	})
	if err != nil {
		return apperrors.WithMessage(err, "failed to create ticket, please try again")
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreateTicketResponse{
		Message:         "Ticket created successfully. Your reference number is " + ticket.ReferenceNumber,
		ReferenceNumber: ticket.ReferenceNumber,
	}})
}

// CheckStatus GET /tickets/status/check.
func (h *TicketsHandler) CheckStatus(c *fiber.Ctx) error {
	var query dto.StatusCheckQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewBadRequest("invalid query")
	}
	if err := apperrors.ValidateStruct(query); err != nil {
		return err
	}

	ticket, err := h.service.GetTicketByReference(c.UserContext(), query.ReferenceNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewDomainError("NOT_FOUND", "invalid reference number", http.StatusNotFound, nil)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}
