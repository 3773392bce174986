package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/carelog/carelog/internal/api/dto"
	"github.com/carelog/carelog/internal/auth"
	"github.com/carelog/carelog/internal/service"
	apperrors "github.com/carelog/carelog/pkg/util"
)

// StaffTicketsHandler manages staff-only lifecycle endpoints.
type StaffTicketsHandler struct {
	tickets   *service.TicketService
	summaries *service.SummaryService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(tickets *service.TicketService, summaries *service.SummaryService) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: tickets, summaries: summaries}
}

// ChangeStatus POST /staff/tickets/:id/status.
func (h *StaffTicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	ticket, err := h.tickets.ChangeStatus(c.Context(), principal.Actor(), c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Assign POST /staff/tickets/:id/assign.
func (h *StaffTicketsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AssigneeID == "" {
		return apperrors.NewValidationError("assignee_id required", nil)
	}
	ticket, err := h.tickets.Assign(c.Context(), principal.Actor(), c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ChangePriority POST /staff/tickets/:id/priority.
func (h *StaffTicketsHandler) ChangePriority(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ChangePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdatePriority(c.Context(), principal.Actor(), c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// GenerateSummary POST /staff/tickets/:id/summary.
//
// Summaries normally arrive via the background worker; this endpoint
// lets staff trigger generation on demand for a closed ticket.
func (h *StaffTicketsHandler) GenerateSummary(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("user required")
	}
	summary, err := h.summaries.GenerateClosingSummary(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"closed_summary": summary}})
}
