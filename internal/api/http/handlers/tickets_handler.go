package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/carelog/carelog/internal/api/dto"
	"github.com/carelog/carelog/internal/auth"
	"github.com/carelog/carelog/internal/domain"
	"github.com/carelog/carelog/internal/service"
	apperrors "github.com/carelog/carelog/pkg/util"
)

// TicketsHandler manages the caller-facing ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.OrganizationID == "" || req.LocationID == "" || req.Title == "" || req.Description == "" {
		return apperrors.NewValidationError("organization_id, location_id, title, description required", nil)
	}

	ticket, err := h.service.CreateTicket(c.Context(), principal.Actor(), service.TicketCreateInput{
		OrganizationID:  req.OrganizationID,
		LocationID:      req.LocationID,
		HardwareID:      req.HardwareID,
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		SOPAcknowledged: req.SOPAcknowledged,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	tickets, err := h.service.ListTickets(c.Context(), principal.Actor(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, comments, history, err := h.service.GetTicket(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, comments, history)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	attachments := make([]service.CommentAttachmentInput, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		attachments = append(attachments, service.CommentAttachmentInput{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}
	comment, err := h.service.AddComment(c.Context(), principal.Actor(), c.Params("id"), req.Body, req.IsInternal, attachments)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// RateTicket POST /tickets/:id/rating.
func (h *TicketsHandler) RateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.RateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.RateSatisfaction(c.Context(), principal.Actor(), c.Params("id"), req.Rating)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// GetTiming GET /tickets/:id/timing.
func (h *TicketsHandler) GetTiming(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	timing, err := h.service.Timing(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": timingResponse(timing)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:             ticket.ID,
		Number:         ticket.Number,
		OrganizationID: ticket.OrganizationID,
		LocationID:     ticket.LocationID,
		Title:          ticket.Title,
		Status:         ticket.Status,
		Priority:       ticket.Priority,
		AssigneeID:     ticket.AssigneeID,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, comments []domain.TicketComment, history []domain.TicketEvent) dto.TicketDetailResponse {
	commentItems := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		commentItems = append(commentItems, commentResponse(&comments[i]))
	}
	historyItems := make([]dto.TicketEventResponse, 0, len(history))
	for _, entry := range history {
		historyItems = append(historyItems, dto.TicketEventResponse{
			ID:        entry.ID,
			EventType: entry.EventType,
			ActorID:   entry.ActorID,
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			Comment:   entry.Comment,
			CreatedAt: entry.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		ID:                 ticket.ID,
		Number:             ticket.Number,
		OrganizationID:     ticket.OrganizationID,
		LocationID:         ticket.LocationID,
		HardwareID:         ticket.HardwareID,
		SubmitterID:        ticket.SubmitterID,
		AssigneeID:         ticket.AssigneeID,
		Title:              ticket.Title,
		Description:        ticket.Description,
		Status:             ticket.Status,
		Priority:           ticket.Priority,
		SOPAcknowledged:    ticket.SOPAcknowledged,
		FirstResponseAt:    ticket.FirstResponseAt,
		ResolvedAt:         ticket.ResolvedAt,
		ClosedAt:           ticket.ClosedAt,
		ClosedSummary:      ticket.ClosedSummary,
		SatisfactionRating: ticket.SatisfactionRating,
		CreatedAt:          ticket.CreatedAt,
		UpdatedAt:          ticket.UpdatedAt,
		Comments:           commentItems,
		History:            historyItems,
	}
}

func commentResponse(comment *domain.TicketComment) dto.CommentResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(comment.Attachments))
	for _, att := range comment.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:        att.ID,
			FileName:  att.FileName,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
		})
	}
	return dto.CommentResponse{
		ID:          comment.ID,
		AuthorID:    comment.AuthorID,
		Body:        comment.Body,
		IsInternal:  comment.IsInternal,
		Attachments: attachments,
		CreatedAt:   comment.CreatedAt,
	}
}

func timingResponse(timing *domain.TicketTiming) dto.TimingResponse {
	resp := dto.TimingResponse{TicketID: timing.TicketID}
	if timing.ResponseTime != nil {
		v := int64(timing.ResponseTime.Seconds())
		resp.ResponseSeconds = &v
	}
	if timing.ResolutionTime != nil {
		v := int64(timing.ResolutionTime.Seconds())
		resp.ResolutionSeconds = &v
	}
	if timing.TotalOpenTime != nil {
		v := int64(timing.TotalOpenTime.Seconds())
		resp.TotalOpenSeconds = &v
	}
	return resp
}
