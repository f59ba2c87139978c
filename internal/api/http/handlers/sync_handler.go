package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/integration-service/internal/api/dto"
	"github.com/spec-kit/integration-service/internal/observability"
	"github.com/spec-kit/integration-service/internal/service"
	apperrors "github.com/spec-kit/integration-service/pkg/util/errorutil"
)

// SyncHandler exposes reply sync and link inspection for admin tooling.
type SyncHandler struct {
	orchestrator *service.Orchestrator
	replySync    *service.ReplySyncEngine
	metrics      *observability.Metrics
}

// NewSyncHandler constructs handler.
func NewSyncHandler(orchestrator *service.Orchestrator, replySync *service.ReplySyncEngine, metrics *observability.Metrics) *SyncHandler {
	return &SyncHandler{orchestrator: orchestrator, replySync: replySync, metrics: metrics}
}

// SyncTicketReplies POST /admin/tickets/:key/sync-replies.
func (h *SyncHandler) SyncTicketReplies(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return apperrors.NewValidationError("ticket key required", nil)
	}

	result := h.replySync.SyncReplies(c.UserContext(), key)
	status := fiber.StatusOK
	if !result.Success {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{"data": result})
}

// SyncAllReplies POST /admin/sync-replies.
func (h *SyncHandler) SyncAllReplies(c *fiber.Ctx) error {
	batch, err := h.replySync.SyncAllLinkedTickets(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": batch})
}

// GetTicket GET /admin/tickets/:key.
func (h *SyncHandler) GetTicket(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return apperrors.NewValidationError("ticket key required", nil)
	}

	ticket, thread, link, err := h.orchestrator.GetTicketWithThread(c.UserContext(), key)
	if err != nil {
		return err
	}
	if ticket == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"key": key})
	}
	return c.JSON(fiber.Map{"data": dto.TicketWithThreadResponse{
		Ticket: dto.FromTicket(ticket),
		Thread: dto.FromThread(thread),
		Link:   dto.FromLink(link),
	}})
}

// GetThreadLinks GET /admin/threads/:id/links.
func (h *SyncHandler) GetThreadLinks(c *fiber.Ctx) error {
	threadID := c.Params("id")
	if threadID == "" {
		return apperrors.NewValidationError("thread id required", nil)
	}

	links, err := h.orchestrator.GetLinksForThread(c.UserContext(), threadID)
	if err != nil {
		return err
	}
	items := make([]*dto.LinkSummary, 0, len(links))
	for i := range links {
		items = append(items, dto.FromLink(&links[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetMetrics GET /admin/metrics.
func (h *SyncHandler) GetMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
