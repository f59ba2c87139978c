package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/integration-service/internal/service"
	apperrors "github.com/spec-kit/integration-service/pkg/util/errorutil"
)

// WebhookHandler receives tracker webhook deliveries.
type WebhookHandler struct {
	orchestrator  *service.Orchestrator
	webhookSecret string
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(orchestrator *service.Orchestrator, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{orchestrator: orchestrator, webhookSecret: webhookSecret}
}

// HandleJiraWebhook POST /webhooks/jira.
func (h *WebhookHandler) HandleJiraWebhook(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return apperrors.NewValidationError("empty webhook body", nil)
	}
	if !h.verifySignature(c, body) {
		return apperrors.NewUnauthorized("webhook signature mismatch")
	}

	result := h.orchestrator.HandleWebhook(c.UserContext(), body)
	status := fiber.StatusOK
	if !result.Success {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(fiber.Map{"data": result})
}

// verifySignature checks the HMAC-SHA256 of the raw body against the
// X-Hub-Signature header. Verification is skipped when no secret is
// configured.
func (h *WebhookHandler) verifySignature(c *fiber.Ctx, body []byte) bool {
	if h.webhookSecret == "" {
		return true
	}
	header := c.Get("X-Hub-Signature")
	header = strings.TrimPrefix(header, "sha256=")
	if header == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
