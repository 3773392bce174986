package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/carelog/carelog/internal/api/dto"
	"github.com/carelog/carelog/internal/mailer"
	apperrors "github.com/carelog/carelog/pkg/util"
)

// WebhooksHandler receives delivery events from the e-mail provider.
// Events are signed; anything that fails verification is rejected
// before the payload is looked at.
type WebhooksHandler struct {
	signingKey string
	logger     *zap.Logger
}

// NewWebhooksHandler constructs handler.
func NewWebhooksHandler(signingKey string, logger *zap.Logger) *WebhooksHandler {
	return &WebhooksHandler{signingKey: signingKey, logger: logger}
}

// EmailEvent POST /webhooks/email.
func (h *WebhooksHandler) EmailEvent(c *fiber.Ctx) error {
	var req dto.EmailWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	sig := mailer.WebhookSignature{
		Timestamp: req.Timestamp,
		Token:     req.Token,
		Signature: req.Signature,
	}
	if !mailer.VerifyWebhookSignature(h.signingKey, sig, time.Now()) {
		h.logger.Warn("rejected email webhook", zap.String("recipient", req.Recipient))
		return apperrors.NewUnauthorized("invalid webhook signature")
	}

	// Delivery events are currently informational only.
	h.logger.Info("email delivery event",
		zap.String("event", req.Event),
		zap.String("recipient", req.Recipient),
		zap.String("message_id", req.MessageID))
	return c.JSON(fiber.Map{"data": fiber.Map{"received": true}})
}
