package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/domain/models"
	service "github.com/mamadbah2/guardops/internal/service/whatsapp"
	client "github.com/mamadbah2/guardops/pkg/clients/whatsapp"
)

const businessAccountObject = "whatsapp_business_account"

// WebhookHandler serves the WhatsApp supervisor channel and manual notifications.
type WebhookHandler struct {
	svc    service.MessagingService
	logger *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter.
func NewWebhookHandler(svc service.MessagingService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, logger: logger}
}

// Verify responds to Meta's webhook verification challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	resp, err := h.svc.VerifyWebhookToken(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}

	c.String(http.StatusOK, resp)
}

// Receive handles supervisor commands. Processing failures are logged and
// still acknowledged so Meta does not redeliver and trigger duplicate replies.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	if payload.Object != "" && payload.Object != businessAccountObject {
		h.logger.Debug("ignoring webhook object", zap.String("object", payload.Object))
		c.Status(http.StatusOK)
		return
	}

	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("failed processing webhook", zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// SendMessage pushes a manual text message, e.g. a shift reminder.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	err := h.svc.SendOutbound(c.Request.Context(), req)
	var apiErr *client.APIError
	switch {
	case err == nil:
		c.Status(http.StatusAccepted)
	case errors.Is(err, client.ErrEmptyRecipient):
		badRequest(c, h.logger, err)
	case errors.As(err, &apiErr):
		h.logger.Error("whatsapp rejected message", zap.Int("status", apiErr.Status), zap.Int("code", apiErr.Code), zap.String("fbtrace_id", apiErr.FBTraceID))
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message})
	default:
		h.logger.Error("failed sending outbound", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
	}
}
