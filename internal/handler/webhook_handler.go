package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/glowbook/service-reservation/internal/adapter"
	"github.com/glowbook/service-reservation/internal/application"
	"github.com/glowbook/service-reservation/internal/response"
)

// SignatureHeader carries the provider's HMAC over the raw webhook body.
const SignatureHeader = "X-Provider-Signature"

// WebhookHandler receives provider payment notices over HTTP. Providers
// retry until they see 2xx, so the handler is built for redeliveries: verify
// first, then hand off to the idempotent confirmation routine.
type WebhookHandler struct {
	verifier   adapter.EventVerifier
	confirmSvc *application.ConfirmationService
	logger     *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(verifier adapter.EventVerifier, confirmSvc *application.ConfirmationService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, confirmSvc: confirmSvc, logger: logger}
}

// RegisterRoutes registers the webhook route. No auth middleware: the
// signature is the authentication.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/payment", h.HandlePaymentWebhook)
}

// HandlePaymentWebhook handles POST /api/v1/webhooks/payment
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "unreadable request body")
		return
	}

	event, err := h.verifier.Verify(payload, c.GetHeader(SignatureHeader))
	if err != nil {
		h.logger.Warn("rejected unverified webhook delivery",
			zap.String("remote_addr", c.ClientIP()),
			zap.Error(err),
		)
		response.Error(c, err)
		return
	}

	if event.EventType != "checkout.session.completed" {
		h.logger.Debug("ignoring webhook event type", zap.String("type", event.EventType))
		response.Success(c, gin.H{"received": true})
		return
	}

	result, err := h.confirmSvc.ConfirmPayment(c.Request.Context(), application.PaymentConfirmation{
		SessionID:      event.ProviderSessionID,
		BookingIDs:     event.BookingIDs,
		AccountID:      event.AccountID,
		DiscountCode:   event.DiscountCode,
		PreTotalCents:  event.PreTotalCents,
		PostTotalCents: event.PostTotalCents,
	})
	if err != nil {
		// Non-2xx makes the provider redeliver; the confirmation routine
		// tolerates that.
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
