package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/logger"
)

type Handler struct {
	processor *Processor
}

func NewHandler(processor *Processor) *Handler {
	return &Handler{processor: processor}
}

// WebhookRequest is the gateway callback. The body is a pointer, not a source
// of truth: the processor re-fetches the payment by id.
type WebhookRequest struct {
	Type              string `json:"type" binding:"required"`
	ExternalPaymentID string `json:"externalPaymentId"`
}

// Webhook godoc
// @Summary      Payment gateway callback
// @Description  Accepts at-least-once deliveries. Non-2xx responses make the gateway redeliver.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request  body      WebhookRequest  true  "Callback payload"
// @Success      200      {object}  Result
// @Failure      400      {object}  gin.H
// @Failure      502      {object}  Result
// @Router       /webhooks/payment [post]
func (h *Handler) Webhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Type != "payment" {
		// Other event types are acknowledged and ignored.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if req.ExternalPaymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "externalPaymentId is required"})
		return
	}

	result := h.processor.Process(c.Request.Context(), req.ExternalPaymentID)

	switch result.Outcome {
	case OutcomeRetryable:
		// Non-2xx so the gateway redelivers.
		c.JSON(http.StatusBadGateway, result)
	case OutcomeFatal:
		// Acknowledged: redelivering a poisoned callback will not fix it.
		// The operator is alerted through logs and metrics.
		logger.Error("Fatal payment callback", "payment_id", result.PaymentID, "detail", result.Detail)
		c.JSON(http.StatusOK, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}
