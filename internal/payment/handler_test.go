package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/idempotency"
)

func webhookRequest(t *testing.T, h *Handler, body interface{}) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhooks/payment", h.Webhook)

	data, err := json.Marshal(body)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	p, _ := newTestProcessor()
	h := NewHandler(p)

	w := webhookRequest(t, h, WebhookRequest{Type: "plan", ExternalPaymentID: "mp_1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}

func TestWebhookRequiresPaymentID(t *testing.T) {
	p, _ := newTestProcessor()
	h := NewHandler(p)

	w := webhookRequest(t, h, WebhookRequest{Type: "payment"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// Retryable outcomes answer non-2xx so the gateway redelivers.
func TestWebhookRetryableAnswersBadGateway(t *testing.T) {
	p, m := newTestProcessor()
	h := NewHandler(p)

	m.guard.On("ClaimOnce", mock.Anything, "payment:mp_1").
		Return(&idempotency.Claim{Key: "payment:mp_1", First: true}, nil)
	m.gateway.On("FetchPayment", mock.Anything, "mp_1").Return(nil, ErrGatewayUnavailable)

	w := webhookRequest(t, h, WebhookRequest{Type: "payment", ExternalPaymentID: "mp_1"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

// Fatal outcomes are acknowledged: redelivery cannot fix a poisoned callback.
func TestWebhookFatalIsAcknowledged(t *testing.T) {
	p, m := newTestProcessor()
	h := NewHandler(p)

	m.guard.On("ClaimOnce", mock.Anything, "payment:mp_1").
		Return(&idempotency.Claim{Key: "payment:mp_1", First: true}, nil)
	m.gateway.On("FetchPayment", mock.Anything, "mp_1").Return(nil, ErrPaymentNotFound)
	m.guard.On("StoreResult", mock.Anything, "payment:mp_1", mock.Anything).Return(nil)

	w := webhookRequest(t, h, WebhookRequest{Type: "payment", ExternalPaymentID: "mp_1"})
	assert.Equal(t, http.StatusOK, w.Code)

	var result Result
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, OutcomeFatal, result.Outcome)
}
