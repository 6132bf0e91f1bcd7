package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type GatewayStatus string

const (
	GatewayApproved  GatewayStatus = "approved"
	GatewayRejected  GatewayStatus = "rejected"
	GatewayCancelled GatewayStatus = "cancelled"
	GatewayPending   GatewayStatus = "pending"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrPaymentNotFound    = errors.New("payment not found at gateway")
)

// GatewayPayment is the re-fetched payment record. The callback body is only
// a pointer; the status and the echoed correlation token come from here.
type GatewayPayment struct {
	ID               string        `json:"id"`
	Status           GatewayStatus `json:"status"`
	CorrelationToken string        `json:"external_reference"`
	AmountCents      int64         `json:"transaction_amount_cents"`
}

type Gateway interface {
	FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
}

type gatewayClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewGatewayClient(baseURL, token string, timeout time.Duration) Gateway {
	return &gatewayClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *gatewayClient) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", g.baseURL, paymentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch payment %s: %w", paymentID, ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrPaymentNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("gateway returned %d: %w", resp.StatusCode, ErrGatewayUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("gateway returned unexpected status %d", resp.StatusCode)
	}

	var p GatewayPayment
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}

	return &p, nil
}
