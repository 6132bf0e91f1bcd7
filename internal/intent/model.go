package intent

import (
	"time"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
)

// Intent is created before the user is redirected to the payment step and
// becomes terminal exactly once. The correlation token is server-generated
// and echoed back by the gateway; it is looked up, never trusted.
type Intent struct {
	ID                int          `db:"id" json:"id"`
	OwnerID           int          `db:"owner_id" json:"owner_id"`
	Kind              catalog.Kind `db:"kind" json:"kind"`
	TargetRef         string       `db:"target_ref" json:"target_ref"`
	ItemID            string       `db:"item_id" json:"item_id"`
	PriceCents        int64        `db:"price_cents" json:"price_cents"`
	CorrelationToken  string       `db:"correlation_token" json:"correlation_token"`
	AutoRenew         bool         `db:"auto_renew" json:"auto_renew"`
	Status            Status       `db:"status" json:"status"`
	ExternalPaymentID *string      `db:"external_payment_id" json:"external_payment_id,omitempty"`
	ResolvedAt        *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
}
