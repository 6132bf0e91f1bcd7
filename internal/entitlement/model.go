package entitlement

import (
	"time"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Entitlement is an active grant (destaque, premium, assinatura, ppv).
// EndsAt drives the renewal sweep and the read-side featured query.
type Entitlement struct {
	ID             int          `db:"id" json:"id"`
	OwnerID        int          `db:"owner_id" json:"owner_id"`
	Kind           catalog.Kind `db:"kind" json:"kind"`
	TargetRef      string       `db:"target_ref" json:"target_ref"`
	Status         Status       `db:"status" json:"status"`
	StartsAt       time.Time    `db:"starts_at" json:"starts_at"`
	EndsAt         time.Time    `db:"ends_at" json:"ends_at"`
	AutoRenew      bool         `db:"auto_renew" json:"auto_renew"`
	RenewalPackage string       `db:"renewal_package" json:"renewal_package"`
	RenewalCount   int          `db:"renewal_count" json:"renewal_count"`
	GrantKey       string       `db:"grant_key" json:"-"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}
