package affiliate

import (
	"time"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"
)

type CommissionStatus string

const (
	CommissionApproved CommissionStatus = "approved"
	CommissionPaid     CommissionStatus = "paid"
)

// Referral is created once per referred user on first attribution and keeps
// cumulative counters across every commissioned transaction afterwards.
type Referral struct {
	ID              int       `db:"id" json:"id"`
	AffiliateID     int       `db:"affiliate_id" json:"affiliate_id"`
	ReferredUserID  int       `db:"referred_user_id" json:"referred_user_id"`
	TxCount         int       `db:"tx_count" json:"tx_count"`
	RevenueCents    int64     `db:"revenue_cents" json:"revenue_cents"`
	CommissionCents int64     `db:"commission_cents" json:"commission_cents"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Commission snapshots the applied rate at creation time; a later rate change
// never rewrites an existing row.
type Commission struct {
	ID              int64            `db:"id" json:"id"`
	AffiliateID     int              `db:"affiliate_id" json:"affiliate_id"`
	ReferralID      int              `db:"referral_id" json:"referral_id"`
	TxnKind         catalog.Kind     `db:"txn_kind" json:"txn_kind"`
	TxnRef          string           `db:"txn_ref" json:"txn_ref"`
	AmountCents     int64            `db:"amount_cents" json:"amount_cents"`
	RateBase        int64            `db:"rate_base" json:"rate_base"`
	RateBonus       int64            `db:"rate_bonus" json:"rate_bonus"`
	CommissionCents int64            `db:"commission_cents" json:"commission_cents"`
	Status          CommissionStatus `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

type Summary struct {
	AffiliateID          int    `json:"affiliate_id"`
	Tier                 string `json:"tier"`
	TierBonus            int64  `json:"tier_bonus"`
	ReferralCount        int    `json:"referral_count"`
	TotalRevenueCents    int64  `json:"total_revenue_cents"`
	TotalCommissionCents int64  `json:"total_commission_cents"`
}
