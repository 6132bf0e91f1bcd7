package balance

import "time"

type Category string

const (
	CategoryPurchase      Category = "purchase"
	CategorySpend         Category = "spend"
	CategoryRenewal       Category = "renewal"
	CategoryMissionReward Category = "mission_reward"
	CategoryCommission    Category = "commission"
	CategoryRefund        Category = "refund"
)

// Balance caches the current amount; the source of truth is ledger_entries.
type Balance struct {
	ID             int       `db:"id" json:"id"`
	UserID         int       `db:"user_id" json:"user_id"`
	Amount         int64     `db:"amount" json:"amount"`
	LifetimeEarned int64     `db:"lifetime_earned" json:"lifetime_earned"`
	LifetimeSpent  int64     `db:"lifetime_spent" json:"lifetime_spent"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// LedgerEntry is append-only. BalanceAfter is a snapshot of the cached
// balance at commit time, the same way a bank statement prints it.
type LedgerEntry struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int       `db:"user_id" json:"user_id"`
	Delta          int64     `db:"delta" json:"delta"`
	Category       Category  `db:"category" json:"category"`
	Reason         string    `db:"reason" json:"reason"`
	ExternalRef    *string   `db:"external_ref" json:"external_ref,omitempty"`
	IdempotencyKey string    `db:"idempotency_key" json:"-"`
	BalanceAfter   int64     `db:"balance_after" json:"balance_after"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
