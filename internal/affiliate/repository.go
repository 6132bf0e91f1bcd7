package affiliate

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

const referralColumns = `id, affiliate_id, referred_user_id, tx_count, revenue_cents, commission_cents, created_at, updated_at`
const commissionColumns = `id, affiliate_id, referral_id, txn_kind, txn_ref, amount_cents, rate_base, rate_bonus, commission_cents, status, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Attribute records the referral relationship once. A repeated attribution
// for the same referred user keeps the original affiliate.
func (r *repository) Attribute(ctx context.Context, affiliateID, referredUserID int) (*Referral, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO affiliate_referrals (affiliate_id, referred_user_id)
		VALUES ($1, $2)
		ON CONFLICT (referred_user_id) DO NOTHING
	`, affiliateID, referredUserID)
	if err != nil {
		return nil, err
	}

	return r.GetByReferredUser(ctx, referredUserID)
}

func (r *repository) GetByReferredUser(ctx context.Context, referredUserID int) (*Referral, error) {
	ref := &Referral{}
	err := r.db.GetContext(ctx, ref,
		`SELECT `+referralColumns+` FROM affiliate_referrals WHERE referred_user_id = $1`,
		referredUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (r *repository) AffiliateRevenue(ctx context.Context, affiliateID int) (int64, error) {
	var revenue int64
	err := r.db.GetContext(ctx, &revenue,
		`SELECT COALESCE(SUM(revenue_cents), 0) FROM affiliate_referrals WHERE affiliate_id = $1`,
		affiliateID)
	return revenue, err
}

// CreateCommission inserts at most one row per originating transaction.
// Returns (row, false) when the transaction was already commissioned.
func (r *repository) CreateCommission(ctx context.Context, c Commission) (*Commission, bool, error) {
	created := &Commission{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO commissions (affiliate_id, referral_id, txn_kind, txn_ref, amount_cents, rate_base, rate_bonus, commission_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'approved')
		ON CONFLICT (txn_ref) DO NOTHING
		RETURNING `+commissionColumns,
		c.AffiliateID, c.ReferralID, c.TxnKind, c.TxnRef, c.AmountCents, c.RateBase, c.RateBonus, c.CommissionCents,
	).StructScan(created)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	existing := &Commission{}
	err = r.db.GetContext(ctx, existing,
		`SELECT `+commissionColumns+` FROM commissions WHERE txn_ref = $1`, c.TxnRef)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// SettleCommission flips the row to paid and bumps the referral counters in
// one transaction. The status guard makes the counters move exactly once per
// commission, however many times a confirmation is replayed.
func (r *repository) SettleCommission(ctx context.Context, commissionID int64, referralID int, amountCents, commissionCents int64) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE commissions SET status = 'paid' WHERE id = $1 AND status = 'approved'`,
		commissionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE affiliate_referrals
		SET tx_count = tx_count + 1,
		    revenue_cents = revenue_cents + $2,
		    commission_cents = commission_cents + $3,
		    updated_at = NOW()
		WHERE id = $1
	`, referralID, amountCents, commissionCents)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) ListCommissions(ctx context.Context, affiliateID int, limit, offset int) ([]Commission, error) {
	if limit <= 0 {
		limit = 50
	}

	list := []Commission{}
	err := r.db.SelectContext(ctx, &list, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE affiliate_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, affiliateID, limit, offset)
	return list, err
}

func (r *repository) GetSummary(ctx context.Context, affiliateID int) (*Summary, error) {
	s := &Summary{AffiliateID: affiliateID}
	err := r.db.QueryRowxContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(revenue_cents), 0), COALESCE(SUM(commission_cents), 0)
		FROM affiliate_referrals
		WHERE affiliate_id = $1
	`, affiliateID).Scan(&s.ReferralCount, &s.TotalRevenueCents, &s.TotalCommissionCents)
	if err != nil {
		return nil, err
	}

	tier := TierFor(s.TotalRevenueCents)
	s.Tier = tier.Name
	s.TierBonus = tier.Bonus
	return s, nil
}
