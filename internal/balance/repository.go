package balance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/metrics"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrLedgerDrift         = errors.New("cached balance does not match ledger sum")
	ErrEmptyIdempotencyKey = errors.New("idempotency key is required")
)

type ApplyDeltaParams struct {
	UserID         int
	Delta          int64
	Category       Category
	Reason         string
	ExternalRef    *string
	IdempotencyKey string
}

type ReconcileReport struct {
	UserID       int   `json:"user_id"`
	CachedAmount int64 `json:"cached_amount"`
	LedgerSum    int64 `json:"ledger_sum"`
	Consistent   bool  `json:"consistent"`
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreate(ctx context.Context, userID int) (*Balance, error) {
	b := &Balance{}
	err := r.db.GetContext(ctx, b, `SELECT * FROM balances WHERE user_id = $1`, userID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO balances (user_id)
		 VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		 RETURNING id, user_id, amount, lifetime_earned, lifetime_spent, created_at, updated_at`,
		userID,
	).StructScan(b)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// ApplyDelta mutates the cached balance and appends the ledger entry in one
// transaction. A replay of the same idempotency key returns the entry written
// by the first call and touches nothing.
func (r *repository) ApplyDelta(ctx context.Context, p ApplyDeltaParams) (*LedgerEntry, error) {
	if p.IdempotencyKey == "" {
		return nil, ErrEmptyIdempotencyKey
	}

	if prior, err := r.findByKey(ctx, r.db, p.IdempotencyKey); err != nil {
		return nil, err
	} else if prior != nil {
		return prior, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var b Balance
	err = tx.QueryRowxContext(ctx,
		`SELECT id, user_id, amount, lifetime_earned, lifetime_spent, created_at, updated_at
		 FROM balances
		 WHERE user_id = $1
		 FOR UPDATE`,
		p.UserID,
	).StructScan(&b)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO balances (user_id)
			 VALUES ($1)
			 RETURNING id, user_id, amount, lifetime_earned, lifetime_spent, created_at, updated_at`,
			p.UserID,
		).StructScan(&b)
		if err != nil {
			return nil, err
		}
	}

	newAmount := b.Amount + p.Delta
	if newAmount < 0 {
		return nil, ErrInsufficientBalance
	}

	earned, spent := b.LifetimeEarned, b.LifetimeSpent
	if p.Delta >= 0 {
		earned += p.Delta
	} else {
		spent += -p.Delta
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE balances
		 SET amount = $1, lifetime_earned = $2, lifetime_spent = $3, updated_at = NOW()
		 WHERE id = $4`,
		newAmount, earned, spent, b.ID,
	)
	if err != nil {
		return nil, err
	}

	entry := &LedgerEntry{}
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO ledger_entries (user_id, delta, category, reason, external_ref, idempotency_key, balance_after)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, user_id, delta, category, reason, external_ref, idempotency_key, balance_after, created_at`,
		p.UserID, p.Delta, p.Category, p.Reason, p.ExternalRef, p.IdempotencyKey, newAmount,
	).StructScan(entry)
	if err != nil {
		// Lost the uniqueness race to a concurrent retry: hand back its entry.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			tx.Rollback()
			prior, ferr := r.findByKey(ctx, r.db, p.IdempotencyKey)
			if ferr != nil {
				return nil, ferr
			}
			if prior != nil {
				return prior, nil
			}
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordLedgerEntry(string(p.Category))
	return entry, nil
}

func (r *repository) findByKey(ctx context.Context, q sqlx.QueryerContext, key string) (*LedgerEntry, error) {
	entry := &LedgerEntry{}
	err := sqlx.GetContext(ctx, q, entry,
		`SELECT id, user_id, delta, category, reason, external_ref, idempotency_key, balance_after, created_at
		 FROM ledger_entries
		 WHERE idempotency_key = $1`,
		key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) ListLedger(ctx context.Context, userID int, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	entries := []LedgerEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, delta, category, reason, external_ref, idempotency_key, balance_after, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Reconcile compares the cached amount against the ledger running sum.
// A mismatch is an invariant violation and must reach the operator.
func (r *repository) Reconcile(ctx context.Context, userID int) (*ReconcileReport, error) {
	var cached int64
	err := r.db.GetContext(ctx, &cached, `SELECT amount FROM balances WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		cached = 0
	} else if err != nil {
		return nil, err
	}

	var sum int64
	err = r.db.GetContext(ctx, &sum,
		`SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		UserID:       userID,
		CachedAmount: cached,
		LedgerSum:    sum,
		Consistent:   cached == sum,
	}
	if !report.Consistent {
		return report, fmt.Errorf("user %d: cached=%d ledger=%d: %w", userID, cached, sum, ErrLedgerDrift)
	}
	return report, nil
}
