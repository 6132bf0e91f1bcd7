// Package idempotency deduplicates side-effecting operations behind a
// uniqueness constraint. The first caller to claim a key executes and stores
// its result; replays get the stored result back without re-executing.
package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrClaimInFlight = errors.New("claim held by an unfinished attempt")

// Claim is the outcome of ClaimOnce.
//
// First=true means the caller won the key and must finish with StoreResult.
// First=false with Resolved=true carries the stored result of the original
// execution. First=false with Resolved=false means an earlier claimant is
// still (or died) mid-flight and the claim is not yet stale.
type Claim struct {
	Key      string
	First    bool
	Resolved bool
	Result   []byte
}

type claimRow struct {
	Key        string     `db:"key"`
	ClaimedAt  time.Time  `db:"claimed_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
	Result     []byte     `db:"result"`
}

type Guard interface {
	ClaimOnce(ctx context.Context, key string) (*Claim, error)
	StoreResult(ctx context.Context, key string, result []byte) error
}

type guard struct {
	db         *sqlx.DB
	staleAfter time.Duration
}

func NewGuard(db *sqlx.DB, staleAfter time.Duration) Guard {
	return &guard{db: db, staleAfter: staleAfter}
}

// ClaimOnce races on the primary key insert: exactly one concurrent caller
// gets First=true. A claim whose owner died before StoreResult becomes
// reclaimable after staleAfter; the compare-and-swap on claimed_at makes the
// re-execution window exactly one attempt wide.
func (g *guard) ClaimOnce(ctx context.Context, key string) (*Claim, error) {
	res, err := g.db.ExecContext(ctx,
		`INSERT INTO processing_claims (key, claimed_at)
		 VALUES ($1, NOW())
		 ON CONFLICT (key) DO NOTHING`,
		key,
	)
	if err != nil {
		return nil, err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if inserted == 1 {
		return &Claim{Key: key, First: true}, nil
	}

	var row claimRow
	err = g.db.GetContext(ctx, &row,
		`SELECT key, claimed_at, resolved_at, result FROM processing_claims WHERE key = $1`,
		key,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Row vanished between insert and select; treat as in-flight and
			// let the caller's redelivery sort it out.
			return &Claim{Key: key}, nil
		}
		return nil, err
	}

	if row.ResolvedAt != nil {
		return &Claim{Key: key, Resolved: true, Result: row.Result}, nil
	}

	if time.Since(row.ClaimedAt) >= g.staleAfter {
		cas, err := g.db.ExecContext(ctx,
			`UPDATE processing_claims
			 SET claimed_at = NOW()
			 WHERE key = $1 AND claimed_at = $2 AND resolved_at IS NULL`,
			key, row.ClaimedAt,
		)
		if err != nil {
			return nil, err
		}
		if n, err := cas.RowsAffected(); err == nil && n == 1 {
			return &Claim{Key: key, First: true}, nil
		}
	}

	return &Claim{Key: key}, nil
}

func (g *guard) StoreResult(ctx context.Context, key string, result []byte) error {
	_, err := g.db.ExecContext(ctx,
		`UPDATE processing_claims
		 SET resolved_at = NOW(), result = $2
		 WHERE key = $1`,
		key, result,
	)
	return err
}
