package intent

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"
)

var (
	ErrIntentNotFound = errors.New("order intent not found")
	ErrIntentExpired  = errors.New("order intent expired")
	ErrIntentResolved = errors.New("order intent already resolved")
)

const intentColumns = `id, owner_id, kind, target_ref, item_id, price_cents, correlation_token, auto_renew, status, external_payment_id, resolved_at, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, ownerID int, item catalog.Item, targetRef string, autoRenew bool) (*Intent, error) {
	token := uuid.NewString()

	in := &Intent{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO order_intents (owner_id, kind, target_ref, item_id, price_cents, correlation_token, auto_renew, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING `+intentColumns,
		ownerID, item.Kind, targetRef, item.ID, item.PriceCents, token, autoRenew && item.AutoRenewable,
	).StructScan(in)
	if err != nil {
		return nil, err
	}

	return in, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Intent, error) {
	in := &Intent{}
	err := r.db.GetContext(ctx, in,
		`SELECT `+intentColumns+` FROM order_intents WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID int, limit, offset int) ([]Intent, error) {
	if limit <= 0 {
		limit = 50
	}

	intents := []Intent{}
	err := r.db.SelectContext(ctx, &intents, `
		SELECT `+intentColumns+`
		FROM order_intents
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}

	return intents, nil
}

// Resolve moves a pending intent to a terminal status exactly once. A second
// call for an already-terminal intent returns the stored row untouched with
// ErrIntentResolved; resolving an expired intent is ErrIntentExpired.
func (r *repository) Resolve(ctx context.Context, correlationToken string, outcome Status, externalPaymentID string) (*Intent, error) {
	if outcome != StatusConfirmed && outcome != StatusRejected {
		return nil, errors.New("resolve outcome must be confirmed or rejected")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	in := &Intent{}
	err = tx.QueryRowxContext(ctx,
		`SELECT `+intentColumns+` FROM order_intents WHERE correlation_token = $1 FOR UPDATE`,
		correlationToken,
	).StructScan(in)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}

	switch in.Status {
	case StatusExpired:
		return in, ErrIntentExpired
	case StatusConfirmed, StatusRejected:
		return in, ErrIntentResolved
	}

	err = tx.QueryRowxContext(ctx, `
		UPDATE order_intents
		SET status = $2, external_payment_id = $3, resolved_at = NOW()
		WHERE id = $1
		RETURNING `+intentColumns,
		in.ID, outcome, externalPaymentID,
	).StructScan(in)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return in, nil
}

func (r *repository) ExpireStale(ctx context.Context, ttl time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE order_intents
		SET status = 'expired', resolved_at = NOW()
		WHERE status = 'pending' AND created_at < NOW() - $1 * INTERVAL '1 second'
	`, int64(ttl.Seconds()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
