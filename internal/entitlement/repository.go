package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"
)

var (
	ErrEntitlementNotFound = errors.New("entitlement not found")
	ErrNotActive           = errors.New("entitlement is not active")
	ErrNotOwner            = errors.New("entitlement belongs to another user")
)

const entitlementColumns = `id, owner_id, kind, target_ref, status, starts_at, ends_at, auto_renew, renewal_package, renewal_count, grant_key, created_at, updated_at`

type GrantParams struct {
	OwnerID        int
	Kind           catalog.Kind
	TargetRef      string
	Duration       time.Duration
	AutoRenew      bool
	RenewalPackage string
	GrantKey       string
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Grant activates immediately: there is no pending-delivery step once the
// payment is confirmed. The grant key makes a replayed confirmation return
// the already-created row instead of granting twice.
func (r *repository) Grant(ctx context.Context, p GrantParams) (*Entitlement, error) {
	e := &Entitlement{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO entitlements (owner_id, kind, target_ref, status, starts_at, ends_at, auto_renew, renewal_package, grant_key)
		VALUES ($1, $2, $3, 'active', NOW(), NOW() + $4 * INTERVAL '1 second', $5, $6, $7)
		ON CONFLICT (grant_key) DO NOTHING
		RETURNING `+entitlementColumns,
		p.OwnerID, p.Kind, p.TargetRef, int64(p.Duration.Seconds()), p.AutoRenew, p.RenewalPackage, p.GrantKey,
	).StructScan(e)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.db.GetContext(ctx, e,
			`SELECT `+entitlementColumns+` FROM entitlements WHERE grant_key = $1`, p.GrantKey)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Entitlement, error) {
	e := &Entitlement{}
	err := r.db.GetContext(ctx, e,
		`SELECT `+entitlementColumns+` FROM entitlements WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntitlementNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Extend adds to the stored end, never to the current time. Renewing before
// expiry must not eat the remaining paid period, and a renewal landing just
// after the end passed still extends from the original end.
func (r *repository) Extend(ctx context.Context, id int, additional time.Duration) (*Entitlement, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	e := &Entitlement{}
	err = tx.QueryRowxContext(ctx,
		`SELECT `+entitlementColumns+` FROM entitlements WHERE id = $1 FOR UPDATE`, id,
	).StructScan(e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntitlementNotFound
		}
		return nil, err
	}

	if e.Status != StatusActive {
		return e, ErrNotActive
	}

	err = tx.QueryRowxContext(ctx, `
		UPDATE entitlements
		SET ends_at = ends_at + $2 * INTERVAL '1 second',
		    renewal_count = renewal_count + 1,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+entitlementColumns,
		id, int64(additional.Seconds()),
	).StructScan(e)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return e, nil
}

// Cancel flips status and turns auto-renew off going forward. A renewal that
// already committed for the current period stays committed.
func (r *repository) Cancel(ctx context.Context, id, ownerID int) (*Entitlement, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	if e.Status != StatusActive {
		return e, ErrNotActive
	}

	err = r.db.QueryRowxContext(ctx, `
		UPDATE entitlements
		SET status = 'cancelled', auto_renew = FALSE, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING `+entitlementColumns,
		id,
	).StructScan(e)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotActive
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *repository) SetAutoRenew(ctx context.Context, id, ownerID int, enabled bool) (*Entitlement, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.OwnerID != ownerID {
		return nil, ErrNotOwner
	}

	err = r.db.QueryRowxContext(ctx, `
		UPDATE entitlements
		SET auto_renew = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+entitlementColumns,
		id, enabled,
	).StructScan(e)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID int) ([]Entitlement, error) {
	list := []Entitlement{}
	err := r.db.SelectContext(ctx, &list, `
		SELECT `+entitlementColumns+`
		FROM entitlements
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	return list, err
}

func (r *repository) ListExpiringBefore(ctx context.Context, instant time.Time) ([]Entitlement, error) {
	list := []Entitlement{}
	err := r.db.SelectContext(ctx, &list, `
		SELECT `+entitlementColumns+`
		FROM entitlements
		WHERE status = 'active'
		  AND auto_renew = TRUE
		  AND ends_at <= $1
		ORDER BY ends_at ASC
	`, instant)
	return list, err
}

// ExpireDue flips overdue active entitlements and returns them so the caller
// can notify owners and drop the read-side featured flag.
func (r *repository) ExpireDue(ctx context.Context, now time.Time) ([]Entitlement, error) {
	expired := []Entitlement{}
	err := r.db.SelectContext(ctx, &expired, `
		UPDATE entitlements
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND ends_at <= $1
		RETURNING `+entitlementColumns,
		now)
	return expired, err
}

func (r *repository) IsFeatured(ctx context.Context, targetRef string) (bool, error) {
	var featured bool
	err := r.db.GetContext(ctx, &featured, `
		SELECT EXISTS(
			SELECT 1 FROM entitlements
			WHERE target_ref = $1
			  AND kind IN ('boost', 'premium_plan')
			  AND status = 'active'
			  AND ends_at > NOW()
		)
	`, targetRef)
	return featured, err
}
