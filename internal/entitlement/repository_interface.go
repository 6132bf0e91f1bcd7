package entitlement

import (
	"context"
	"time"
)

type Repository interface {
	Grant(ctx context.Context, p GrantParams) (*Entitlement, error)
	GetByID(ctx context.Context, id int) (*Entitlement, error)
	Extend(ctx context.Context, id int, additional time.Duration) (*Entitlement, error)
	Cancel(ctx context.Context, id, ownerID int) (*Entitlement, error)
	SetAutoRenew(ctx context.Context, id, ownerID int, enabled bool) (*Entitlement, error)
	ListByOwner(ctx context.Context, ownerID int) ([]Entitlement, error)
	ListExpiringBefore(ctx context.Context, instant time.Time) ([]Entitlement, error)
	ExpireDue(ctx context.Context, now time.Time) ([]Entitlement, error)
	IsFeatured(ctx context.Context, targetRef string) (bool, error)
}
