package balance

import "context"

type Repository interface {
	GetOrCreate(ctx context.Context, userID int) (*Balance, error)
	ApplyDelta(ctx context.Context, p ApplyDeltaParams) (*LedgerEntry, error)
	ListLedger(ctx context.Context, userID int, limit, offset int) ([]LedgerEntry, error)
	Reconcile(ctx context.Context, userID int) (*ReconcileReport, error)
}
