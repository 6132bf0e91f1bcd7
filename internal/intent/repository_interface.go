package intent

import (
	"context"
	"time"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"
)

type Repository interface {
	Create(ctx context.Context, ownerID int, item catalog.Item, targetRef string, autoRenew bool) (*Intent, error)
	GetByID(ctx context.Context, id int) (*Intent, error)
	ListByOwner(ctx context.Context, ownerID int, limit, offset int) ([]Intent, error)
	Resolve(ctx context.Context, correlationToken string, outcome Status, externalPaymentID string) (*Intent, error)
	ExpireStale(ctx context.Context, ttl time.Duration) (int64, error)
}
