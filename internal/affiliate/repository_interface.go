package affiliate

import "context"

type Repository interface {
	Attribute(ctx context.Context, affiliateID, referredUserID int) (*Referral, error)
	GetByReferredUser(ctx context.Context, referredUserID int) (*Referral, error)
	AffiliateRevenue(ctx context.Context, affiliateID int) (int64, error)
	CreateCommission(ctx context.Context, c Commission) (*Commission, bool, error)
	SettleCommission(ctx context.Context, commissionID int64, referralID int, amountCents, commissionCents int64) (bool, error)
	ListCommissions(ctx context.Context, affiliateID int, limit, offset int) ([]Commission, error)
	GetSummary(ctx context.Context, affiliateID int) (*Summary, error)
}
