package affiliate

import (
	"context"
	"fmt"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/balance"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/logger"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/metrics"
)

type Service interface {
	Apply(ctx context.Context, ownerID int, kind catalog.Kind, amountCents int64, txnRef string) (*Commission, error)
}

type service struct {
	repo        Repository
	balanceRepo balance.Repository
}

func NewService(repo Repository, balanceRepo balance.Repository) Service {
	return &service{
		repo:        repo,
		balanceRepo: balanceRepo,
	}
}

// Apply commissions a completed monetized transaction. No referral means no
// commission and no error. The commission row is created at most once per
// transaction and the payout delta is idempotency-keyed on the same ref, so
// a replayed confirmation never double-pays.
func (s *service) Apply(ctx context.Context, ownerID int, kind catalog.Kind, amountCents int64, txnRef string) (*Commission, error) {
	ref, err := s.repo.GetByReferredUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, nil
	}

	base, ok := BaseRate(kind)
	if !ok {
		return nil, nil
	}

	revenue, err := s.repo.AffiliateRevenue(ctx, ref.AffiliateID)
	if err != nil {
		return nil, err
	}
	tier := TierFor(revenue)

	commissionCents := amountCents * (base + tier.Bonus) / 100

	commission, created, err := s.repo.CreateCommission(ctx, Commission{
		AffiliateID:     ref.AffiliateID,
		ReferralID:      ref.ID,
		TxnKind:         kind,
		TxnRef:          txnRef,
		AmountCents:     amountCents,
		RateBase:        base,
		RateBonus:       tier.Bonus,
		CommissionCents: commissionCents,
	})
	if err != nil {
		return nil, err
	}
	if !created && commission.Status == CommissionPaid {
		return commission, nil
	}

	// An approved-but-unpaid row is a payout that never finished; a replay
	// picks it up here and re-drives it from the stored snapshot. The ledger
	// delta is idempotency-keyed and the settle step is guarded on status,
	// so nothing pays or counts twice.
	if credits := commission.CommissionCents / 100; credits > 0 {
		_, err = s.balanceRepo.ApplyDelta(ctx, balance.ApplyDeltaParams{
			UserID:         commission.AffiliateID,
			Delta:          credits,
			Category:       balance.CategoryCommission,
			Reason:         fmt.Sprintf("comissão %s (%d%%+%d%%)", commission.TxnKind, commission.RateBase, commission.RateBonus),
			ExternalRef:    &txnRef,
			IdempotencyKey: "commission:" + txnRef,
		})
		if err != nil {
			return nil, err
		}
	}

	settled, err := s.repo.SettleCommission(ctx, commission.ID, commission.ReferralID, commission.AmountCents, commission.CommissionCents)
	if err != nil {
		return nil, err
	}
	if settled {
		commission.Status = CommissionPaid
		metrics.CommissionsTotal.Inc()
		logger.Info("Commission credited",
			"affiliate_id", commission.AffiliateID,
			"txn_ref", txnRef,
			"commission_cents", commission.CommissionCents,
		)
	}

	return commission, nil
}
