package renewal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/balance"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/entitlement"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/idempotency"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/intent"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/logger"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/metrics"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/notification"
)

type Notifier interface {
	Notify(ctx context.Context, ownerID int, ntype, title, message string, metadata map[string]string) error
}

// attemptResult is what gets stored under the per-period claim so a replay
// of the same (entitlement, period end) is terminal either way.
type attemptResult struct {
	Result        string    `json:"result"` // renewed | insufficient_balance | bad_package
	EntitlementID int       `json:"entitlement_id"`
	PeriodEnd     time.Time `json:"period_end"`
	NewEnd        time.Time `json:"new_end,omitempty"`
}

type Scheduler struct {
	entitlements entitlement.Repository
	balances     balance.Repository
	intents      intent.Repository
	guard        idempotency.Guard
	notifier     Notifier

	tick      time.Duration
	lookahead time.Duration
	intentTTL time.Duration

	mu sync.Mutex // single-flight across ticks
}

func NewScheduler(
	entitlements entitlement.Repository,
	balances balance.Repository,
	intents intent.Repository,
	guard idempotency.Guard,
	notifier Notifier,
	tick, lookahead, intentTTL time.Duration,
) *Scheduler {
	return &Scheduler{
		entitlements: entitlements,
		balances:     balances,
		intents:      intents,
		guard:        guard,
		notifier:     notifier,
		tick:         tick,
		lookahead:    lookahead,
		intentTTL:    intentTTL,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	logger.Infof("Renewal scheduler started (tick %s, lookahead %s)", s.tick, s.lookahead)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.Sweep(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			logger.Info("Renewal scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx, time.Now())
		}
	}
}

// Sweep runs one full maintenance pass: expire stale intents, renew
// entitlements inside the lookahead window, flip overdue ones to expired.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) {
	if !s.mu.TryLock() {
		logger.Debug("Sweep skipped, previous run still in progress")
		return
	}
	defer s.mu.Unlock()

	if n, err := s.intents.ExpireStale(ctx, s.intentTTL); err != nil {
		logger.Errorf("Failed to expire stale intents: %v", err)
	} else if n > 0 {
		logger.Info("Stale order intents expired", "count", n)
	}

	due, err := s.entitlements.ListExpiringBefore(ctx, now.Add(s.lookahead))
	if err != nil {
		logger.Errorf("Failed to list expiring entitlements: %v", err)
	} else {
		for _, e := range due {
			s.renewOne(ctx, e)
		}
	}

	expired, err := s.entitlements.ExpireDue(ctx, now)
	if err != nil {
		logger.Errorf("Failed to expire due entitlements: %v", err)
		return
	}
	for _, e := range expired {
		metrics.EntitlementsExpiredTotal.Inc()
		s.notify(ctx, e.OwnerID, notification.TypeEntitlementExpired,
			"Destaque encerrado",
			fmt.Sprintf("Seu %s expirou. Renove para voltar ao topo da listagem.", e.Kind),
			map[string]string{"entitlement_id": fmt.Sprint(e.ID)})
	}
	if len(expired) > 0 {
		logger.Info("Entitlements expired", "count", len(expired))
	}
}

// renewOne attempts exactly one renewal for the (entitlement, current end)
// period. A failed attempt is terminal for that period; the next attempt only
// exists once a fresh grant or renewal moves the end forward.
func (s *Scheduler) renewOne(ctx context.Context, e entitlement.Entitlement) {
	key := fmt.Sprintf("renewal:%d:%d", e.ID, e.EndsAt.Unix())

	claim, err := s.guard.ClaimOnce(ctx, key)
	if err != nil {
		logger.Errorf("Failed to claim renewal %s: %v", key, err)
		return
	}
	if !claim.First {
		metrics.RecordRenewal("duplicate")
		return
	}

	item, err := catalog.Find(e.RenewalPackage)
	if err != nil {
		logger.Error("Entitlement references unknown renewal package",
			"entitlement_id", e.ID, "package", e.RenewalPackage)
		s.storeResult(ctx, key, attemptResult{Result: "bad_package", EntitlementID: e.ID, PeriodEnd: e.EndsAt})
		metrics.RecordRenewal("bad_package")
		return
	}

	_, err = s.balances.ApplyDelta(ctx, balance.ApplyDeltaParams{
		UserID:         e.OwnerID,
		Delta:          -item.RenewalCredits,
		Category:       balance.CategoryRenewal,
		Reason:         fmt.Sprintf("renovação %s", item.Name),
		IdempotencyKey: key,
	})
	if err != nil {
		if errors.Is(err, balance.ErrInsufficientBalance) {
			s.storeResult(ctx, key, attemptResult{Result: "insufficient_balance", EntitlementID: e.ID, PeriodEnd: e.EndsAt})
			metrics.RecordRenewal("insufficient_balance")
			s.notify(ctx, e.OwnerID, notification.TypeRenewalFailed,
				"Renovação não realizada",
				fmt.Sprintf("Saldo insuficiente para renovar %s (%d créditos). O destaque expira em %s.",
					item.Name, item.RenewalCredits, e.EndsAt.Format("02/01/2006 15:04")),
				map[string]string{"entitlement_id": fmt.Sprint(e.ID)})
			return
		}
		// Unresolved claim: the stale-claim release retries this period once
		// on a later tick, and the debit key makes the retry a no-op replay.
		logger.Errorf("Renewal debit failed for entitlement %d: %v", e.ID, err)
		metrics.RecordRenewal("error")
		return
	}

	extended, err := s.entitlements.Extend(ctx, e.ID, item.Duration)
	if err != nil {
		logger.Errorf("Renewal extend failed for entitlement %d: %v", e.ID, err)
		metrics.RecordRenewal("error")
		return
	}

	s.storeResult(ctx, key, attemptResult{
		Result:        "renewed",
		EntitlementID: e.ID,
		PeriodEnd:     e.EndsAt,
		NewEnd:        extended.EndsAt,
	})
	metrics.RecordRenewal("renewed")

	logger.Info("Entitlement renewed",
		"entitlement_id", e.ID,
		"owner_id", e.OwnerID,
		"new_end", extended.EndsAt.Format(time.RFC3339),
	)
	s.notify(ctx, e.OwnerID, notification.TypeRenewalSuccess,
		"Renovado: "+item.Name,
		fmt.Sprintf("%s foi renovado até %s (%d créditos).",
			item.Name, extended.EndsAt.Format("02/01/2006 15:04"), item.RenewalCredits),
		map[string]string{"entitlement_id": fmt.Sprint(e.ID)})
}

func (s *Scheduler) storeResult(ctx context.Context, key string, r attemptResult) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := s.guard.StoreResult(ctx, key, data); err != nil {
		logger.Errorf("Failed to store renewal result for %s: %v", key, err)
	}
}

func (s *Scheduler) notify(ctx context.Context, ownerID int, ntype, title, message string, metadata map[string]string) {
	if err := s.notifier.Notify(ctx, ownerID, ntype, title, message, metadata); err != nil {
		logger.Errorf("Failed to queue %s notification for user %d: %v", ntype, ownerID, err)
	}
}
