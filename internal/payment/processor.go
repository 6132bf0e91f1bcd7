package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/affiliate"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/balance"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/entitlement"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/idempotency"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/intent"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/logger"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/metrics"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/notification"
)

type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeRetryable Outcome = "retryable_error"
	OutcomeFatal     Outcome = "fatal_error"
)

// Result is what a callback delivery gets back. Replays of the same payment
// id return the data of the original execution with Outcome=duplicate.
type Result struct {
	Outcome       Outcome      `json:"outcome"`
	PaymentID     string       `json:"payment_id"`
	IntentID      int          `json:"intent_id,omitempty"`
	Kind          catalog.Kind `json:"kind,omitempty"`
	BalanceAfter  *int64       `json:"balance_after,omitempty"`
	EntitlementID *int         `json:"entitlement_id,omitempty"`
	Detail        string       `json:"detail,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, ownerID int, ntype, title, message string, metadata map[string]string) error
}

type Processor struct {
	gateway      Gateway
	guard        idempotency.Guard
	intents      intent.Repository
	balances     balance.Repository
	entitlements entitlement.Repository
	commissions  affiliate.Service
	notifier     Notifier
}

func NewProcessor(
	gateway Gateway,
	guard idempotency.Guard,
	intents intent.Repository,
	balances balance.Repository,
	entitlements entitlement.Repository,
	commissions affiliate.Service,
	notifier Notifier,
) *Processor {
	return &Processor{
		gateway:      gateway,
		guard:        guard,
		intents:      intents,
		balances:     balances,
		entitlements: entitlements,
		commissions:  commissions,
		notifier:     notifier,
	}
}

// Process runs one payment callback through claim → fetch → resolve → apply.
// Errors before the claim result is stored leave the claim unresolved; the
// gateway's redelivery plus the stale-claim release retries from the fetch
// step at most once per staleness window.
func (p *Processor) Process(ctx context.Context, paymentID string) Result {
	key := "payment:" + paymentID

	claim, err := p.guard.ClaimOnce(ctx, key)
	if err != nil {
		logger.Errorf("Failed to claim payment %s: %v", paymentID, err)
		return p.record(Result{Outcome: OutcomeRetryable, PaymentID: paymentID, Detail: "claim failed"})
	}

	if !claim.First {
		if claim.Resolved {
			var stored Result
			if err := json.Unmarshal(claim.Result, &stored); err == nil {
				stored.Outcome = OutcomeDuplicate
				return p.record(stored)
			}
			return p.record(Result{Outcome: OutcomeDuplicate, PaymentID: paymentID})
		}
		// Unresolved and not yet stale: another delivery is mid-flight.
		return p.record(Result{Outcome: OutcomeRetryable, PaymentID: paymentID, Detail: "processing in flight"})
	}

	gw, err := p.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, ErrGatewayUnavailable) {
			logger.Error("Gateway lookup failed", "payment_id", paymentID, "error", err)
			return p.record(Result{Outcome: OutcomeRetryable, PaymentID: paymentID, Detail: "gateway unavailable"})
		}
		logger.Error("Payment not resolvable at gateway", "payment_id", paymentID, "error", err)
		return p.store(ctx, key, Result{Outcome: OutcomeFatal, PaymentID: paymentID, Detail: err.Error()})
	}

	if gw.Status == GatewayPending {
		return p.record(Result{Outcome: OutcomeRetryable, PaymentID: paymentID, Detail: "payment still pending"})
	}

	if gw.CorrelationToken == "" {
		logger.Error("Callback without correlation token", "payment_id", paymentID)
		return p.store(ctx, key, Result{Outcome: OutcomeFatal, PaymentID: paymentID, Detail: "correlation token missing"})
	}

	outcome := intent.StatusRejected
	if gw.Status == GatewayApproved {
		outcome = intent.StatusConfirmed
	}

	in, err := p.intents.Resolve(ctx, gw.CorrelationToken, outcome, paymentID)
	switch {
	case errors.Is(err, intent.ErrIntentNotFound):
		logger.Error("Correlation token matches no intent", "payment_id", paymentID, "token", gw.CorrelationToken)
		return p.store(ctx, key, Result{Outcome: OutcomeFatal, PaymentID: paymentID, Detail: "correlation invalid"})
	case errors.Is(err, intent.ErrIntentExpired):
		logger.Info("Payment for expired intent dropped", "payment_id", paymentID, "intent_id", in.ID)
		return p.store(ctx, key, Result{Outcome: OutcomeRejected, PaymentID: paymentID, IntentID: in.ID, Detail: "intent expired"})
	case errors.Is(err, intent.ErrIntentResolved):
		// A crash between Resolve and apply leaves the intent confirmed for
		// this payment while the claim is still open. This delivery owns the
		// claim, so it finishes the delivery; both apply paths are idempotent
		// on the claim key.
		if in.Status == intent.StatusConfirmed && in.ExternalPaymentID != nil && *in.ExternalPaymentID == paymentID {
			result, aerr := p.apply(ctx, key, in, paymentID)
			if aerr != nil {
				logger.Errorf("Failed to re-apply confirmed payment %s: %v", paymentID, aerr)
				return p.record(Result{Outcome: OutcomeRetryable, PaymentID: paymentID, IntentID: in.ID, Detail: "apply failed"})
			}
			return p.store(ctx, key, result)
		}
		return p.store(ctx, key, Result{Outcome: OutcomeDuplicate, PaymentID: paymentID, IntentID: in.ID, Kind: in.Kind, Detail: "intent already resolved"})
	case err != nil:
		return p.record(Result{Outcome: OutcomeRetryable, PaymentID: paymentID, Detail: "intent resolution failed"})
	}

	if outcome == intent.StatusRejected {
		p.notify(ctx, in.OwnerID, notification.TypePaymentRejected,
			"Pagamento recusado",
			fmt.Sprintf("O pagamento da sua compra #%d foi recusado pelo meio de pagamento.", in.ID),
			map[string]string{"intent_id": fmt.Sprint(in.ID)})
		return p.store(ctx, key, Result{Outcome: OutcomeRejected, PaymentID: paymentID, IntentID: in.ID, Kind: in.Kind})
	}

	result, err := p.apply(ctx, key, in, paymentID)
	if err != nil {
		// Claim stays unresolved on purpose: the stale-claim protocol grants
		// one re-execution from the fetch step.
		logger.Errorf("Failed to apply confirmed payment %s: %v", paymentID, err)
		return p.record(Result{Outcome: OutcomeRetryable, PaymentID: paymentID, IntentID: in.ID, Detail: "apply failed"})
	}

	return p.store(ctx, key, result)
}

func (p *Processor) apply(ctx context.Context, key string, in *intent.Intent, paymentID string) (Result, error) {
	item, err := catalog.Find(in.ItemID)
	if err != nil {
		return Result{}, fmt.Errorf("intent %d references unknown item %q: %w", in.ID, in.ItemID, err)
	}

	result := Result{Outcome: OutcomeApplied, PaymentID: paymentID, IntentID: in.ID, Kind: in.Kind}

	if in.Kind == catalog.KindCreditPack {
		entry, err := p.balances.ApplyDelta(ctx, balance.ApplyDeltaParams{
			UserID:         in.OwnerID,
			Delta:          item.Credits,
			Category:       balance.CategoryPurchase,
			Reason:         item.Name,
			ExternalRef:    &paymentID,
			IdempotencyKey: key,
		})
		if err != nil {
			return Result{}, err
		}
		result.BalanceAfter = &entry.BalanceAfter

		p.notify(ctx, in.OwnerID, notification.TypeBalanceCredited,
			"Créditos adicionados",
			fmt.Sprintf("%d créditos foram adicionados ao seu saldo.", item.Credits),
			map[string]string{"credits": fmt.Sprint(item.Credits)})
	} else {
		e, err := p.entitlements.Grant(ctx, entitlement.GrantParams{
			OwnerID:        in.OwnerID,
			Kind:           in.Kind,
			TargetRef:      in.TargetRef,
			Duration:       item.Duration,
			AutoRenew:      in.AutoRenew,
			RenewalPackage: item.ID,
			GrantKey:       key,
		})
		if err != nil {
			return Result{}, err
		}
		result.EntitlementID = &e.ID

		p.notify(ctx, in.OwnerID, notification.TypeEntitlementActivated,
			"Ativado: "+item.Name,
			fmt.Sprintf("%s está ativo até %s.", item.Name, e.EndsAt.Format("02/01/2006 15:04")),
			map[string]string{"entitlement_id": fmt.Sprint(e.ID)})
	}

	// Commission is idempotent on the payment id; a failure here is logged
	// and does not unwind an already-applied grant.
	if _, err := p.commissions.Apply(ctx, in.OwnerID, in.Kind, in.PriceCents, paymentID); err != nil {
		logger.Errorf("Commission failed for payment %s: %v", paymentID, err)
	}

	return result, nil
}

func (p *Processor) notify(ctx context.Context, ownerID int, ntype, title, message string, metadata map[string]string) {
	if err := p.notifier.Notify(ctx, ownerID, ntype, title, message, metadata); err != nil {
		logger.Errorf("Failed to queue %s notification for user %d: %v", ntype, ownerID, err)
	}
}

func (p *Processor) store(ctx context.Context, key string, r Result) Result {
	data, err := json.Marshal(r)
	if err == nil {
		if serr := p.guard.StoreResult(ctx, key, data); serr != nil {
			logger.Errorf("Failed to store claim result for %s: %v", key, serr)
		}
	}
	return p.record(r)
}

func (p *Processor) record(r Result) Result {
	metrics.RecordPaymentCallback(string(r.Outcome))
	return r
}
