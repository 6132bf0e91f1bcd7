package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	item, err := Find("credits_100")
	require.NoError(t, err)
	assert.Equal(t, KindCreditPack, item.Kind)
	assert.Equal(t, int64(5000), item.PriceCents)
	assert.Equal(t, int64(100), item.Credits)

	_, err = Find("nao_existe")
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestFindByKind(t *testing.T) {
	item, err := FindByKind(KindBoost, "boost_24h")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, item.Duration)
	assert.Equal(t, int64(15), item.RenewalCredits)
	assert.True(t, item.AutoRenewable)

	// right id, wrong kind
	_, err = FindByKind(KindPremiumPlan, "boost_24h")
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestItemsConsistency(t *testing.T) {
	seen := map[string]bool{}
	for _, item := range Items() {
		assert.False(t, seen[item.ID], "duplicate item id %s", item.ID)
		seen[item.ID] = true

		assert.Greater(t, item.PriceCents, int64(0), "item %s must have a price", item.ID)

		switch item.Kind {
		case KindCreditPack:
			assert.Greater(t, item.Credits, int64(0), "credit pack %s must deliver credits", item.ID)
			assert.False(t, item.AutoRenewable)
		default:
			assert.Greater(t, item.Duration, time.Duration(0), "entitlement %s must have a duration", item.ID)
			assert.Equal(t, int(item.Duration/time.Hour), item.DurationHours)
		}

		if item.AutoRenewable {
			assert.Greater(t, item.RenewalCredits, int64(0), "renewable item %s must cost credits to renew", item.ID)
		}
	}
}

func TestPPVUnlockIsNotRenewable(t *testing.T) {
	item, err := Find("ppv_unlock")
	require.NoError(t, err)
	assert.False(t, item.AutoRenewable)
}
