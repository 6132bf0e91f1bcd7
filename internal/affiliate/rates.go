package affiliate

import "github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"

// Base commission rate in percent per transaction kind.
var baseRates = map[catalog.Kind]int64{
	catalog.KindBoost:               15,
	catalog.KindPremiumPlan:         10,
	catalog.KindContentSubscription: 12,
	catalog.KindPPVUnlock:           12,
	catalog.KindCreditPack:          10,
}

type Tier struct {
	Name       string
	Bonus      int64
	MinRevenue int64
}

// Tiers by cumulative referred revenue, highest first.
var tiers = []Tier{
	{Name: "ouro", Bonus: 5, MinRevenue: 200000},
	{Name: "prata", Bonus: 2, MinRevenue: 50000},
	{Name: "bronze", Bonus: 0, MinRevenue: 0},
}

func BaseRate(kind catalog.Kind) (int64, bool) {
	rate, ok := baseRates[kind]
	return rate, ok
}

func TierFor(revenueCents int64) Tier {
	for _, t := range tiers {
		if revenueCents >= t.MinRevenue {
			return t
		}
	}
	return tiers[len(tiers)-1]
}
