package catalog

import (
	"errors"
	"time"
)

type Kind string

const (
	KindCreditPack          Kind = "credit_pack"
	KindBoost               Kind = "boost"
	KindPremiumPlan         Kind = "premium_plan"
	KindContentSubscription Kind = "content_subscription"
	KindPPVUnlock           Kind = "ppv_unlock"
)

var ErrUnknownItem = errors.New("unknown catalog item")

// Item is a purchasable product. PriceCents is what the gateway charges in
// BRL centavos; Credits is what a credit pack delivers; RenewalCredits is
// what one auto-renew period debits from the credit balance.
type Item struct {
	ID             string        `json:"id"`
	Kind           Kind          `json:"kind"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	PriceCents     int64         `json:"price_cents"`
	Credits        int64         `json:"credits,omitempty"`
	Duration       time.Duration `json:"-"`
	DurationHours  int           `json:"duration_hours,omitempty"`
	RenewalCredits int64         `json:"renewal_credits,omitempty"`
	AutoRenewable  bool          `json:"auto_renewable"`
}

func Items() []Item {
	items := []Item{
		{ID: "credits_50", Kind: KindCreditPack, Name: "Pacote 50 créditos", Description: "50 créditos para destaques e renovações", PriceCents: 2900, Credits: 50},
		{ID: "credits_100", Kind: KindCreditPack, Name: "Pacote 100 créditos", Description: "100 créditos para destaques e renovações", PriceCents: 5000, Credits: 100},
		{ID: "credits_250", Kind: KindCreditPack, Name: "Pacote 250 créditos", Description: "250 créditos, melhor custo por crédito", PriceCents: 11000, Credits: 250},

		{ID: "boost_24h", Kind: KindBoost, Name: "Destaque 24h", Description: "Perfil no topo da listagem por 24 horas", PriceCents: 1500, Duration: 24 * time.Hour, RenewalCredits: 15, AutoRenewable: true},
		{ID: "boost_7d", Kind: KindBoost, Name: "Destaque 7 dias", Description: "Perfil no topo da listagem por 7 dias", PriceCents: 7900, Duration: 7 * 24 * time.Hour, RenewalCredits: 79, AutoRenewable: true},

		{ID: "premium_mensal", Kind: KindPremiumPlan, Name: "Premium Mensal", Description: "Selo premium, galeria estendida e prioridade na busca", PriceCents: 9900, Duration: 30 * 24 * time.Hour, RenewalCredits: 99, AutoRenewable: true},

		{ID: "assinatura_mensal", Kind: KindContentSubscription, Name: "Assinatura de conteúdo", Description: "Acesso ao conteúdo exclusivo do perfil por 30 dias", PriceCents: 4900, Duration: 30 * 24 * time.Hour, RenewalCredits: 49, AutoRenewable: true},

		{ID: "ppv_unlock", Kind: KindPPVUnlock, Name: "Desbloqueio avulso", Description: "Acesso a um conteúdo pago individual", PriceCents: 1900, Duration: 365 * 24 * time.Hour},
	}

	for i := range items {
		items[i].DurationHours = int(items[i].Duration / time.Hour)
	}
	return items
}

func Find(id string) (Item, error) {
	for _, it := range Items() {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, ErrUnknownItem
}

func FindByKind(kind Kind, id string) (Item, error) {
	it, err := Find(id)
	if err != nil {
		return Item{}, err
	}
	if it.Kind != kind {
		return Item{}, ErrUnknownItem
	}
	return it, nil
}
