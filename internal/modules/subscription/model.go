// README: Ride-credit subscriptions: tier catalog and the per-rider credit ledger.
package subscription

import (
	"sort"
	"time"

	"campuspool/internal/types"
)

// Tier is a purchasable bundle of rides valid for a number of months.
type Tier struct {
	Code           string      `json:"code"`
	Name           string      `json:"name"`
	Price          types.Money `json:"price"`
	Rides          int         `json:"rides"`
	ValidityMonths int         `json:"validity_months"`
}

var Tiers = []Tier{
	{Code: "quick_hitch", Name: "Quick Hitch", Price: types.NewMoney(299), Rides: 10, ValidityMonths: 1},
	{Code: "mid_terms", Name: "Mid-Terms", Price: types.NewMoney(799), Rides: 30, ValidityMonths: 3},
	{Code: "deans_list", Name: "Dean's List", Price: types.NewMoney(1499), Rides: 100, ValidityMonths: 6},
}

func LookupTier(code string) (Tier, bool) {
	for _, t := range Tiers {
		if t.Code == code {
			return t, true
		}
	}
	return Tier{}, false
}

type Subscription struct {
	ID             types.ID    `json:"id"`
	UserID         types.ID    `json:"user_id"`
	TierCode       string      `json:"tier_code"`
	TierName       string      `json:"tier_name"`
	Price          types.Money `json:"price"`
	RidesTotal     int         `json:"rides_total"`
	RidesRemaining int         `json:"rides_remaining"`
	ValidUntil     time.Time   `json:"valid_until"`
	CreatedAt      time.Time   `json:"created_at"`
}

func (s *Subscription) Clone() *Subscription {
	c := *s
	return &c
}

// Usable reports whether the subscription can pay for a ride accepted at t.
func (s *Subscription) Usable(t time.Time) bool {
	return s.RidesRemaining > 0 && t.Before(s.ValidUntil)
}

// Pick returns the usable subscription that expires first, or nil.
func Pick(subs []*Subscription, t time.Time) *Subscription {
	var usable []*Subscription
	for _, s := range subs {
		if s.Usable(t) {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		return nil
	}
	sort.Slice(usable, func(i, j int) bool {
		if !usable[i].ValidUntil.Equal(usable[j].ValidUntil) {
			return usable[i].ValidUntil.Before(usable[j].ValidUntil)
		}
		return usable[i].ID < usable[j].ID
	})
	return usable[0]
}
