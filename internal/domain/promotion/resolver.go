package promotion

import (
	"sort"
)

// byPriority returns the promotions sorted by descending priority. Equal
// priorities keep their input order.
func byPriority(promotions []Promotion) []*Promotion {
	out := make([]*Promotion, len(promotions))
	for i := range promotions {
		out[i] = &promotions[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// resolver folds computed promotions into a CartResult. At most one
// non-stackable promotion is retained: a later one replaces it only when its
// discount is strictly greater.
type resolver struct {
	applied      []AppliedPromotion
	exclusive    int
	freeShipping bool
}

func newResolver() *resolver {
	return &resolver{exclusive: -1}
}

func (r *resolver) add(p *Promotion, app application) {
	if app.freeShipping {
		r.freeShipping = true
	}
	if !app.amount.IsPositive() {
		if app.freeShipping {
			r.applied = append(r.applied, toApplied(p, app))
		}
		return
	}

	if p.Stackable {
		r.applied = append(r.applied, toApplied(p, app))
		return
	}
	if r.exclusive < 0 {
		r.exclusive = len(r.applied)
		r.applied = append(r.applied, toApplied(p, app))
		return
	}
	if app.amount.GreaterThan(r.applied[r.exclusive].DiscountAmount) {
		r.applied = append(r.applied[:r.exclusive], r.applied[r.exclusive+1:]...)
		r.exclusive = len(r.applied)
		r.applied = append(r.applied, toApplied(p, app))
	}
}

func (r *resolver) result(progress []Progress) CartResult {
	total := zero
	for _, a := range r.applied {
		total = total.Add(a.DiscountAmount)
	}
	return CartResult{
		Applied:       r.applied,
		Progress:      progress,
		TotalDiscount: floorAtZero(total).Round(2),
		FreeShipping:  r.freeShipping,
	}
}

func toApplied(p *Promotion, app application) AppliedPromotion {
	return AppliedPromotion{
		Promotion:      p,
		DiscountAmount: app.amount,
		FreeShipping:   app.freeShipping,
		AffectedItems:  app.affected,
		Message:        app.message,
	}
}
