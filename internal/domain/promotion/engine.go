package promotion

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/catalog"
)

const (
	msgInvalidCode   = "Code promo invalide"
	msgNotApplicable = "Ce code ne s'applique pas à votre panier"
)

// Engine evaluates promotion rules against read-only snapshots. It performs
// no I/O and is safe for concurrent use.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an Engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Evaluate runs every valid promotion against the cart and resolves the
// retained set. A zero cart subtotal is derived from the items.
func (e *Engine) Evaluate(cart Cart, promotions []Promotion, cat *catalog.Snapshot) CartResult {
	if cart.Subtotal.IsZero() {
		cart.Subtotal = subtotalOf(cart.Items)
	}
	now := e.now()

	r := newResolver()
	var progress []Progress
	for _, p := range byPriority(promotions) {
		if !p.IsValidAt(now) || !codeMatches(p, cart.PromoCode) {
			continue
		}
		v := assess(p, &cart, cat)
		switch v.kind {
		case nearby:
			progress = append(progress, *v.progress)
		case eligible:
			r.add(p, calculate(v.eval))
		}
	}
	return r.result(progress)
}

// ProductPromotions lists the valid automatic promotions targeting the
// product and picks the one giving the largest discount on its selling
// price. On equal discounts the higher priority promotion wins.
func (e *Engine) ProductPromotions(product *catalog.Product, promotions []Promotion, cat *catalog.Snapshot) ProductPromotions {
	var out ProductPromotions
	if product == nil {
		return out
	}
	now := e.now()
	price := product.SellingPrice()

	for _, p := range byPriority(promotions) {
		if p.Kind != KindAutomatic || !p.IsValidAt(now) {
			continue
		}
		h, ok := scopeHandlers[p.Scope()]
		if !ok || !h.itemScoped || !h.match(p.Target, product, cat) {
			continue
		}
		excludePromoted := p.Conditions.ExcludePromotedProducts || p.Strategy == StrategyNonPromoOnly
		if excludePromoted && product.HasReducedPrice() {
			continue
		}
		out.Promotions = append(out.Promotions, *p)

		amount := applyDiscount(p.Discount, price).Round(2)
		if !amount.IsPositive() {
			continue
		}
		if out.Best == nil || amount.GreaterThan(out.Best.DiscountAmount) {
			out.Best = &ProductDiscount{
				Promotion:      p,
				DiscountAmount: amount,
				FinalPrice:     floorAtZero(price.Sub(amount)).Round(2),
			}
		}
	}
	return out
}

// ApplyCode checks an entered code against the promotion it resolved to and
// computes its effect on the cart. Refusals carry a customer-facing message.
func (e *Engine) ApplyCode(p *Promotion, code string, cart Cart, cat *catalog.Snapshot) CodeResult {
	if p == nil || p.Kind != KindCode || !codeMatches(p, code) || !p.IsValidAt(e.now()) {
		return CodeResult{Message: msgInvalidCode, DiscountAmount: zero}
	}
	if cart.Subtotal.IsZero() {
		cart.Subtotal = subtotalOf(cart.Items)
	}
	cart.PromoCode = code

	c := p.Conditions
	if c.MinAmount.IsPositive() && cart.Subtotal.LessThan(c.MinAmount) {
		return CodeResult{
			Promotion:      p,
			DiscountAmount: zero,
			Message:        fmt.Sprintf("Montant minimum de %s € requis", c.MinAmount.StringFixed(2)),
		}
	}
	if c.MinQuantity > 0 && cart.TotalQuantity() < c.MinQuantity {
		return CodeResult{
			Promotion:      p,
			DiscountAmount: zero,
			Message:        fmt.Sprintf("Minimum de %d article(s) requis", c.MinQuantity),
		}
	}

	v := assess(p, &cart, cat)
	if v.kind != eligible {
		return CodeResult{Promotion: p, DiscountAmount: zero, Message: msgNotApplicable}
	}
	app := calculate(v.eval)
	switch {
	case app.amount.IsPositive():
		return CodeResult{
			Success:        true,
			Promotion:      p,
			DiscountAmount: app.amount,
			FreeShipping:   app.freeShipping,
			Message:        fmt.Sprintf("Code promo appliqué : -%s €", app.amount.StringFixed(2)),
		}
	case app.freeShipping:
		return CodeResult{
			Success:        true,
			Promotion:      p,
			DiscountAmount: zero,
			FreeShipping:   true,
			Message:        "Code promo appliqué : livraison offerte",
		}
	default:
		return CodeResult{Promotion: p, DiscountAmount: zero, Message: msgNotApplicable}
	}
}

// BestForSubscription picks the valid automatic subscription promotion giving
// the largest discount on a plan price. A target without plan ids covers
// every plan.
func (e *Engine) BestForSubscription(planID string, price decimal.Decimal, promotions []Promotion) *ProductDiscount {
	now := e.now()

	var best *ProductDiscount
	for _, p := range byPriority(promotions) {
		st, ok := p.Target.(SubscriptionTarget)
		if !ok || p.Kind != KindAutomatic || !p.IsValidAt(now) {
			continue
		}
		if len(st.PlanIDs) > 0 && !slices.Contains(st.PlanIDs, planID) {
			continue
		}
		amount := applyDiscount(p.Discount, price).Round(2)
		if !amount.IsPositive() {
			continue
		}
		if best == nil || amount.GreaterThan(best.DiscountAmount) {
			best = &ProductDiscount{
				Promotion:      p,
				DiscountAmount: amount,
				FinalPrice:     floorAtZero(price.Sub(amount)).Round(2),
			}
		}
	}
	return best
}
