package promotion

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/catalog"
)

type verdictKind int

const (
	// ineligible promotions are dropped silently.
	ineligible verdictKind = iota
	// nearby promotions are not unlocked yet but worth a nudge.
	nearby
	// eligible promotions go on to the calculator.
	eligible
)

// verdict is the single outcome of eligibility evaluation, so exclusion and
// progress reporting share one threshold computation.
type verdict struct {
	kind     verdictKind
	eval     *evaluation
	progress *Progress
}

var half = decimal.NewFromFloat(0.5)

// codeMatches reports whether a promotion takes part in an evaluation for
// the given entered code. Code promotions never take part in automatic scans.
func codeMatches(p *Promotion, code string) bool {
	if p.Kind != KindCode {
		return true
	}
	code = strings.TrimSpace(code)
	return code != "" && strings.EqualFold(code, strings.TrimSpace(p.Code))
}

// assess evaluates a promotion already known to be valid at the evaluation
// instant against a cart.
func assess(p *Promotion, cart *Cart, cat *catalog.Snapshot) verdict {
	h, ok := scopeHandlers[p.Scope()]
	if !ok || !h.cartApplicable {
		return verdict{kind: ineligible}
	}
	if !segmentAllows(p, cart.Customer) {
		return verdict{kind: ineligible}
	}
	if limit := p.Conditions.MaxUsagePerUser; limit > 0 && cart.Customer.Usage[p.ID] >= limit {
		return verdict{kind: ineligible}
	}

	items := eligibleItems(p, h, cart, cat)
	if h.itemScoped && len(items) == 0 {
		return verdict{kind: ineligible}
	}

	base := cart.Subtotal
	if p.Conditions.ExcludePromotedProducts {
		base = subtotalOf(items)
	}

	if v, done := checkThresholds(p, cart); done {
		return v
	}

	switch t := p.Target.(type) {
	case BuyXGetYTarget:
		if !t.Config.Valid() {
			return verdict{kind: ineligible}
		}
		qty, size := totalQuantity(items), t.Config.SetSize()
		if qty < size {
			if qty > 0 {
				return closeTo(p, ProgressBuyXGetY, decimal.NewFromInt(int64(qty)), decimal.NewFromInt(int64(size)))
			}
			return verdict{kind: ineligible}
		}
	case CartTarget:
		if low, ok := lowestTier(t.Tiers); ok && cart.Subtotal.LessThan(low.MinAmount) {
			return gated(p, ProgressAmount, cart.Subtotal, low.MinAmount)
		}
	}

	return verdict{
		kind: eligible,
		eval: &evaluation{promo: p, cart: cart, items: items, base: base},
	}
}

// checkThresholds applies minAmount and minQuantity. done is false when both
// pass. Only a promotion missing exactly one threshold can earn a nudge.
func checkThresholds(p *Promotion, cart *Cart) (v verdict, done bool) {
	c := p.Conditions
	amountShort := c.MinAmount.IsPositive() && cart.Subtotal.LessThan(c.MinAmount)
	qty := cart.TotalQuantity()
	quantityShort := c.MinQuantity > 0 && qty < c.MinQuantity

	switch {
	case amountShort && quantityShort:
		return verdict{kind: ineligible}, true
	case amountShort:
		return gated(p, ProgressAmount, cart.Subtotal, c.MinAmount), true
	case quantityShort:
		return gated(p, ProgressQuantity, decimal.NewFromInt(int64(qty)), decimal.NewFromInt(int64(c.MinQuantity))), true
	}
	return verdict{}, false
}

// gated reports a nudge only when the remaining gap is at most half the target.
func gated(p *Promotion, typ ProgressType, current, target decimal.Decimal) verdict {
	remaining := target.Sub(current)
	if remaining.GreaterThan(target.Mul(half)) {
		return verdict{kind: ineligible}
	}
	return closeTo(p, typ, current, target)
}

func closeTo(p *Promotion, typ ProgressType, current, target decimal.Decimal) verdict {
	return verdict{kind: nearby, progress: newProgress(p, typ, current, target)}
}

func segmentAllows(p *Promotion, c Customer) bool {
	segments := []Segment{p.Conditions.UserSegment}
	if st, ok := p.Target.(UserSegmentTarget); ok {
		segments = append(segments, st.Segment)
	}
	for _, s := range segments {
		if s == SegmentFirstPurchase && c.OrderCount > 0 {
			return false
		}
	}
	return true
}

// eligibleItems selects the cart lines a promotion may touch. Lines whose
// product is unknown are skipped.
func eligibleItems(p *Promotion, h scopeHandler, cart *Cart, cat *catalog.Snapshot) []CartItem {
	excludePromoted := p.Conditions.ExcludePromotedProducts || p.Strategy == StrategyNonPromoOnly

	items := make([]CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			continue
		}
		prod, ok := cat.Product(item.ProductID)
		if !ok {
			if h.itemScoped || excludePromoted || p.Scope() == ScopeBuyXGetY {
				continue
			}
			items = append(items, item)
			continue
		}
		if !h.match(p.Target, prod, cat) {
			continue
		}
		if excludePromoted && prod.HasReducedPrice() {
			continue
		}
		items = append(items, item)
	}
	return items
}
