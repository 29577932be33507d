package promotion

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// evaluation is everything a calculator needs for one eligible promotion.
type evaluation struct {
	promo *Promotion
	cart  *Cart
	// items are the cart lines the promotion may touch.
	items []CartItem
	// base is the amount cart-level discounts are computed on.
	base decimal.Decimal
}

// application is the raw effect of one promotion before stacking.
type application struct {
	amount       decimal.Decimal
	freeShipping bool
	affected     []AffectedItem
	message      string
}

func calculate(ev *evaluation) application {
	if ev.promo.Discount.Type == DiscountFreeShipping {
		return freeShipping()
	}
	h, ok := scopeHandlers[ev.promo.Scope()]
	if !ok {
		return application{amount: zero}
	}
	app := h.calculate(ev)
	app.amount = floorAtZero(app.amount).Round(2)
	return app
}

func freeShipping() application {
	return application{amount: zero, freeShipping: true, message: "Livraison offerte"}
}

func calcNone(*evaluation) application {
	return application{amount: zero}
}

func calcShipping(*evaluation) application {
	return freeShipping()
}

// calcSubtotal applies the promotion's own discount to the base amount.
func calcSubtotal(ev *evaluation) application {
	return application{
		amount:  applyDiscount(ev.promo.Discount, ev.base),
		message: describe(ev.promo.Name, ev.promo.Discount),
	}
}

func calcCart(ev *evaluation) application {
	ct, _ := ev.promo.Target.(CartTarget)
	if len(ct.Tiers) == 0 {
		return calcSubtotal(ev)
	}

	tier, ok := selectTier(ct.Tiers, ev.cart.Subtotal)
	if !ok {
		return application{amount: zero}
	}
	if tier.Discount.Type == DiscountFreeShipping {
		return freeShipping()
	}
	return application{
		amount:  applyDiscount(tier.Discount, ev.base),
		message: describe(ev.promo.Name, tier.Discount),
	}
}

// selectTier returns the tier with the highest MinAmount not above subtotal.
func selectTier(tiers []Tier, subtotal decimal.Decimal) (Tier, bool) {
	var (
		best  Tier
		found bool
	)
	for _, t := range tiers {
		if t.MinAmount.GreaterThan(subtotal) {
			continue
		}
		if !found || t.MinAmount.GreaterThan(best.MinAmount) {
			best = t
			found = true
		}
	}
	return best, found
}

// lowestTier returns the tier with the smallest MinAmount.
func lowestTier(tiers []Tier) (Tier, bool) {
	if len(tiers) == 0 {
		return Tier{}, false
	}
	low := tiers[0]
	for _, t := range tiers[1:] {
		if t.MinAmount.LessThan(low.MinAmount) {
			low = t
		}
	}
	return low, true
}

func calcBuyXGetY(ev *evaluation) application {
	bt, _ := ev.promo.Target.(BuyXGetYTarget)
	cfg := bt.Config
	if !cfg.Valid() {
		return application{amount: zero}
	}

	sets := totalQuantity(ev.items) / cfg.SetSize()
	if sets == 0 {
		return application{amount: zero}
	}
	free := sets * cfg.GetQuantity

	ordered := make([]CartItem, len(ev.items))
	copy(ordered, ev.items)
	if cfg.ApplyOn == ApplyOnMostExpensive {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].UnitPrice.GreaterThan(ordered[j].UnitPrice)
		})
	} else {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].UnitPrice.LessThan(ordered[j].UnitPrice)
		})
	}

	amount := zero
	var affected []AffectedItem
	for _, item := range ordered {
		if free == 0 {
			break
		}
		qty := min(item.Quantity, free)
		if qty <= 0 {
			continue
		}
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
		amount = amount.Add(line)
		affected = append(affected, AffectedItem{ProductID: item.ProductID, Quantity: qty, Amount: line.Round(2)})
		free -= qty
	}

	return application{
		amount:   amount,
		affected: affected,
		message:  fmt.Sprintf("%d achetés = %d offert(s)", cfg.BuyQuantity, cfg.GetQuantity),
	}
}

func calcItems(ev *evaluation) application {
	items := ev.items
	if len(items) == 0 {
		return application{amount: zero}
	}
	d := ev.promo.Discount
	msg := describe(ev.promo.Name, d)

	switch ev.promo.Strategy {
	case StrategyCheapest, StrategyMostExpensive:
		item := extremal(items, ev.promo.Strategy == StrategyMostExpensive)
		amount := applyDiscount(d, item.LineTotal())
		return application{
			amount:   amount,
			affected: []AffectedItem{{ProductID: item.ProductID, Quantity: item.Quantity, Amount: amount.Round(2)}},
			message:  msg,
		}

	case StrategyProportional:
		amount := applyDiscount(d, subtotalOf(items))
		return application{amount: amount, affected: allocate(amount, items), message: msg}

	default:
		// all and non-promo-only: the caller already filtered promoted lines.
		if d.Type != DiscountPercentage {
			amount := applyDiscount(d, subtotalOf(items))
			return application{amount: amount, affected: allocate(amount, items), message: msg}
		}
		amount := zero
		affected := make([]AffectedItem, 0, len(items))
		for _, item := range items {
			share := applyDiscount(d, item.LineTotal()).Round(2)
			amount = amount.Add(share)
			affected = append(affected, AffectedItem{ProductID: item.ProductID, Quantity: item.Quantity, Amount: share})
		}
		return application{amount: amount, affected: affected, message: msg}
	}
}

// extremal returns the line with the lowest (or highest) unit price. Ties keep
// the first line.
func extremal(items []CartItem, highest bool) CartItem {
	best := items[0]
	for _, item := range items[1:] {
		if highest && item.UnitPrice.GreaterThan(best.UnitPrice) ||
			!highest && item.UnitPrice.LessThan(best.UnitPrice) {
			best = item
		}
	}
	return best
}

// allocate spreads amount over items proportionally to their line totals.
// The last line absorbs rounding so shares always sum to amount.
func allocate(amount decimal.Decimal, items []CartItem) []AffectedItem {
	total := subtotalOf(items)
	out := make([]AffectedItem, len(items))
	rest := amount.Round(2)
	for i, item := range items {
		out[i] = AffectedItem{ProductID: item.ProductID, Quantity: item.Quantity, Amount: zero}
		if !total.IsPositive() {
			continue
		}
		if i == len(items)-1 {
			out[i].Amount = floorAtZero(rest)
			break
		}
		share := amount.Mul(item.LineTotal()).Div(total).Round(2)
		out[i].Amount = share
		rest = rest.Sub(share)
	}
	return out
}

// applyDiscount computes a discount on base, bounded to [0, base].
func applyDiscount(d Discount, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return zero
	}
	var amount decimal.Decimal
	switch d.Type {
	case DiscountPercentage:
		amount = base.Mul(d.Value).Div(hundred)
	case DiscountFixed:
		amount = d.Value
	default:
		return zero
	}
	return floorAtZero(decimal.Min(amount, base))
}

func describe(name string, d Discount) string {
	switch d.Type {
	case DiscountPercentage:
		return fmt.Sprintf("%s : -%s%%", name, d.Value.String())
	case DiscountFixed:
		return fmt.Sprintf("%s : -%s €", name, d.Value.StringFixed(2))
	default:
		return name
	}
}

// subtotalOf returns the sum of line totals.
func subtotalOf(items []CartItem) decimal.Decimal {
	sum := zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// totalQuantity returns the sum of quantities across all items.
func totalQuantity(items []CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
