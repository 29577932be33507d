package promotion

import (
	"slices"

	"github.com/xenking/promo-engine/internal/domain/catalog"
)

// scopeHandler pairs the product matcher of a scope with its calculator.
type scopeHandler struct {
	// itemScoped scopes discount selected cart lines and need at least one.
	itemScoped bool
	// cartApplicable is false for scopes never evaluated against a cart.
	cartApplicable bool

	match     func(t Target, p *catalog.Product, cat *catalog.Snapshot) bool
	calculate func(ev *evaluation) application
}

var scopeHandlers map[Scope]scopeHandler

func init() {
	itemScoped := func(match func(Target, *catalog.Product, *catalog.Snapshot) bool) scopeHandler {
		return scopeHandler{itemScoped: true, cartApplicable: true, match: match, calculate: calcItems}
	}

	scopeHandlers = map[Scope]scopeHandler{
		ScopeProduct:     itemScoped(matchProduct),
		ScopeCategory:    itemScoped(matchCategory),
		ScopeSubCategory: itemScoped(matchSubCategory),
		ScopeFormat:      itemScoped(matchFormat),
		ScopeSiteWide:    itemScoped(matchAll),
		ScopeCart: {
			cartApplicable: true,
			match:          matchAll,
			calculate:      calcCart,
		},
		ScopeShipping: {
			cartApplicable: true,
			match:          matchAll,
			calculate:      calcShipping,
		},
		ScopeUserSegment: {
			cartApplicable: true,
			match:          matchAll,
			calculate:      calcSubtotal,
		},
		ScopeBuyXGetY: {
			cartApplicable: true,
			match:          matchBuyXGetY,
			calculate:      calcBuyXGetY,
		},
		ScopeSubscription: {
			match:     matchNone,
			calculate: calcNone,
		},
	}
}

// Matches reports whether product p falls inside the target. Unknown slugs
// and unknown scopes never match.
func Matches(t Target, p *catalog.Product, cat *catalog.Snapshot) bool {
	if t == nil || p == nil {
		return false
	}
	h, ok := scopeHandlers[t.Scope()]
	if !ok {
		return false
	}
	return h.match(t, p, cat)
}

func matchAll(Target, *catalog.Product, *catalog.Snapshot) bool { return true }

func matchNone(Target, *catalog.Product, *catalog.Snapshot) bool { return false }

func matchProduct(t Target, p *catalog.Product, _ *catalog.Snapshot) bool {
	pt, ok := t.(ProductTarget)
	return ok && slices.Contains(pt.ProductIDs, p.ID)
}

func matchCategory(t Target, p *catalog.Product, cat *catalog.Snapshot) bool {
	ct, ok := t.(CategoryTarget)
	if !ok {
		return false
	}
	for _, slug := range ct.CategorySlugs {
		if id, ok := cat.CategoryIDBySlug(slug); ok && id == p.CategoryID {
			return true
		}
	}
	return false
}

func matchSubCategory(t Target, p *catalog.Product, cat *catalog.Snapshot) bool {
	st, ok := t.(SubCategoryTarget)
	if !ok || len(p.SubCategoryIDs) == 0 {
		return false
	}
	for _, slug := range st.SubCategorySlugs {
		for _, id := range cat.SubCategoryIDsBySlug(slug) {
			if slices.Contains(p.SubCategoryIDs, id) {
				return true
			}
		}
	}
	return false
}

func matchFormat(t Target, p *catalog.Product, _ *catalog.Snapshot) bool {
	ft, ok := t.(FormatTarget)
	if !ok {
		return false
	}
	if len(p.Variants) == 0 {
		return p.FormatID != "" && slices.Contains(ft.FormatIDs, p.FormatID)
	}
	for _, v := range p.Variants {
		if slices.Contains(ft.FormatIDs, v.FormatID) {
			return true
		}
	}
	return false
}

func matchBuyXGetY(t Target, p *catalog.Product, _ *catalog.Snapshot) bool {
	bt, ok := t.(BuyXGetYTarget)
	if !ok {
		return false
	}
	return len(bt.ProductIDs) == 0 || slices.Contains(bt.ProductIDs, p.ID)
}
