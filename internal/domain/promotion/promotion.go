package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind tells how a promotion is triggered.
type Kind string

const (
	// KindAutomatic promotions are scanned on every evaluation.
	KindAutomatic Kind = "automatic"
	// KindCode promotions apply only when the customer enters their code.
	KindCode Kind = "code"
)

// Scope is the target class a promotion applies to.
type Scope string

const (
	ScopeProduct      Scope = "product"
	ScopeCategory     Scope = "category"
	ScopeSubCategory  Scope = "subcategory"
	ScopeFormat       Scope = "format"
	ScopeSiteWide     Scope = "site-wide"
	ScopeCart         Scope = "cart"
	ScopeShipping     Scope = "shipping"
	ScopeUserSegment  Scope = "user-segment"
	ScopeBuyXGetY     Scope = "buy-x-get-y"
	ScopeSubscription Scope = "subscription"
)

// Scopes lists every supported scope.
var Scopes = []Scope{
	ScopeProduct, ScopeCategory, ScopeSubCategory, ScopeFormat, ScopeSiteWide,
	ScopeCart, ScopeShipping, ScopeUserSegment, ScopeBuyXGetY, ScopeSubscription,
}

// DiscountType enumerates how a discount value is interpreted.
type DiscountType string

const (
	// DiscountPercentage takes Value percent off the affected amount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes Value off, capped at the affected amount.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeShipping carries no amount and waives shipping.
	DiscountFreeShipping DiscountType = "free_shipping"
)

// Strategy controls how an item-scoped discount is spread across cart lines.
type Strategy string

const (
	StrategyAll           Strategy = "all"
	StrategyCheapest      Strategy = "cheapest"
	StrategyMostExpensive Strategy = "most-expensive"
	StrategyProportional  Strategy = "proportional"
	StrategyNonPromoOnly  Strategy = "non-promo-only"
)

// Segment restricts a promotion to a class of customers.
type Segment string

const (
	SegmentAll           Segment = "all"
	SegmentFirstPurchase Segment = "first-purchase"
)

// ApplyOn selects which units a buy-x-get-y offer gives away.
type ApplyOn string

const (
	ApplyOnCheapest      ApplyOn = "cheapest"
	ApplyOnMostExpensive ApplyOn = "most-expensive"
)

// ErrNotFound is returned by repositories when no promotion matches.
var ErrNotFound = errors.New("promotion not found")

// Discount is the monetary effect of a rule before any strategy is applied.
type Discount struct {
	Type  DiscountType
	Value decimal.Decimal
}

// Tier is one step of a progressive cart discount.
type Tier struct {
	MinAmount decimal.Decimal
	Discount  Discount
}

// BuyXGetY configures a "buy X, get Y free" offer.
type BuyXGetY struct {
	BuyQuantity int
	GetQuantity int
	ApplyOn     ApplyOn
}

// SetSize returns the number of units forming one complete offer.
func (c BuyXGetY) SetSize() int {
	return c.BuyQuantity + c.GetQuantity
}

// Valid reports whether the configuration can produce a discount.
func (c BuyXGetY) Valid() bool {
	return c.BuyQuantity > 0 && c.GetQuantity > 0
}

// Target is the scope-specific part of a promotion. Its concrete type is the
// scope tag, so the data a scope needs always travels with it.
type Target interface {
	Scope() Scope
	target()
}

// ProductTarget selects products by id.
type ProductTarget struct{ ProductIDs []string }

// CategoryTarget selects products whose category slug is listed.
type CategoryTarget struct{ CategorySlugs []string }

// SubCategoryTarget selects products belonging to a listed subcategory.
type SubCategoryTarget struct{ SubCategorySlugs []string }

// FormatTarget selects products sold in a listed format.
type FormatTarget struct{ FormatIDs []string }

// SiteWideTarget selects every product.
type SiteWideTarget struct{}

// CartTarget discounts the cart subtotal, optionally through progressive tiers.
type CartTarget struct{ Tiers []Tier }

// ShippingTarget waives shipping.
type ShippingTarget struct{}

// UserSegmentTarget discounts the subtotal for a class of customers.
type UserSegmentTarget struct{ Segment Segment }

// BuyXGetYTarget gives away units once a purchase threshold is met. An empty
// ProductIDs list means every cart line takes part.
type BuyXGetYTarget struct {
	Config     BuyXGetY
	ProductIDs []string
}

// SubscriptionTarget discounts subscription plans.
type SubscriptionTarget struct{ PlanIDs []string }

func (ProductTarget) Scope() Scope      { return ScopeProduct }
func (CategoryTarget) Scope() Scope     { return ScopeCategory }
func (SubCategoryTarget) Scope() Scope  { return ScopeSubCategory }
func (FormatTarget) Scope() Scope       { return ScopeFormat }
func (SiteWideTarget) Scope() Scope     { return ScopeSiteWide }
func (CartTarget) Scope() Scope         { return ScopeCart }
func (ShippingTarget) Scope() Scope     { return ScopeShipping }
func (UserSegmentTarget) Scope() Scope  { return ScopeUserSegment }
func (BuyXGetYTarget) Scope() Scope     { return ScopeBuyXGetY }
func (SubscriptionTarget) Scope() Scope { return ScopeSubscription }

func (ProductTarget) target()      {}
func (CategoryTarget) target()     {}
func (SubCategoryTarget) target()  {}
func (FormatTarget) target()       {}
func (SiteWideTarget) target()     {}
func (CartTarget) target()         {}
func (ShippingTarget) target()     {}
func (UserSegmentTarget) target()  {}
func (BuyXGetYTarget) target()     {}
func (SubscriptionTarget) target() {}

// Conditions are optional eligibility constraints. Zero values mean "unset".
type Conditions struct {
	MinAmount               decimal.Decimal
	MinQuantity             int
	MaxUsagePerUser         int
	MaxUsageTotal           int
	UserSegment             Segment
	ExcludePromotedProducts bool
}

// Promotion is an immutable rule definition.
type Promotion struct {
	ID         string
	Name       string
	Kind       Kind
	Code       string
	Target     Target
	Discount   Discount
	Strategy   Strategy
	Stackable  bool
	Priority   int
	Conditions Conditions
	StartDate  time.Time
	EndDate    *time.Time
	Active     bool

	CurrentUsage int
}

// Scope returns the promotion's scope, or "" when it has no target.
func (p *Promotion) Scope() Scope {
	if p.Target == nil {
		return ""
	}
	return p.Target.Scope()
}

// IsValidAt reports whether the promotion is switched on, inside its date
// window and below its global usage cap at the given instant.
func (p *Promotion) IsValidAt(now time.Time) bool {
	if !p.Active {
		return false
	}
	if now.Before(p.StartDate) {
		return false
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return false
	}
	if p.Conditions.MaxUsageTotal > 0 && p.CurrentUsage >= p.Conditions.MaxUsageTotal {
		return false
	}
	return true
}

// Repository provides read access to promotion rules and usage accounting.
// GetActive returns every switched-on promotion of both kinds; GetByCode
// returns ErrNotFound for unknown codes.
type Repository interface {
	GetActive(ctx context.Context) ([]Promotion, error)
	GetByCode(ctx context.Context, code string) (*Promotion, error)
	IncrementUsage(ctx context.Context, id string) error
}
