package promotion

import "github.com/shopspring/decimal"

// CartItem is one cart line as priced by the caller.
type CartItem struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal returns UnitPrice * Quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Customer carries the per-user facts eligibility depends on.
type Customer struct {
	ID string
	// OrderCount is the number of orders the customer placed before this one.
	OrderCount int
	// Usage maps a promotion id to how many times this customer used it.
	Usage map[string]int
}

// Cart is the read-only cart snapshot an evaluation runs against.
type Cart struct {
	Items     []CartItem
	Subtotal  decimal.Decimal
	PromoCode string
	Customer  Customer
}

// TotalQuantity returns the number of units in the cart.
func (c *Cart) TotalQuantity() int {
	return totalQuantity(c.Items)
}

// AffectedItem is the share of a discount borne by one cart line.
type AffectedItem struct {
	ProductID string
	Quantity  int
	Amount    decimal.Decimal
}

// AppliedPromotion is a promotion retained by the resolver.
type AppliedPromotion struct {
	Promotion      *Promotion
	DiscountAmount decimal.Decimal
	FreeShipping   bool
	AffectedItems  []AffectedItem
	Message        string
}

// ProgressType names what a customer still has to add.
type ProgressType string

const (
	ProgressAmount   ProgressType = "amount"
	ProgressQuantity ProgressType = "quantity"
	ProgressBuyXGetY ProgressType = "buy-x-get-y"
)

// Progress is a nudge for a promotion that is close to being unlocked.
type Progress struct {
	Promotion  *Promotion
	Type       ProgressType
	Current    decimal.Decimal
	Target     decimal.Decimal
	Remaining  decimal.Decimal
	IsUnlocked bool
	Message    string
}

// CartResult is the outcome of one cart evaluation.
type CartResult struct {
	Applied       []AppliedPromotion
	Progress      []Progress
	TotalDiscount decimal.Decimal
	FreeShipping  bool
}

// ProductDiscount is the best discount found for a single product.
type ProductDiscount struct {
	Promotion      *Promotion
	DiscountAmount decimal.Decimal
	FinalPrice     decimal.Decimal
}

// ProductPromotions lists the promotions touching a product and the best of them.
type ProductPromotions struct {
	Promotions []Promotion
	Best       *ProductDiscount
}

// CodeResult is the answer to a promo-code submission.
type CodeResult struct {
	Success        bool
	Promotion      *Promotion
	DiscountAmount decimal.Decimal
	FreeShipping   bool
	Message        string
}
