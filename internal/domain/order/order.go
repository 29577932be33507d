package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a completed customer order with pricing and discount details.
type Order struct {
	ID           string
	UserID       string
	Items        []OrderItem
	Subtotal     decimal.Decimal
	Discounts    decimal.Decimal
	Total        decimal.Decimal
	FreeShipping bool
	PromoCode    string
	PointsEarned int64
	// PromotionIDs lists the promotions applied to the order.
	PromotionIDs []string
	CreatedAt    time.Time
}

// OrderItem represents a single line item in an order.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Repository defines persistence operations for orders. It doubles as the
// order history promotion eligibility reads.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	CountForUser(ctx context.Context, userID string) (int, error)
	PromotionUsage(ctx context.Context, userID string) (map[string]int, error)
}
