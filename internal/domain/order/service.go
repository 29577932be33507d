package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/promo-engine/internal/domain/catalog"
	"github.com/xenking/promo-engine/internal/domain/promotion"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems       = errors.New("items required")
	ErrInvalidPromoCode = errors.New("invalid promo code")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// PromoCodeError reports an entered code that cannot apply to the order.
// Reason is the customer-facing refusal.
type PromoCodeError struct {
	Code   string
	Reason string
}

func (e *PromoCodeError) Error() string {
	return fmt.Sprintf("promo code %q refused: %s", e.Code, e.Reason)
}

func (e *PromoCodeError) Unwrap() error {
	return ErrInvalidPromoCode
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items     []OrderItem
	PromoCode string
	UserID    string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order      *Order
	Products   []catalog.Product
	Promotions *promotion.CartResult
}

// Promotions evaluates and records the promotions applied to an order.
type Promotions interface {
	CalculateCartPromotions(ctx context.Context, req promotion.CartRequest) (*promotion.CartResult, error)
	ApplyPromoCode(ctx context.Context, code string, cartTotal decimal.Decimal, items []promotion.CartItem, userID string) (*promotion.CodeResult, error)
	RecordUsage(ctx context.Context, applied []promotion.AppliedPromotion) error
}

// Points converts a paid amount into loyalty points.
type Points interface {
	PointsFor(amount decimal.Decimal) int64
}

// Service encapsulates order placement business logic.
type Service struct {
	products   catalog.ProductRepository
	promotions Promotions
	points     Points
	orders     Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products catalog.ProductRepository,
	promotions Promotions,
	points Points,
	orders Repository,
) *Service {
	return &Service{
		products:   products,
		promotions: promotions,
		points:     points,
		orders:     orders,
	}
}

// PlaceOrder validates items, fetches products in a single batch, prices
// lines at their selling price, applies promotions, awards loyalty points,
// persists the order and records promotion usage.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	productMap := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	products := make([]catalog.Product, 0, len(req.Items))
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		products = append(products, p)
	}

	// Price every line at the current selling price.
	items := make([]OrderItem, len(req.Items))
	cartItems := make([]promotion.CartItem, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		price := products[i].SellingPrice()
		items[i] = OrderItem{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: price}
		cartItems[i] = promotion.CartItem{ProductID: item.ProductID, UnitPrice: price, Quantity: item.Quantity}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	// A code that applies on its own may still lose to a better automatic
	// promotion; only a code refused outright fails the order.
	code := strings.TrimSpace(req.PromoCode)
	if code != "" {
		res, err := s.promotions.ApplyPromoCode(ctx, code, subtotal, cartItems, req.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "apply promo code")
		}
		if !res.Success {
			return nil, &PromoCodeError{Code: code, Reason: res.Message}
		}
	}

	promos, err := s.promotions.CalculateCartPromotions(ctx, promotion.CartRequest{
		Items:     cartItems,
		Subtotal:  subtotal,
		PromoCode: code,
		UserID:    req.UserID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "calculate promotions")
	}

	// Total = subtotal - discount, floored at zero and rounded to 2 decimal places.
	discount := promos.TotalDiscount
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Round(2)

	promotionIDs := make([]string, 0, len(promos.Applied))
	for _, a := range promos.Applied {
		promotionIDs = append(promotionIDs, a.Promotion.ID)
	}

	o := &Order{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		Items:        items,
		Subtotal:     subtotal.Round(2),
		Discounts:    discount,
		Total:        total,
		FreeShipping: promos.FreeShipping,
		PromoCode:    code,
		PointsEarned: s.points.PointsFor(total),
		PromotionIDs: promotionIDs,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// The order is placed; a failed counter update must not fail it.
	if err := s.promotions.RecordUsage(ctx, promos.Applied); err != nil {
		zctx.From(ctx).Warn("Record promotion usage", zap.String("order_id", o.ID), zap.Error(err))
	}

	return &PlaceOrderResult{
		Order:      o,
		Products:   products,
		Promotions: promos,
	}, nil
}
