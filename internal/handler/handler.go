package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/promo-engine/internal/domain/catalog"
	"github.com/xenking/promo-engine/internal/domain/loyalty"
	"github.com/xenking/promo-engine/internal/domain/order"
	"github.com/xenking/promo-engine/internal/domain/promotion"
	"github.com/xenking/promo-engine/pkg/httpmiddleware"
)

// Promotions is the promotion use-case surface exposed over HTTP.
type Promotions interface {
	CalculateCartPromotions(ctx context.Context, req promotion.CartRequest) (*promotion.CartResult, error)
	BestPromotionForProduct(ctx context.Context, productID string) (*promotion.ProductPromotions, error)
	ApplyPromoCode(ctx context.Context, code string, cartTotal decimal.Decimal, items []promotion.CartItem, userID string) (*promotion.CodeResult, error)
	BestSubscriptionPromotion(ctx context.Context, planID string, price decimal.Decimal) (*promotion.ProductDiscount, error)
}

// Rewards is the loyalty use-case surface exposed over HTTP.
type Rewards interface {
	Catalog(ctx context.Context, points int64) (*loyalty.Catalog, error)
	Redeem(ctx context.Context, rewardID string, cartTotal decimal.Decimal) (*loyalty.Redemption, error)
}

// Orders places orders.
type Orders interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the storefront JSON API, delegating business logic to the
// domain services.
type Handler struct {
	products     catalog.ProductRepository
	promotions   Promotions
	rewards      Rewards
	orders       Orders
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products catalog.ProductRepository,
	promotions Promotions,
	rewards Rewards,
	orders Orders,
) *Handler {
	return &Handler{
		products:     products,
		promotions:   promotions,
		rewards:      rewards,
		orders:       orders,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register mounts every route on mux. Order placement is wrapped by guard.
func (h *Handler) Register(mux *http.ServeMux, guard httpmiddleware.Middleware) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}/promotions", h.ProductPromotions)
	mux.HandleFunc("POST /api/cart/promotions", h.CartPromotions)
	mux.HandleFunc("POST /api/promo-code", h.ApplyPromoCode)
	mux.HandleFunc("GET /api/subscriptions/{planId}/promotion", h.SubscriptionPromotion)
	mux.HandleFunc("GET /api/rewards", h.ListRewards)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", h.RedeemReward)
	mux.Handle("POST /api/order", guard(http.HandlerFunc(h.PlaceOrder)))
}

// internalError logs err and answers 500 without leaking details.
func internalError(ctx context.Context, w http.ResponseWriter, err error) {
	zctx.From(ctx).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
