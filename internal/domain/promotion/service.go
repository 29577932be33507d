package promotion

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/promo-engine/internal/domain/catalog"
)

// OrderHistory answers the per-customer questions eligibility depends on.
type OrderHistory interface {
	CountForUser(ctx context.Context, userID string) (int, error)
	PromotionUsage(ctx context.Context, userID string) (map[string]int, error)
}

// CartRequest is a cart submitted for evaluation.
type CartRequest struct {
	Items     []CartItem
	Subtotal  decimal.Decimal
	PromoCode string
	UserID    string
}

// Service loads promotion and catalog snapshots and runs the Engine on them.
type Service struct {
	promotions Repository
	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	history    OrderHistory
	engine     *Engine

	tracer      trace.Tracer
	evaluations metric.Int64Counter
	applied     metric.Int64Counter
}

// NewService creates a promotion Service.
func NewService(
	promotions Repository,
	products catalog.ProductRepository,
	categories catalog.CategoryRepository,
	history OrderHistory,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter("promotion")
	evaluations, err := meter.Int64Counter("promotion.evaluations",
		metric.WithDescription("Number of promotion evaluations"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create evaluations counter")
	}
	applied, err := meter.Int64Counter("promotion.applied",
		metric.WithDescription("Number of promotions applied to carts"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create applied counter")
	}
	return &Service{
		promotions:  promotions,
		products:    products,
		categories:  categories,
		history:     history,
		engine:      NewEngine(),
		tracer:      tp.Tracer("promotion"),
		evaluations: evaluations,
		applied:     applied,
	}, nil
}

// snapshot is everything one evaluation reads, loaded once per call.
type snapshot struct {
	promotions []Promotion
	products   []catalog.Product
	categories []catalog.Category
	customer   Customer
}

// catalog indexes the loaded products plus any the caller already holds.
func (s *snapshot) catalog(extra ...catalog.Product) *catalog.Snapshot {
	return catalog.NewSnapshot(append(s.products, extra...), s.categories)
}

// load reads active promotions and categories concurrently with the named
// products and the customer's history. Products outside productIDs are never
// fetched, so evaluation cost follows the cart rather than the catalog.
func (s *Service) load(ctx context.Context, userID string, productIDs []string) (*snapshot, error) {
	var snap snapshot
	snap.customer.ID = userID

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		promos, err := s.promotions.GetActive(gctx)
		if err != nil {
			return errors.Wrap(err, "get active promotions")
		}
		snap.promotions = promos
		return nil
	})
	if len(productIDs) > 0 {
		g.Go(func() error {
			list, err := s.products.GetByIDs(gctx, productIDs)
			if err != nil {
				return errors.Wrap(err, "get cart products")
			}
			snap.products = list
			return nil
		})
	}
	g.Go(func() error {
		list, err := s.categories.GetAll(gctx)
		if err != nil {
			return errors.Wrap(err, "get categories")
		}
		snap.categories = list
		return nil
	})
	if userID != "" {
		g.Go(func() error {
			n, err := s.history.CountForUser(gctx, userID)
			if err != nil {
				return errors.Wrap(err, "count orders")
			}
			snap.customer.OrderCount = n
			return nil
		})
		g.Go(func() error {
			usage, err := s.history.PromotionUsage(gctx, userID)
			if err != nil {
				return errors.Wrap(err, "promotion usage")
			}
			snap.customer.Usage = usage
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// productIDs returns the distinct product ids of a cart in first-seen order.
func productIDs(items []CartItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

// CalculateCartPromotions evaluates every active promotion against the cart.
func (s *Service) CalculateCartPromotions(ctx context.Context, req CartRequest) (*CartResult, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.CalculateCartPromotions")
	defer span.End()

	snap, err := s.load(ctx, req.UserID, productIDs(req.Items))
	if err != nil {
		return nil, err
	}
	res := s.engine.Evaluate(Cart{
		Items:     req.Items,
		Subtotal:  req.Subtotal,
		PromoCode: req.PromoCode,
		Customer:  snap.customer,
	}, snap.promotions, snap.catalog())

	s.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "cart")))
	s.applied.Add(ctx, int64(len(res.Applied)))
	span.SetAttributes(
		attribute.Int("promotion.candidates", len(snap.promotions)),
		attribute.Int("promotion.applied", len(res.Applied)),
	)
	zctx.From(ctx).Debug("Cart promotions evaluated",
		zap.Int("candidates", len(snap.promotions)),
		zap.Int("applied", len(res.Applied)),
		zap.Int("progress", len(res.Progress)),
		zap.String("total_discount", res.TotalDiscount.String()),
		zap.Bool("free_shipping", res.FreeShipping),
	)
	return &res, nil
}

// PromotionsForProduct returns the valid automatic promotions targeting a product.
func (s *Service) PromotionsForProduct(ctx context.Context, productID string) ([]Promotion, error) {
	res, err := s.BestPromotionForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return res.Promotions, nil
}

// BestPromotionForProduct returns the promotions targeting a product and the
// one giving it the largest discount.
func (s *Service) BestPromotionForProduct(ctx context.Context, productID string) (*ProductPromotions, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.BestPromotionForProduct",
		trace.WithAttributes(attribute.String("product.id", productID)),
	)
	defer span.End()

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get product")
	}
	snap, err := s.load(ctx, "", nil)
	if err != nil {
		return nil, err
	}

	res := s.engine.ProductPromotions(p, snap.promotions, snap.catalog(*p))
	s.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "product")))
	return &res, nil
}

// BestSubscriptionPromotion returns the automatic subscription promotion
// giving the largest discount on a plan priced at price, or nil.
func (s *Service) BestSubscriptionPromotion(ctx context.Context, planID string, price decimal.Decimal) (*ProductDiscount, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.BestSubscriptionPromotion",
		trace.WithAttributes(attribute.String("subscription.plan", planID)),
	)
	defer span.End()

	promos, err := s.promotions.GetActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get active promotions")
	}

	best := s.engine.BestForSubscription(planID, price, promos)
	s.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "subscription")))
	return best, nil
}

// ApplyPromoCode resolves a code and computes its effect on the cart. Unknown
// codes are reported in the result, not as an error.
func (s *Service) ApplyPromoCode(ctx context.Context, code string, cartTotal decimal.Decimal, items []CartItem, userID string) (*CodeResult, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.ApplyPromoCode")
	defer span.End()

	p, err := s.promotions.GetByCode(ctx, code)
	switch {
	case errors.Is(err, ErrNotFound):
		p = nil
	case err != nil:
		return nil, errors.Wrap(err, "get promotion by code")
	}

	snap, err := s.load(ctx, userID, productIDs(items))
	if err != nil {
		return nil, err
	}

	res := s.engine.ApplyCode(p, code, Cart{
		Items:    items,
		Subtotal: cartTotal,
		Customer: snap.customer,
	}, snap.catalog())

	s.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "code")))
	if res.Success {
		s.applied.Add(ctx, 1)
	}
	zctx.From(ctx).Debug("Promo code evaluated",
		zap.Bool("success", res.Success),
		zap.String("discount", res.DiscountAmount.String()),
	)
	return &res, nil
}

// CheckSnapshot loads what an anonymous cart evaluation reads and fails when
// an active promotion cannot be evaluated: a missing target, a scope with no
// handler, or a buy X get Y set that can never be completed.
func (s *Service) CheckSnapshot(ctx context.Context) error {
	snap, err := s.load(ctx, "", nil)
	if err != nil {
		return err
	}
	var bad []string
	for i := range snap.promotions {
		p := &snap.promotions[i]
		if _, ok := scopeHandlers[p.Scope()]; !ok {
			bad = append(bad, p.ID)
			continue
		}
		if t, ok := p.Target.(BuyXGetYTarget); ok && !t.Config.Valid() {
			bad = append(bad, p.ID)
		}
	}
	if len(bad) > 0 {
		return errors.Errorf("%d active promotion(s) cannot be evaluated: %s", len(bad), strings.Join(bad, ", "))
	}
	return nil
}

// RecordUsage increments the usage counter of every applied promotion.
func (s *Service) RecordUsage(ctx context.Context, applied []AppliedPromotion) error {
	for _, a := range applied {
		if a.Promotion == nil {
			continue
		}
		if err := s.promotions.IncrementUsage(ctx, a.Promotion.ID); err != nil {
			return errors.Wrapf(err, "increment usage of %s", a.Promotion.ID)
		}
	}
	return nil
}
