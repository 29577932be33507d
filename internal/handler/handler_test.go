package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promo-engine/internal/domain/auth"
	"github.com/xenking/promo-engine/internal/domain/catalog"
	"github.com/xenking/promo-engine/internal/domain/loyalty"
	"github.com/xenking/promo-engine/internal/domain/order"
	"github.com/xenking/promo-engine/internal/domain/promotion"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []catalog.Product
	listErr  error
	category string
}

func (m *mockProductRepo) List(_ context.Context) ([]catalog.Product, error) {
	return m.products, m.listErr
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (m *mockProductRepo) GetByIDs(_ context.Context, _ []string) ([]catalog.Product, error) {
	return m.products, nil
}

func (m *mockProductRepo) GetByCategory(_ context.Context, categoryID string) ([]catalog.Product, error) {
	m.category = categoryID
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []catalog.Product
	for _, p := range m.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockPromotions struct {
	cartReq  promotion.CartRequest
	cart     *promotion.CartResult
	product  *promotion.ProductPromotions
	code     *promotion.CodeResult
	codeSeen string
	sub      *promotion.ProductDiscount
	plan     string
	price    decimal.Decimal
	err      error
}

func (m *mockPromotions) CalculateCartPromotions(_ context.Context, req promotion.CartRequest) (*promotion.CartResult, error) {
	m.cartReq = req
	return m.cart, m.err
}

func (m *mockPromotions) BestPromotionForProduct(_ context.Context, _ string) (*promotion.ProductPromotions, error) {
	return m.product, m.err
}

func (m *mockPromotions) ApplyPromoCode(_ context.Context, code string, _ decimal.Decimal, _ []promotion.CartItem, _ string) (*promotion.CodeResult, error) {
	m.codeSeen = code
	return m.code, m.err
}

func (m *mockPromotions) BestSubscriptionPromotion(_ context.Context, planID string, price decimal.Decimal) (*promotion.ProductDiscount, error) {
	m.plan, m.price = planID, price
	return m.sub, m.err
}

type mockRewards struct {
	points     int64
	catalog    *loyalty.Catalog
	redemption *loyalty.Redemption
	err        error
}

func (m *mockRewards) Catalog(_ context.Context, points int64) (*loyalty.Catalog, error) {
	m.points = points
	return m.catalog, m.err
}

func (m *mockRewards) Redeem(_ context.Context, _ string, _ decimal.Decimal) (*loyalty.Redemption, error) {
	return m.redemption, m.err
}

type mockOrders struct {
	req    order.PlaceOrderRequest
	result *order.PlaceOrderResult
	err    error
}

func (m *mockOrders) PlaceOrder(_ context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error) {
	m.req = req
	return m.result, m.err
}

type mockAPIKeyRepo struct {
	info *auth.APIKeyInfo
	err  error
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, _ string) (*auth.APIKeyInfo, error) {
	return m.info, m.err
}

// --- Helpers ---

var testPepper = []byte("pepper")

type deps struct {
	products   *mockProductRepo
	promotions *mockPromotions
	rewards    *mockRewards
	orders     *mockOrders
	apikeys    *mockAPIKeyRepo
}

func newDeps() *deps {
	return &deps{
		products:   &mockProductRepo{},
		promotions: &mockPromotions{},
		rewards:    &mockRewards{},
		orders:     &mockOrders{},
		apikeys:    &mockAPIKeyRepo{err: auth.ErrKeyNotFound},
	}
}

func (d *deps) serve(t *testing.T, method, target, body string, header http.Header) (int, map[string]any) {
	t.Helper()

	h := NewHandler(HandlerConfig{ImageBaseURL: "https://cdn.test/"}, d.products, d.promotions, d.rewards, d.orders)
	mux := http.NewServeMux()
	h.Register(mux, RequireAPIKey(d.apikeys, testPepper, auth.ScopeCreateOrder))

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func testPromo() *promotion.Promotion {
	return &promotion.Promotion{
		ID:       "promo-1",
		Name:     "Thé -10%",
		Kind:     promotion.KindAutomatic,
		Target:   promotion.CategoryTarget{CategorySlugs: []string{"the"}},
		Discount: promotion.Discount{Type: promotion.DiscountPercentage, Value: decimal.NewFromInt(10)},
		Priority: 5,
	}
}

func validKey(scopes ...string) *auth.APIKeyInfo {
	return &auth.APIKeyInfo{
		ID:      "key-1",
		KeyHash: auth.HashKey("secret", testPepper),
		Name:    "test-key",
		Scopes:  scopes,
	}
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	d := newDeps()
	d.products.products = []catalog.Product{
		{ID: "p1", Name: "Sencha", Price: decimal.RequireFromString("12.5"), CategoryID: "c1", Image: "sencha.jpg"},
		{
			ID:           "p2",
			Name:         "Moka",
			Price:        decimal.NewFromInt(20),
			ReducedPrice: decimal.NewNullDecimal(decimal.NewFromInt(15)),
		},
	}

	h := NewHandler(HandlerConfig{ImageBaseURL: "https://cdn.test/"}, d.products, d.promotions, d.rewards, d.orders)
	rec := httptest.NewRecorder()
	h.ListProducts(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)

	assert.Equal(t, "p1", out[0]["id"])
	assert.Equal(t, 12.5, out[0]["price"])
	assert.Equal(t, "https://cdn.test/sencha.jpg", out[0]["image"])
	assert.NotContains(t, out[0], "reducedPrice")
	assert.Equal(t, 15.0, out[1]["reducedPrice"])
	assert.NotContains(t, out[1], "image")
}

func TestListProducts_ByCategory(t *testing.T) {
	d := newDeps()
	d.products.products = []catalog.Product{
		{ID: "p1", Name: "Sencha", Price: decimal.NewFromInt(12), CategoryID: "the"},
		{ID: "p2", Name: "Moka", Price: decimal.NewFromInt(20), CategoryID: "cafe"},
	}

	h := NewHandler(HandlerConfig{}, d.products, d.promotions, d.rewards, d.orders)
	rec := httptest.NewRecorder()
	h.ListProducts(rec, httptest.NewRequest(http.MethodGet, "/api/products?category=cafe", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "p2", out[0]["id"])
	assert.Equal(t, "cafe", d.products.category)

	rec = httptest.NewRecorder()
	h.ListProducts(rec, httptest.NewRequest(http.MethodGet, "/api/products?category=vide", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListProducts_Error(t *testing.T) {
	d := newDeps()
	d.products.listErr = errors.New("db down")

	code, body := d.serve(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", body["message"])
}

func TestProductPromotions(t *testing.T) {
	t.Run("best discount", func(t *testing.T) {
		d := newDeps()
		p := testPromo()
		d.promotions.product = &promotion.ProductPromotions{
			Promotions: []promotion.Promotion{*p},
			Best: &promotion.ProductDiscount{
				Promotion:      p,
				DiscountAmount: decimal.NewFromInt(2),
				FinalPrice:     decimal.NewFromInt(18),
			},
		}

		code, body := d.serve(t, http.MethodGet, "/api/products/p1/promotions", "", nil)
		require.Equal(t, http.StatusOK, code)
		require.Len(t, body["promotions"], 1)

		best := body["bestDiscount"].(map[string]any)
		assert.Equal(t, 2.0, best["discountAmount"])
		assert.Equal(t, 18.0, best["finalPrice"])
		promo := best["promotion"].(map[string]any)
		assert.Equal(t, "category", promo["scope"])
		assert.Equal(t, "automatic", promo["type"])
	})

	t.Run("no promotion", func(t *testing.T) {
		d := newDeps()
		d.promotions.product = &promotion.ProductPromotions{}

		code, body := d.serve(t, http.MethodGet, "/api/products/p1/promotions", "", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Empty(t, body["promotions"])
		assert.Nil(t, body["bestDiscount"])
	})

	t.Run("unknown product returns 404", func(t *testing.T) {
		d := newDeps()
		d.promotions.err = catalog.ErrNotFound

		code, body := d.serve(t, http.MethodGet, "/api/products/missing/promotions", "", nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, 404.0, body["code"])
	})
}

func TestSubscriptionPromotion(t *testing.T) {
	t.Run("best discount", func(t *testing.T) {
		d := newDeps()
		p := testPromo()
		d.promotions.sub = &promotion.ProductDiscount{
			Promotion:      p,
			DiscountAmount: decimal.NewFromInt(5),
			FinalPrice:     decimal.NewFromInt(15),
		}

		code, body := d.serve(t, http.MethodGet, "/api/subscriptions/monthly/promotion?price=20", "", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "monthly", d.promotions.plan)
		assert.True(t, decimal.NewFromInt(20).Equal(d.promotions.price))
		assert.Equal(t, "monthly", body["planId"])
		assert.Equal(t, 20.0, body["price"])

		best := body["bestDiscount"].(map[string]any)
		assert.Equal(t, 5.0, best["discountAmount"])
		assert.Equal(t, 15.0, best["finalPrice"])
	})

	t.Run("no promotion", func(t *testing.T) {
		d := newDeps()

		code, body := d.serve(t, http.MethodGet, "/api/subscriptions/yearly/promotion?price=99.90", "", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Nil(t, body["bestDiscount"])
	})

	for _, tt := range []struct{ name, query string }{
		{"missing price", ""},
		{"price not a number", "?price=abc"},
		{"negative price", "?price=-1"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			d := newDeps()

			code, body := d.serve(t, http.MethodGet, "/api/subscriptions/monthly/promotion"+tt.query, "", nil)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, "price must be a non-negative decimal", body["message"])
		})
	}

	t.Run("service failure", func(t *testing.T) {
		d := newDeps()
		d.promotions.err = errors.New("db down")

		code, _ := d.serve(t, http.MethodGet, "/api/subscriptions/monthly/promotion?price=20", "", nil)
		assert.Equal(t, http.StatusInternalServerError, code)
	})
}

func TestCartPromotions(t *testing.T) {
	t.Run("decodes cart and encodes result", func(t *testing.T) {
		d := newDeps()
		d.promotions.cart = &promotion.CartResult{
			Applied: []promotion.AppliedPromotion{{
				Promotion:      testPromo(),
				DiscountAmount: decimal.NewFromInt(2),
				AffectedItems: []promotion.AffectedItem{
					{ProductID: "p1", Quantity: 2, Amount: decimal.NewFromInt(2)},
				},
				Message: "Thé -10%",
			}},
			Progress: []promotion.Progress{{
				Promotion: testPromo(),
				Type:      promotion.ProgressAmount,
				Current:   decimal.NewFromInt(40),
				Target:    decimal.NewFromInt(50),
				Remaining: decimal.NewFromInt(10),
				Message:   "Plus que 10.00 €",
			}},
			TotalDiscount: decimal.NewFromInt(2),
			FreeShipping:  true,
		}

		code, body := d.serve(t, http.MethodPost, "/api/cart/promotions", `{
			"items": [{"productId": "p1", "unitPrice": "10.00", "quantity": 2}],
			"subtotal": 20,
			"promoCode": "BIENVENUE",
			"userId": "u1",
			"ignored": {"nested": true}
		}`, nil)
		require.Equal(t, http.StatusOK, code)

		req := d.promotions.cartReq
		require.Len(t, req.Items, 1)
		assert.Equal(t, "p1", req.Items[0].ProductID)
		assert.Equal(t, 2, req.Items[0].Quantity)
		assert.True(t, decimal.NewFromInt(10).Equal(req.Items[0].UnitPrice))
		assert.True(t, decimal.NewFromInt(20).Equal(req.Subtotal))
		assert.Equal(t, "BIENVENUE", req.PromoCode)
		assert.Equal(t, "u1", req.UserID)

		assert.Equal(t, 2.0, body["totalDiscount"])
		assert.Equal(t, true, body["freeShipping"])
		applied := body["appliedPromotions"].([]any)
		require.Len(t, applied, 1)
		affected := applied[0].(map[string]any)["affectedItems"].([]any)
		require.Len(t, affected, 1)
		progress := body["progressIndicators"].([]any)
		require.Len(t, progress, 1)
		assert.Equal(t, 10.0, progress[0].(map[string]any)["remaining"])
		assert.Equal(t, "amount", progress[0].(map[string]any)["type"])
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "not an object", body: `[]`},
		{name: "malformed price", body: `{"items":[{"productId":"p1","unitPrice":"abc","quantity":1}]}`},
		{name: "missing product id", body: `{"items":[{"unitPrice":1,"quantity":1}]}`},
		{name: "negative price", body: `{"items":[{"productId":"p1","unitPrice":-1,"quantity":1}]}`},
		{name: "negative subtotal", body: `{"items":[],"subtotal":-5}`},
		{name: "zero quantity", body: `{"items":[{"productId":"p1","unitPrice":1,"quantity":0}]}`},
		{name: "negative quantity", body: `{"items":[{"productId":"p1","unitPrice":1,"quantity":-2}]}`},
		{name: "missing quantity", body: `{"items":[{"productId":"p1","unitPrice":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDeps()
			code, body := d.serve(t, http.MethodPost, "/api/cart/promotions", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, 400.0, body["code"])
		})
	}
}

func TestApplyPromoCode(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		d := newDeps()
		p := testPromo()
		p.Kind = promotion.KindCode
		p.Code = "BIENVENUE"
		d.promotions.code = &promotion.CodeResult{
			Success:        true,
			Promotion:      p,
			DiscountAmount: decimal.NewFromInt(5),
			Message:        "Code promo appliqué : -5.00 €",
		}

		code, body := d.serve(t, http.MethodPost, "/api/promo-code",
			`{"code":"bienvenue","cartTotal":50,"items":[{"productId":"p1","unitPrice":50,"quantity":1}]}`, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "bienvenue", d.promotions.codeSeen)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, 5.0, body["discountAmount"])
		assert.Equal(t, "BIENVENUE", body["promotion"].(map[string]any)["code"])
	})

	t.Run("invalid code is not an http error", func(t *testing.T) {
		d := newDeps()
		d.promotions.code = &promotion.CodeResult{Message: "Code promo invalide"}

		code, body := d.serve(t, http.MethodPost, "/api/promo-code", `{"code":"NOPE","cartTotal":10}`, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["success"])
		assert.NotContains(t, body, "promotion")
		assert.Equal(t, "Code promo invalide", body["message"])
	})

	t.Run("missing code returns 400", func(t *testing.T) {
		d := newDeps()
		code, _ := d.serve(t, http.MethodPost, "/api/promo-code", `{"cartTotal":10}`, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestListRewards(t *testing.T) {
	reward := loyalty.Reward{
		ID:             "r1",
		Name:           "5 € offerts",
		Type:           loyalty.RewardAmount,
		PointsRequired: 100,
		Value:          decimal.NewFromInt(5),
		Active:         true,
	}

	t.Run("catalog", func(t *testing.T) {
		d := newDeps()
		next := reward
		next.ID = "r2"
		next.PointsRequired = 500
		d.rewards.catalog = &loyalty.Catalog{Points: 150, Available: []loyalty.Reward{reward}, Next: &next}

		code, body := d.serve(t, http.MethodGet, "/api/rewards?points=150", "", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, int64(150), d.rewards.points)
		require.Len(t, body["available"], 1)
		assert.Equal(t, "r2", body["next"].(map[string]any)["id"])
	})

	t.Run("invalid points returns 400", func(t *testing.T) {
		d := newDeps()
		for _, q := range []string{"abc", "-1"} {
			code, _ := d.serve(t, http.MethodGet, "/api/rewards?points="+q, "", nil)
			assert.Equal(t, http.StatusBadRequest, code, q)
		}
	})
}

func TestRedeemReward(t *testing.T) {
	reward := &loyalty.Reward{
		ID:     "r1",
		Name:   "5 € offerts",
		Type:   loyalty.RewardAmount,
		Value:  decimal.NewFromInt(5),
		Active: true,
	}

	tests := []struct {
		name       string
		redemption *loyalty.Redemption
		err        error
		wantStatus int
	}{
		{
			name:       "redeemed",
			redemption: &loyalty.Redemption{Reward: reward, Amount: decimal.NewFromInt(5)},
			wantStatus: http.StatusOK,
		},
		{name: "unknown reward", err: loyalty.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "unavailable reward", err: loyalty.ErrUnavailable, wantStatus: http.StatusUnprocessableEntity},
		{name: "storage failure", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDeps()
			d.rewards.redemption = tt.redemption
			d.rewards.err = tt.err

			code, body := d.serve(t, http.MethodPost, "/api/rewards/r1/redeem", `{"cartTotal":"30.00"}`, nil)
			require.Equal(t, tt.wantStatus, code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, 5.0, body["discountAmount"])
				assert.Equal(t, 25.0, body["finalAmount"])
			}
		})
	}
}

func TestPlaceOrder(t *testing.T) {
	header := http.Header{APIKeyHeader: []string{"secret"}}
	payload := `{"items":[{"productId":"p1","quantity":2}],"promoCode":"BIENVENUE","userId":"u1"}`

	t.Run("placed", func(t *testing.T) {
		d := newDeps()
		d.apikeys = &mockAPIKeyRepo{info: validKey(auth.ScopeCreateOrder)}
		d.orders.result = &order.PlaceOrderResult{
			Order: &order.Order{
				ID:           "o1",
				UserID:       "u1",
				Items:        []order.OrderItem{{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}},
				Subtotal:     decimal.NewFromInt(20),
				Discounts:    decimal.NewFromInt(2),
				Total:        decimal.NewFromInt(18),
				PromoCode:    "BIENVENUE",
				PointsEarned: 18,
			},
			Products:   []catalog.Product{{ID: "p1", Name: "Sencha", Price: decimal.NewFromInt(10)}},
			Promotions: &promotion.CartResult{Applied: []promotion.AppliedPromotion{{Promotion: testPromo()}}},
		}

		code, body := d.serve(t, http.MethodPost, "/api/order", payload, header)
		require.Equal(t, http.StatusOK, code)

		require.Len(t, d.orders.req.Items, 1)
		assert.Equal(t, 2, d.orders.req.Items[0].Quantity)
		assert.Equal(t, "BIENVENUE", d.orders.req.PromoCode)
		assert.Equal(t, "u1", d.orders.req.UserID)

		assert.Equal(t, "o1", body["id"])
		assert.Equal(t, 18.0, body["total"])
		assert.Equal(t, 2.0, body["discounts"])
		assert.Equal(t, 18.0, body["pointsEarned"])
		require.Len(t, body["products"], 1)
		require.Len(t, body["appliedPromotions"], 1)
	})

	t.Run("missing key returns 401", func(t *testing.T) {
		d := newDeps()
		code, body := d.serve(t, http.MethodPost, "/api/order", payload, nil)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "unauthorized", body["message"])
	})

	t.Run("unknown key returns 401", func(t *testing.T) {
		d := newDeps()
		code, _ := d.serve(t, http.MethodPost, "/api/order", payload, header)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("stale hash returns 401", func(t *testing.T) {
		d := newDeps()
		info := validKey(auth.ScopeCreateOrder)
		info.KeyHash = auth.HashKey("other", testPepper)
		d.apikeys = &mockAPIKeyRepo{info: info}

		code, _ := d.serve(t, http.MethodPost, "/api/order", payload, header)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("missing scope returns 403", func(t *testing.T) {
		d := newDeps()
		d.apikeys = &mockAPIKeyRepo{info: validKey("read")}

		code, _ := d.serve(t, http.MethodPost, "/api/order", payload, header)
		assert.Equal(t, http.StatusForbidden, code)
	})
}

func TestMapOrderError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		wantOK     bool
	}{
		{name: "empty items", err: order.ErrEmptyItems, wantStatus: 400, wantMsg: "items required", wantOK: true},
		{
			name:       "invalid quantity",
			err:        &order.InvalidQuantityError{ProductID: "p1"},
			wantStatus: 422,
			wantMsg:    "quantity must be greater than 0 for product p1",
			wantOK:     true,
		},
		{
			name:       "wrapped product not found",
			err:        errors.Wrap(&order.ProductNotFoundError{ProductID: "x"}, "place"),
			wantStatus: 422,
			wantMsg:    "product x not found",
			wantOK:     true,
		},
		{
			name:       "refused promo code",
			err:        errors.Wrap(&order.PromoCodeError{Code: "ETE", Reason: "Montant minimum de 30.00 € requis"}, "place"),
			wantStatus: 422,
			wantMsg:    "Montant minimum de 30.00 € requis",
			wantOK:     true,
		},
		{name: "invalid promo code", err: order.ErrInvalidPromoCode, wantStatus: 422, wantMsg: "invalid promo code", wantOK: true},
		{name: "unexpected", err: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg, ok := mapOrderError(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}
