package promotion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promo-engine/internal/domain/catalog"
)

func TestEngine_Evaluate_Scenarios(t *testing.T) {
	cat := testCatalog()

	t.Run("cart percentage with free shipping", func(t *testing.T) {
		promos := []Promotion{
			newPromo("cart15", CartTarget{}, pct("15"), withPriority(3)),
			newPromo("ship", ShippingTarget{}, freeShip(), withPriority(10), stackable(),
				withConditions(Conditions{MinAmount: dec("40")})),
		}

		res := testEngine().Evaluate(newCart(item("p1", "10", 10)), promos, cat)

		assert.True(t, dec("15").Equal(res.TotalDiscount), res.TotalDiscount.String())
		assert.True(t, res.FreeShipping)
		require.Len(t, res.Applied, 2)
		assert.Equal(t, "ship", res.Applied[0].Promotion.ID)
		assert.True(t, res.Applied[0].FreeShipping)
		assert.Equal(t, "cart15", res.Applied[1].Promotion.ID)
	})

	t.Run("buy three get one cheapest", func(t *testing.T) {
		promos := []Promotion{
			newPromo("b3g1", BuyXGetYTarget{Config: BuyXGetY{BuyQuantity: 3, GetQuantity: 1, ApplyOn: ApplyOnCheapest}}, Discount{}),
		}
		cart := newCart(
			item("p1", "10", 1),
			item("p2", "20", 1),
			item("p3", "30", 1),
			item("p4", "5", 1),
		)

		res := testEngine().Evaluate(cart, promos, cat)

		require.Len(t, res.Applied, 1)
		applied := res.Applied[0]
		assert.True(t, dec("5").Equal(applied.DiscountAmount), applied.DiscountAmount.String())
		assert.Equal(t, "3 achetés = 1 offert(s)", applied.Message)
		require.Len(t, applied.AffectedItems, 1)
		assert.Equal(t, "p4", applied.AffectedItems[0].ProductID)
		assert.Equal(t, 1, applied.AffectedItems[0].Quantity)
	})

	t.Run("progressive tiers", func(t *testing.T) {
		promos := []Promotion{
			newPromo("tiers", CartTarget{Tiers: []Tier{
				{MinAmount: dec("50"), Discount: pct("10")},
				{MinAmount: dec("100"), Discount: pct("20")},
				{MinAmount: dec("150"), Discount: pct("30")},
			}}, Discount{}),
		}

		res := testEngine().Evaluate(newCart(item("p5", "120", 1)), promos, cat)

		require.Len(t, res.Applied, 1)
		assert.True(t, dec("24").Equal(res.Applied[0].DiscountAmount), res.Applied[0].DiscountAmount.String())
		assert.True(t, dec("24").Equal(res.TotalDiscount))
	})

	t.Run("non-stackable keeps the larger discount", func(t *testing.T) {
		cart := newCart(item("p3", "30", 1), item("p1", "10", 1))
		for _, tt := range []struct {
			name  string
			small int
			large int
		}{
			{name: "smaller first", small: 5, large: 1},
			{name: "larger first", small: 1, large: 5},
		} {
			t.Run(tt.name, func(t *testing.T) {
				promos := []Promotion{
					newPromo("fifteen", ProductTarget{ProductIDs: []string{"p3"}}, fixed("15"), withPriority(tt.small)),
					newPromo("twentyfive", CartTarget{}, fixed("25"), withPriority(tt.large)),
				}

				res := testEngine().Evaluate(cart, promos, cat)

				require.Len(t, res.Applied, 1)
				assert.Equal(t, "twentyfive", res.Applied[0].Promotion.ID)
				assert.True(t, dec("25").Equal(res.TotalDiscount))
			})
		}
	})
}

func TestEngine_Evaluate_SingleExclusiveWinner(t *testing.T) {
	promos := []Promotion{
		newPromo("a", CartTarget{}, fixed("5"), withPriority(9)),
		newPromo("b", CartTarget{}, fixed("8"), withPriority(8)),
		newPromo("c", CartTarget{}, fixed("7"), withPriority(7)),
		newPromo("d", SiteWideTarget{}, pct("10"), withPriority(6), stackable()),
		newPromo("e", CartTarget{}, fixed("12"), withPriority(5)),
	}

	res := testEngine().Evaluate(newCart(item("p5", "120", 1)), promos, testCatalog())

	exclusive := 0
	ids := make([]string, 0, len(res.Applied))
	for _, a := range res.Applied {
		if !a.Promotion.Stackable {
			exclusive++
		}
		ids = append(ids, a.Promotion.ID)
	}
	assert.Equal(t, 1, exclusive)
	assert.Equal(t, []string{"d", "e"}, ids)
	assert.True(t, dec("24").Equal(res.TotalDiscount), res.TotalDiscount.String())
}

func TestEngine_Evaluate_Progress(t *testing.T) {
	cat := testCatalog()

	tests := []struct {
		name          string
		promo         Promotion
		cart          Cart
		wantType      ProgressType
		wantRemaining string
		wantMessage   string
		wantNone      bool
	}{
		{
			name:          "amount within half of threshold",
			promo:         newPromo("hundred", CartTarget{}, pct("10"), withConditions(Conditions{MinAmount: dec("100")})),
			cart:          newCart(item("p3", "30", 2)),
			wantType:      ProgressAmount,
			wantRemaining: "40",
			wantMessage:   "Plus que 40.00 € pour profiter de « hundred »",
		},
		{
			name:          "amount exactly half",
			promo:         newPromo("hundred", CartTarget{}, pct("10"), withConditions(Conditions{MinAmount: dec("100")})),
			cart:          newCart(item("p1", "10", 5)),
			wantType:      ProgressAmount,
			wantRemaining: "50",
			wantMessage:   "Plus que 50.00 € pour profiter de « hundred »",
		},
		{
			name:     "amount too far",
			promo:    newPromo("hundred", CartTarget{}, pct("10"), withConditions(Conditions{MinAmount: dec("100")})),
			cart:     newCart(item("p1", "10", 4)),
			wantNone: true,
		},
		{
			name:          "quantity",
			promo:         newPromo("four", SiteWideTarget{}, pct("10"), withConditions(Conditions{MinQuantity: 4})),
			cart:          newCart(item("p1", "10", 2)),
			wantType:      ProgressQuantity,
			wantRemaining: "2",
			wantMessage:   "Plus que 2 article(s) pour profiter de « four »",
		},
		{
			name:     "quantity too far",
			promo:    newPromo("five", SiteWideTarget{}, pct("10"), withConditions(Conditions{MinQuantity: 5})),
			cart:     newCart(item("p1", "10", 2)),
			wantNone: true,
		},
		{
			name: "amount close but quantity also short",
			promo: newPromo("both", CartTarget{}, pct("10"),
				withConditions(Conditions{MinAmount: dec("100"), MinQuantity: 5})),
			cart:     newCart(item("p3", "30", 2)),
			wantNone: true,
		},
		{
			name: "quantity close with amount met",
			promo: newPromo("both", CartTarget{}, pct("10"),
				withConditions(Conditions{MinAmount: dec("50"), MinQuantity: 3})),
			cart:          newCart(item("p3", "30", 2)),
			wantType:      ProgressQuantity,
			wantRemaining: "1",
			wantMessage:   "Plus que 1 article(s) pour profiter de « both »",
		},
		{
			name: "buy x get y partial set",
			promo: newPromo("b3g1", BuyXGetYTarget{
				Config: BuyXGetY{BuyQuantity: 3, GetQuantity: 1, ApplyOn: ApplyOnCheapest},
			}, Discount{}),
			cart:          newCart(item("p1", "10", 1)),
			wantType:      ProgressBuyXGetY,
			wantRemaining: "3",
			wantMessage:   "Ajoutez 3 article(s) pour profiter de « b3g1 »",
		},
		{
			name: "buy x get y without matching units",
			promo: newPromo("b3g1", BuyXGetYTarget{
				Config:     BuyXGetY{BuyQuantity: 3, GetQuantity: 1},
				ProductIDs: []string{"p3"},
			}, Discount{}),
			cart:     newCart(item("p1", "10", 1)),
			wantNone: true,
		},
		{
			name: "lowest tier threshold",
			promo: newPromo("tiers", CartTarget{Tiers: []Tier{
				{MinAmount: dec("100"), Discount: pct("20")},
				{MinAmount: dec("50"), Discount: pct("10")},
			}}, Discount{}),
			cart:          newCart(item("p3", "30", 1)),
			wantType:      ProgressAmount,
			wantRemaining: "20",
			wantMessage:   "Plus que 20.00 € pour profiter de « tiers »",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testEngine().Evaluate(tt.cart, []Promotion{tt.promo}, cat)

			assert.Empty(t, res.Applied)
			if tt.wantNone {
				assert.Empty(t, res.Progress)
				return
			}
			require.Len(t, res.Progress, 1)
			p := res.Progress[0]
			assert.Equal(t, tt.wantType, p.Type)
			assert.False(t, p.IsUnlocked)
			assert.True(t, dec(tt.wantRemaining).Equal(p.Remaining), p.Remaining.String())
			assert.Equal(t, tt.wantMessage, p.Message)
		})
	}
}

func TestEngine_Evaluate_Validity(t *testing.T) {
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)
	now := testNow

	tests := []struct {
		name   string
		modify func(*Promotion)
		want   bool
	}{
		{name: "valid", modify: func(*Promotion) {}, want: true},
		{name: "inactive", modify: func(p *Promotion) { p.Active = false }},
		{name: "not started", modify: func(p *Promotion) { p.StartDate = future }},
		{name: "expired", modify: func(p *Promotion) { p.EndDate = &past }},
		{name: "ends now", modify: func(p *Promotion) { p.EndDate = &now }, want: true},
		{name: "ends later", modify: func(p *Promotion) { p.EndDate = &future }, want: true},
		{
			name: "global cap reached",
			modify: func(p *Promotion) {
				p.Conditions.MaxUsageTotal = 10
				p.CurrentUsage = 10
			},
		},
		{
			name: "global cap not reached",
			modify: func(p *Promotion) {
				p.Conditions.MaxUsageTotal = 10
				p.CurrentUsage = 9
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPromo("promo", CartTarget{}, fixed("5"), tt.modify)
			assert.Equal(t, tt.want, p.IsValidAt(testNow))

			res := testEngine().Evaluate(newCart(item("p1", "10", 2)), []Promotion{p}, testCatalog())
			assert.Equal(t, tt.want, len(res.Applied) == 1)
		})
	}
}

func TestEngine_Evaluate_Codes(t *testing.T) {
	promos := []Promotion{newPromo("summer", CartTarget{}, pct("10"), withCode("ETE10"))}
	cart := newCart(item("p1", "10", 4))

	res := testEngine().Evaluate(cart, promos, testCatalog())
	assert.Empty(t, res.Applied)

	cart.PromoCode = "WRONG"
	res = testEngine().Evaluate(cart, promos, testCatalog())
	assert.Empty(t, res.Applied)

	cart.PromoCode = " ete10 "
	res = testEngine().Evaluate(cart, promos, testCatalog())
	require.Len(t, res.Applied, 1)
	assert.True(t, dec("4").Equal(res.TotalDiscount))
}

func TestEngine_Evaluate_Customer(t *testing.T) {
	firstPurchase := newPromo("welcome", UserSegmentTarget{Segment: SegmentFirstPurchase}, fixed("5"))
	conditioned := newPromo("newcomer", CartTarget{}, fixed("3"), withConditions(Conditions{UserSegment: SegmentFirstPurchase}))
	oncePerUser := newPromo("once", CartTarget{}, fixed("2"), stackable(), withConditions(Conditions{MaxUsagePerUser: 1}))

	tests := []struct {
		name     string
		customer Customer
		wantIDs  []string
	}{
		{
			name:     "new customer",
			customer: Customer{ID: "u1"},
			wantIDs:  []string{"welcome", "once"},
		},
		{
			name:     "returning customer",
			customer: Customer{ID: "u1", OrderCount: 2},
			wantIDs:  []string{"once"},
		},
		{
			name:     "per-user cap reached",
			customer: Customer{ID: "u1", OrderCount: 2, Usage: map[string]int{"once": 1}},
			wantIDs:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := newCart(item("p1", "10", 3))
			cart.Customer = tt.customer

			res := testEngine().Evaluate(cart, []Promotion{firstPurchase, conditioned, oncePerUser}, testCatalog())

			ids := []string{}
			for _, a := range res.Applied {
				ids = append(ids, a.Promotion.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestEngine_Evaluate_ExcludePromotedProducts(t *testing.T) {
	cart := newCart(item("p1", "10", 1), item("p4", "4", 1))

	tests := []struct {
		name  string
		promo Promotion
		want  string
	}{
		{
			name:  "item scoped",
			promo: newPromo("site", SiteWideTarget{}, pct("10"), withConditions(Conditions{ExcludePromotedProducts: true})),
			want:  "1",
		},
		{
			name:  "non-promo-only strategy",
			promo: newPromo("site", SiteWideTarget{}, pct("10"), withStrategy(StrategyNonPromoOnly)),
			want:  "1",
		},
		{
			name:  "cart base",
			promo: newPromo("cart", CartTarget{}, pct("10"), withConditions(Conditions{ExcludePromotedProducts: true})),
			want:  "1",
		},
		{
			name:  "promoted products included",
			promo: newPromo("site", SiteWideTarget{}, pct("10")),
			want:  "1.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testEngine().Evaluate(cart, []Promotion{tt.promo}, testCatalog())
			assert.True(t, dec(tt.want).Equal(res.TotalDiscount), res.TotalDiscount.String())
		})
	}
}

func TestEngine_Evaluate_DerivesSubtotal(t *testing.T) {
	cart := Cart{Items: []CartItem{item("p1", "10", 2)}}
	promos := []Promotion{newPromo("cart", CartTarget{}, pct("50"))}

	res := testEngine().Evaluate(cart, promos, testCatalog())
	assert.True(t, dec("10").Equal(res.TotalDiscount))
}

func TestEngine_Evaluate_Empty(t *testing.T) {
	res := testEngine().Evaluate(Cart{}, nil, nil)
	assert.Empty(t, res.Applied)
	assert.Empty(t, res.Progress)
	assert.True(t, res.TotalDiscount.IsZero())
	assert.False(t, res.FreeShipping)
}

func TestEngine_Evaluate_SubscriptionIgnored(t *testing.T) {
	promos := []Promotion{newPromo("sub", SubscriptionTarget{}, pct("50"))}
	res := testEngine().Evaluate(newCart(item("p1", "10", 1)), promos, testCatalog())
	assert.Empty(t, res.Applied)
	assert.Empty(t, res.Progress)
}

func TestEngine_ProductPromotions(t *testing.T) {
	cat := testCatalog()
	p2, _ := cat.Product("p2")
	p4, _ := cat.Product("p4")

	promos := []Promotion{
		newPromo("the10", CategoryTarget{CategorySlugs: []string{"the"}}, pct("10"), withPriority(2)),
		newPromo("p2fixed", ProductTarget{ProductIDs: []string{"p2"}}, fixed("5"), withPriority(1)),
		newPromo("cart", CartTarget{}, pct("50"), withPriority(9)),
		newPromo("code", ProductTarget{ProductIDs: []string{"p2", "p4"}}, pct("90"), withCode("SECRET")),
		newPromo("fullprice", SiteWideTarget{}, pct("20"), withConditions(Conditions{ExcludePromotedProducts: true})),
	}

	t.Run("best of matching promotions", func(t *testing.T) {
		res := testEngine().ProductPromotions(p2, promos, cat)

		ids := []string{}
		for _, p := range res.Promotions {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []string{"the10", "p2fixed", "fullprice"}, ids)
		require.NotNil(t, res.Best)
		assert.Equal(t, "p2fixed", res.Best.Promotion.ID)
		assert.True(t, dec("5").Equal(res.Best.DiscountAmount))
		assert.True(t, dec("15").Equal(res.Best.FinalPrice))
	})

	t.Run("reduced price product", func(t *testing.T) {
		res := testEngine().ProductPromotions(p4, promos, cat)
		assert.Empty(t, res.Promotions)
		assert.Nil(t, res.Best)
	})

	t.Run("ties keep higher priority", func(t *testing.T) {
		tied := []Promotion{
			newPromo("low", SiteWideTarget{}, pct("10"), withPriority(1)),
			newPromo("high", SiteWideTarget{}, fixed("2"), withPriority(5)),
		}
		res := testEngine().ProductPromotions(p2, tied, cat)
		require.NotNil(t, res.Best)
		assert.Equal(t, "high", res.Best.Promotion.ID)
	})

	t.Run("nil product", func(t *testing.T) {
		res := testEngine().ProductPromotions(nil, promos, cat)
		assert.Empty(t, res.Promotions)
		assert.Nil(t, res.Best)
	})
}

func TestEngine_ApplyCode(t *testing.T) {
	cat := testCatalog()
	past := testNow.Add(-time.Hour)

	tests := []struct {
		name        string
		promo       *Promotion
		code        string
		cart        Cart
		wantSuccess bool
		wantAmount  string
		wantFree    bool
		wantMessage string
	}{
		{
			name:        "unknown code",
			code:        "NOPE",
			cart:        newCart(item("p1", "10", 4)),
			wantAmount:  "0",
			wantMessage: "Code promo invalide",
		},
		{
			name:        "code mismatch",
			promo:       ptr(newPromo("summer", CartTarget{}, pct("10"), withCode("ETE10"))),
			code:        "HIVER",
			cart:        newCart(item("p1", "10", 4)),
			wantAmount:  "0",
			wantMessage: "Code promo invalide",
		},
		{
			name:        "automatic promotion",
			promo:       ptr(newPromo("auto", CartTarget{}, pct("10"))),
			code:        "auto",
			cart:        newCart(item("p1", "10", 4)),
			wantAmount:  "0",
			wantMessage: "Code promo invalide",
		},
		{
			name: "expired",
			promo: ptr(newPromo("summer", CartTarget{}, pct("10"), withCode("ETE10"), func(p *Promotion) {
				p.EndDate = &past
			})),
			code:        "ETE10",
			cart:        newCart(item("p1", "10", 4)),
			wantAmount:  "0",
			wantMessage: "Code promo invalide",
		},
		{
			name:        "minimum amount",
			promo:       ptr(newPromo("summer", CartTarget{}, pct("10"), withCode("ETE10"), withConditions(Conditions{MinAmount: dec("50")}))),
			code:        "ete10",
			cart:        newCart(item("p1", "10", 4)),
			wantAmount:  "0",
			wantMessage: "Montant minimum de 50.00 € requis",
		},
		{
			name:        "minimum quantity",
			promo:       ptr(newPromo("summer", CartTarget{}, pct("10"), withCode("ETE10"), withConditions(Conditions{MinQuantity: 3}))),
			code:        "ETE10",
			cart:        newCart(item("p3", "30", 2)),
			wantAmount:  "0",
			wantMessage: "Minimum de 3 article(s) requis",
		},
		{
			name:        "no matching item",
			promo:       ptr(newPromo("cafe", CategoryTarget{CategorySlugs: []string{"cafe"}}, pct("10"), withCode("CAFE"))),
			code:        "CAFE",
			cart:        newCart(item("p1", "10", 4)),
			wantAmount:  "0",
			wantMessage: "Ce code ne s'applique pas à votre panier",
		},
		{
			name:        "percentage",
			promo:       ptr(newPromo("summer", CartTarget{}, pct("10"), withCode("ETE10"))),
			code:        "ETE10",
			cart:        newCart(item("p1", "10", 4)),
			wantSuccess: true,
			wantAmount:  "4",
			wantMessage: "Code promo appliqué : -4.00 €",
		},
		{
			name:        "free shipping",
			promo:       ptr(newPromo("port", ShippingTarget{}, freeShip(), withCode("PORT"))),
			code:        "PORT",
			cart:        newCart(item("p1", "10", 1)),
			wantSuccess: true,
			wantAmount:  "0",
			wantFree:    true,
			wantMessage: "Code promo appliqué : livraison offerte",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testEngine().ApplyCode(tt.promo, tt.code, tt.cart, cat)

			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.True(t, dec(tt.wantAmount).Equal(res.DiscountAmount), res.DiscountAmount.String())
			assert.Equal(t, tt.wantFree, res.FreeShipping)
			assert.Equal(t, tt.wantMessage, res.Message)
		})
	}
}

func TestEngine_BestForSubscription(t *testing.T) {
	promos := []Promotion{
		newPromo("monthly", SubscriptionTarget{PlanIDs: []string{"monthly"}}, pct("25")),
		newPromo("any", SubscriptionTarget{}, fixed("3")),
		newPromo("cart", CartTarget{}, pct("90")),
	}

	best := testEngine().BestForSubscription("monthly", dec("20"), promos)
	require.NotNil(t, best)
	assert.Equal(t, "monthly", best.Promotion.ID)
	assert.True(t, dec("5").Equal(best.DiscountAmount))
	assert.True(t, dec("15").Equal(best.FinalPrice))

	best = testEngine().BestForSubscription("yearly", dec("20"), promos)
	require.NotNil(t, best)
	assert.Equal(t, "any", best.Promotion.ID)

	assert.Nil(t, testEngine().BestForSubscription("yearly", dec("20"), promos[2:]))
}

func TestEngine_UnknownProductsNeverMatchItems(t *testing.T) {
	promos := []Promotion{newPromo("site", SiteWideTarget{}, pct("10"))}
	res := testEngine().Evaluate(newCart(item("ghost", "10", 1)), promos, catalog.NewSnapshot(nil, nil))
	assert.Empty(t, res.Applied)
}

func ptr[T any](v T) *T {
	return &v
}
