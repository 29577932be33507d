package promotion

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/catalog"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return &Engine{now: func() time.Time { return testNow }}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pct(v string) Discount {
	return Discount{Type: DiscountPercentage, Value: dec(v)}
}

func fixed(v string) Discount {
	return Discount{Type: DiscountFixed, Value: dec(v)}
}

func freeShip() Discount {
	return Discount{Type: DiscountFreeShipping}
}

func item(id, price string, qty int) CartItem {
	return CartItem{ProductID: id, UnitPrice: dec(price), Quantity: qty}
}

func newPromo(id string, target Target, d Discount, opts ...func(*Promotion)) Promotion {
	p := Promotion{
		ID:        id,
		Name:      id,
		Kind:      KindAutomatic,
		Target:    target,
		Discount:  d,
		Strategy:  StrategyAll,
		Active:    true,
		StartDate: testNow.Add(-24 * time.Hour),
	}
	for _, o := range opts {
		o(&p)
	}
	return p
}

func withPriority(n int) func(*Promotion) {
	return func(p *Promotion) { p.Priority = n }
}

func stackable() func(*Promotion) {
	return func(p *Promotion) { p.Stackable = true }
}

func withStrategy(s Strategy) func(*Promotion) {
	return func(p *Promotion) { p.Strategy = s }
}

func withConditions(c Conditions) func(*Promotion) {
	return func(p *Promotion) { p.Conditions = c }
}

func withCode(code string) func(*Promotion) {
	return func(p *Promotion) {
		p.Kind = KindCode
		p.Code = code
	}
}

func newCart(items ...CartItem) Cart {
	return Cart{Items: items, Subtotal: subtotalOf(items)}
}

// testCatalog:
//
//	p1 the/the-vert format f100, 10
//	p2 the/the-noir variants f100,f250, 20
//	p3 cafe/grains format f1k, 30
//	p4 infusion/bio, 5 reduced to 4
//	p5 cafe, 120
func testCatalog() *catalog.Snapshot {
	return catalog.NewSnapshot(
		[]catalog.Product{
			{ID: "p1", Name: "Thé vert", Price: dec("10"), CategoryID: "c1", SubCategoryIDs: []string{"s1"}, FormatID: "f100"},
			{ID: "p2", Name: "Thé noir", Price: dec("20"), CategoryID: "c1", SubCategoryIDs: []string{"s2"}, Variants: []catalog.Variant{
				{ID: "v1", FormatID: "f100", Price: dec("20")},
				{ID: "v2", FormatID: "f250", Price: dec("45")},
			}},
			{ID: "p3", Name: "Café", Price: dec("30"), CategoryID: "c2", SubCategoryIDs: []string{"s3"}, FormatID: "f1k"},
			{ID: "p4", Name: "Tisane", Price: dec("5"), ReducedPrice: decimal.NewNullDecimal(dec("4")), CategoryID: "c3", SubCategoryIDs: []string{"s4"}},
			{ID: "p5", Name: "Coffret", Price: dec("120"), CategoryID: "c2"},
		},
		[]catalog.Category{
			{ID: "c1", Slug: "the", SubCategories: []catalog.SubCategory{{ID: "s1", Slug: "the-vert"}, {ID: "s2", Slug: "the-noir"}}},
			{ID: "c2", Slug: "cafe", SubCategories: []catalog.SubCategory{{ID: "s3", Slug: "grains"}}},
			{ID: "c3", Slug: "infusion", SubCategories: []catalog.SubCategory{{ID: "s4", Slug: "bio"}}},
		},
	)
}
