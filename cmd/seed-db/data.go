package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/catalog"
	"github.com/xenking/promo-engine/internal/domain/loyalty"
	"github.com/xenking/promo-engine/internal/domain/promotion"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedCategories() []catalog.Category {
	return []catalog.Category{
		{
			ID: "cat-the", Slug: "the", Name: "Thés",
			SubCategories: []catalog.SubCategory{
				{ID: "sub-the-vert", Slug: "the-vert", Name: "Thé vert"},
				{ID: "sub-the-noir", Slug: "the-noir", Name: "Thé noir"},
				{ID: "sub-the-bio", Slug: "bio", Name: "Bio"},
			},
		},
		{
			ID: "cat-cafe", Slug: "cafe", Name: "Cafés",
			SubCategories: []catalog.SubCategory{
				{ID: "sub-cafe-grains", Slug: "grains", Name: "En grains"},
				{ID: "sub-cafe-bio", Slug: "bio", Name: "Bio"},
			},
		},
		{
			ID: "cat-infusion", Slug: "infusion", Name: "Infusions",
		},
		{
			ID: "cat-accessoire", Slug: "accessoire", Name: "Accessoires",
		},
	}
}

func seedProducts() []catalog.Product {
	return []catalog.Product{
		{
			ID: "sencha", Name: "Sencha du Japon", Price: price("12.90"),
			CategoryID: "cat-the", SubCategoryIDs: []string{"sub-the-vert", "sub-the-bio"},
			FormatID: "sachet-100g", Image: "sencha.jpg",
			Variants: []catalog.Variant{
				{ID: "sencha-100", FormatID: "sachet-100g", Price: price("12.90")},
				{ID: "sencha-250", FormatID: "sachet-250g", Price: price("28.50")},
			},
		},
		{
			ID: "darjeeling", Name: "Darjeeling First Flush", Price: price("18.00"),
			ReducedPrice: decimal.NewNullDecimal(price("14.40")),
			CategoryID:   "cat-the", SubCategoryIDs: []string{"sub-the-noir"},
			FormatID: "sachet-100g", Image: "darjeeling.jpg",
		},
		{
			ID: "moka", Name: "Moka d'Éthiopie", Price: price("9.50"),
			CategoryID: "cat-cafe", SubCategoryIDs: []string{"sub-cafe-grains", "sub-cafe-bio"},
			FormatID: "paquet-250g", Image: "moka.jpg",
		},
		{
			ID: "verveine", Name: "Verveine citronnée", Price: price("6.20"),
			CategoryID: "cat-infusion", FormatID: "boite-20", Image: "verveine.jpg",
		},
		{
			ID: "theiere", Name: "Théière en fonte", Price: price("49.00"),
			CategoryID: "cat-accessoire", Image: "theiere.jpg",
		},
	}
}

func seedPromotions() []promotion.Promotion {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2027, 12, 31, 23, 59, 59, 0, time.UTC)
	pct := func(v int64) promotion.Discount {
		return promotion.Discount{Type: promotion.DiscountPercentage, Value: decimal.NewFromInt(v)}
	}

	return []promotion.Promotion{
		{
			ID: "promo-the-vert", Name: "Thés verts -15%", Kind: promotion.KindAutomatic,
			Target:   promotion.SubCategoryTarget{SubCategorySlugs: []string{"the-vert"}},
			Discount: pct(15), Strategy: promotion.StrategyAll, Priority: 10,
			StartDate: start, EndDate: &end, Active: true,
		},
		{
			ID: "promo-cafe", Name: "Cafés -10%", Kind: promotion.KindAutomatic,
			Target:   promotion.CategoryTarget{CategorySlugs: []string{"cafe"}},
			Discount: pct(10), Strategy: promotion.StrategyNonPromoOnly, Priority: 8,
			StartDate: start, Active: true,
		},
		{
			ID: "promo-theiere", Name: "Théière -5 €", Kind: promotion.KindAutomatic,
			Target:   promotion.ProductTarget{ProductIDs: []string{"theiere"}},
			Discount: promotion.Discount{Type: promotion.DiscountFixed, Value: price("5")},
			Priority: 5, StartDate: start, Active: true,
		},
		{
			ID: "promo-format-250", Name: "Grands formats -20%", Kind: promotion.KindAutomatic,
			Target:   promotion.FormatTarget{FormatIDs: []string{"sachet-250g"}},
			Discount: pct(20), Strategy: promotion.StrategyMostExpensive, Priority: 6,
			StartDate: start, Active: true,
		},
		{
			ID: "promo-paliers", Name: "Paliers panier", Kind: promotion.KindAutomatic,
			Target: promotion.CartTarget{Tiers: []promotion.Tier{
				{MinAmount: price("50"), Discount: pct(5)},
				{MinAmount: price("80"), Discount: pct(10)},
				{MinAmount: price("120"), Discount: promotion.Discount{Type: promotion.DiscountFixed, Value: price("20")}},
			}},
			Stackable: true, Priority: 3, StartDate: start, Active: true,
		},
		{
			ID: "promo-livraison", Name: "Livraison offerte dès 45 €", Kind: promotion.KindAutomatic,
			Target:     promotion.ShippingTarget{},
			Discount:   promotion.Discount{Type: promotion.DiscountFreeShipping},
			Conditions: promotion.Conditions{MinAmount: price("45")},
			Stackable:  true, Priority: 1, StartDate: start, Active: true,
		},
		{
			ID: "promo-infusions-3-1", Name: "3 infusions achetées, 1 offerte", Kind: promotion.KindAutomatic,
			Target: promotion.BuyXGetYTarget{
				Config:     promotion.BuyXGetY{BuyQuantity: 3, GetQuantity: 1, ApplyOn: promotion.ApplyOnCheapest},
				ProductIDs: []string{"verveine"},
			},
			Stackable: true, Priority: 4, StartDate: start, Active: true,
		},
		{
			ID: "promo-bienvenue", Name: "Bienvenue", Kind: promotion.KindCode, Code: "BIENVENUE",
			Target:   promotion.UserSegmentTarget{Segment: promotion.SegmentFirstPurchase},
			Discount: pct(10),
			Conditions: promotion.Conditions{
				MinAmount:       price("30"),
				MaxUsagePerUser: 1,
			},
			Stackable: true, Priority: 20, StartDate: start, Active: true,
		},
		{
			ID: "promo-soldes", Name: "Soldes -5 € dès 2 articles", Kind: promotion.KindCode, Code: "SOLDES5",
			Target:   promotion.SiteWideTarget{},
			Discount: promotion.Discount{Type: promotion.DiscountFixed, Value: price("5")},
			Strategy: promotion.StrategyProportional,
			Conditions: promotion.Conditions{
				MinQuantity:             2,
				MaxUsageTotal:           500,
				ExcludePromotedProducts: true,
			},
			Priority: 15, StartDate: start, EndDate: &end, Active: true,
		},
		{
			ID: "promo-abonnement", Name: "Abonnement -15%", Kind: promotion.KindAutomatic,
			Target:   promotion.SubscriptionTarget{PlanIDs: []string{"box-mensuelle"}},
			Discount: pct(15), Priority: 2, StartDate: start, Active: true,
		},
	}
}

func seedRewards() []loyalty.Reward {
	return []loyalty.Reward{
		{ID: "reward-livraison", Name: "Livraison offerte", Type: loyalty.RewardShipping, PointsRequired: 100, Active: true},
		{ID: "reward-5", Name: "5 € offerts", Type: loyalty.RewardAmount, PointsRequired: 250, Value: price("5"), Active: true},
		{
			ID: "reward-15pct", Name: "-15% sur le panier", Type: loyalty.RewardPercent, PointsRequired: 500,
			Value: price("15"), PercentCap: decimal.NewNullDecimal(price("30")), Active: true,
		},
		{
			ID: "reward-verveine", Name: "Verveine offerte", Type: loyalty.RewardGift, PointsRequired: 400,
			GiftProductID: "verveine", Active: true,
		},
	}
}
