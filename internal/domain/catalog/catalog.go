package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID             string
	Name           string
	Price          decimal.Decimal
	ReducedPrice   decimal.NullDecimal
	CategoryID     string
	SubCategoryIDs []string
	FormatID       string
	Variants       []Variant
	// Image is a path relative to the configured image base URL.
	Image string
}

// Variant is a purchasable presentation of a product (size, packaging...).
type Variant struct {
	ID       string
	FormatID string
	Price    decimal.Decimal
}

// HasReducedPrice reports whether the product already carries a markdown.
func (p *Product) HasReducedPrice() bool {
	return p.ReducedPrice.Valid
}

// SellingPrice returns the price a customer currently pays for one unit:
// the reduced price when set, the list price otherwise.
func (p *Product) SellingPrice() decimal.Decimal {
	if p.ReducedPrice.Valid {
		return p.ReducedPrice.Decimal
	}
	return p.Price
}

// Category groups products and owns a list of subcategories.
type Category struct {
	ID            string
	Slug          string
	Name          string
	SubCategories []SubCategory
}

// SubCategory is a second-level grouping inside a Category.
type SubCategory struct {
	ID   string
	Slug string
	Name string
}

// ProductRepository defines read operations for the product catalog.
type ProductRepository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	GetByCategory(ctx context.Context, categoryID string) ([]Product, error)
}

// CategoryRepository defines read operations for the category tree.
type CategoryRepository interface {
	GetAll(ctx context.Context) ([]Category, error)
}
