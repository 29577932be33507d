package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/catalog"
)

const (
	productColumns = `id, name, price, reduced_price, category_id, sub_category_ids, format_id, image`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	getProductsByCategorySQL = `SELECT ` + productColumns + ` FROM products WHERE category_id = $1 ORDER BY id`

	getVariantsSQL = `SELECT product_id, id, format_id, price
		FROM product_variants WHERE product_id = ANY($1) ORDER BY product_id, id`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			reduced_price = EXCLUDED.reduced_price,
			category_id = EXCLUDED.category_id,
			sub_category_ids = EXCLUDED.sub_category_ids,
			format_id = EXCLUDED.format_id,
			image = EXCLUDED.image`

	deleteVariantsSQL = `DELETE FROM product_variants WHERE product_id = $1`

	insertVariantSQL = `INSERT INTO product_variants (id, product_id, format_id, price) VALUES ($1, $2, $3, $4)`

	listCategoriesSQL = `SELECT id, slug, name FROM categories ORDER BY id`

	listSubCategoriesSQL = `SELECT category_id, id, slug, name FROM sub_categories ORDER BY category_id, id`

	upsertCategorySQL = `INSERT INTO categories (id, slug, name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET slug = EXCLUDED.slug, name = EXCLUDED.name`

	upsertSubCategorySQL = `INSERT INTO sub_categories (id, category_id, slug, name) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET category_id = EXCLUDED.category_id, slug = EXCLUDED.slug, name = EXCLUDED.name`
)

var (
	_ catalog.ProductRepository  = (*ProductRepository)(nil)
	_ catalog.CategoryRepository = (*CategoryRepository)(nil)
)

// ProductRepository implements catalog.ProductRepository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	return r.query(ctx, "list products", listProductsSQL)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	products, err := r.query(ctx, "get product", getProductByIDSQL, id)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, catalog.ErrNotFound
	}
	return &products[0], nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	return r.query(ctx, "get products by ids", getProductsByIDsSQL, ids)
}

// GetByCategory returns the products of one category.
func (r *ProductRepository) GetByCategory(ctx context.Context, categoryID string) ([]catalog.Product, error) {
	return r.query(ctx, "get products by category", getProductsByCategorySQL, categoryID)
}

// Upsert inserts or replaces a product together with its variants.
func (r *ProductRepository) Upsert(ctx context.Context, p catalog.Product) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		subs := p.SubCategoryIDs
		if subs == nil {
			subs = []string{}
		}
		if _, err := tx.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Price, p.ReducedPrice, p.CategoryID, subs, p.FormatID, p.Image,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		if _, err := tx.Exec(ctx, deleteVariantsSQL, p.ID); err != nil {
			return errors.Wrapf(err, "delete variants of %s", p.ID)
		}
		for _, v := range p.Variants {
			if _, err := tx.Exec(ctx, insertVariantSQL, v.ID, p.ID, v.FormatID, v.Price); err != nil {
				return errors.Wrapf(err, "insert variant %s", v.ID)
			}
		}
		return nil
	})
}

func (r *ProductRepository) query(ctx context.Context, op, sql string, args ...any) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, errors.Wrap(err, op)
	}
	return products, nil
}

func (r *ProductRepository) attachVariants(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := r.pool.Query(ctx, getVariantsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "get variants")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID string
			v         catalog.Variant
		)
		if err := rows.Scan(&productID, &v.ID, &v.FormatID, &v.Price); err != nil {
			return errors.Wrap(err, "scan variant")
		}
		if i, ok := index[productID]; ok {
			products[i].Variants = append(products[i].Variants, v)
		}
	}
	return rows.Err()
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p       catalog.Product
		price   decimal.Decimal
		reduced decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &price, &reduced, &p.CategoryID, &p.SubCategoryIDs, &p.FormatID, &p.Image,
	)
	p.Price = price
	p.ReducedPrice = reduced
	return p, err
}

// CategoryRepository implements catalog.CategoryRepository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// GetAll returns every category with its subcategories.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var c catalog.Category
		err := row.Scan(&c.ID, &c.Slug, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}

	index := make(map[string]int, len(categories))
	for i, c := range categories {
		index[c.ID] = i
	}

	rows, err = r.pool.Query(ctx, listSubCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list subcategories")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			categoryID string
			sc         catalog.SubCategory
		)
		if err := rows.Scan(&categoryID, &sc.ID, &sc.Slug, &sc.Name); err != nil {
			return nil, errors.Wrap(err, "scan subcategory")
		}
		if i, ok := index[categoryID]; ok {
			categories[i].SubCategories = append(categories[i].SubCategories, sc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list subcategories")
	}
	return categories, nil
}

// Upsert inserts or replaces a category and its subcategories.
func (r *CategoryRepository) Upsert(ctx context.Context, c catalog.Category) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertCategorySQL, c.ID, c.Slug, c.Name); err != nil {
			return errors.Wrapf(err, "upsert category %s", c.ID)
		}
		for _, sc := range c.SubCategories {
			if _, err := tx.Exec(ctx, upsertSubCategorySQL, sc.ID, c.ID, sc.Slug, sc.Name); err != nil {
				return errors.Wrapf(err, "upsert subcategory %s", sc.ID)
			}
		}
		return nil
	})
}
