package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/promo-engine/internal/domain/order"
	"github.com/xenking/promo-engine/internal/domain/promotion"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, user_id, items, subtotal, discounts, total, free_shipping, promo_code, points_earned, promotion_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	countOrdersForUserSQL = `SELECT count(*) FROM orders WHERE user_id = $1`

	promotionUsageSQL = `SELECT pid, count(*) FROM orders, unnest(promotion_ids) AS pid
		WHERE user_id = $1 GROUP BY pid`
)

var (
	_ order.Repository       = (*OrderRepository)(nil)
	_ promotion.OrderHistory = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	ids := o.PromotionIDs
	if ids == nil {
		ids = []string{}
	}
	err = r.pool.QueryRow(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, o.Subtotal, o.Discounts, o.Total,
		o.FreeShipping, o.PromoCode, o.PointsEarned, ids,
	).Scan(&o.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}

	return nil
}

// CountForUser returns how many orders a user placed.
func (r *OrderRepository) CountForUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countOrdersForUserSQL, userID).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "count orders of %q", userID)
	}
	return n, nil
}

// PromotionUsage returns how many orders of a user each promotion was applied to.
func (r *OrderRepository) PromotionUsage(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, promotionUsageSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "promotion usage of %q", userID)
	}
	defer rows.Close()

	usage := make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, errors.Wrap(err, "scan promotion usage")
		}
		usage[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "promotion usage of %q", userID)
	}
	return usage, nil
}

