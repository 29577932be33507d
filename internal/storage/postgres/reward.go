package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/promo-engine/internal/domain/loyalty"
)

const (
	rewardColumns = `id, name, type, points_required, value, percent_cap, gift_product_id, active`

	listRewardsSQL = `SELECT ` + rewardColumns + ` FROM rewards ORDER BY points_required, id`

	getRewardByIDSQL = `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1`

	upsertRewardSQL = `INSERT INTO rewards (` + rewardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			points_required = EXCLUDED.points_required,
			value = EXCLUDED.value,
			percent_cap = EXCLUDED.percent_cap,
			gift_product_id = EXCLUDED.gift_product_id,
			active = EXCLUDED.active`
)

var _ loyalty.Repository = (*RewardRepository)(nil)

// RewardRepository implements loyalty.Repository backed by PostgreSQL.
type RewardRepository struct {
	pool *pgxpool.Pool
}

// NewRewardRepository returns a RewardRepository that uses the given pool.
func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// List returns every reward, cheapest first.
func (r *RewardRepository) List(ctx context.Context) ([]loyalty.Reward, error) {
	rows, err := r.pool.Query(ctx, listRewardsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list rewards")
	}
	rewards, err := pgx.CollectRows(rows, scanReward)
	if err != nil {
		return nil, errors.Wrap(err, "list rewards")
	}
	return rewards, nil
}

// GetByID returns one reward. Returns loyalty.ErrNotFound when it does not exist.
func (r *RewardRepository) GetByID(ctx context.Context, id string) (*loyalty.Reward, error) {
	rows, err := r.pool.Query(ctx, getRewardByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get reward %q", id)
	}
	reward, err := pgx.CollectExactlyOneRow(rows, scanReward)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loyalty.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get reward %q", id)
	}
	return &reward, nil
}

// Upsert inserts or replaces a reward.
func (r *RewardRepository) Upsert(ctx context.Context, rw loyalty.Reward) error {
	if _, err := r.pool.Exec(ctx, upsertRewardSQL,
		rw.ID, rw.Name, string(rw.Type), rw.PointsRequired, rw.Value, rw.PercentCap, rw.GiftProductID, rw.Active,
	); err != nil {
		return errors.Wrapf(err, "upsert reward %s", rw.ID)
	}
	return nil
}

func scanReward(row pgx.CollectableRow) (loyalty.Reward, error) {
	var (
		rw  loyalty.Reward
		typ string
	)
	err := row.Scan(&rw.ID, &rw.Name, &typ, &rw.PointsRequired, &rw.Value, &rw.PercentCap, &rw.GiftProductID, &rw.Active)
	rw.Type = loyalty.RewardType(typ)
	return rw, err
}
