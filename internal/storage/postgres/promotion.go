package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/promotion"
)

const (
	promotionColumns = `id, name, kind, code, scope, discount_type, discount_value,
		target_ids, target_segment, tiers, buy_x_get_y, strategy, stackable, priority,
		min_amount, min_quantity, max_usage_per_user, max_usage_total, user_segment, exclude_promoted,
		start_date, end_date, active, current_usage`

	getActivePromotionsSQL = `SELECT ` + promotionColumns + ` FROM promotions
		WHERE active = TRUE
		  AND start_date <= now()
		  AND (end_date IS NULL OR end_date >= now())
		  AND (max_usage_total = 0 OR current_usage < max_usage_total)
		ORDER BY priority DESC, id`

	getPromotionByCodeSQL = `SELECT ` + promotionColumns + ` FROM promotions
		WHERE UPPER(code) = UPPER(TRIM($1))`

	incrementPromotionUsageSQL = `UPDATE promotions SET current_usage = current_usage + 1 WHERE id = $1`

	upsertPromotionSQL = `INSERT INTO promotions (` + promotionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			code = EXCLUDED.code,
			scope = EXCLUDED.scope,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			target_ids = EXCLUDED.target_ids,
			target_segment = EXCLUDED.target_segment,
			tiers = EXCLUDED.tiers,
			buy_x_get_y = EXCLUDED.buy_x_get_y,
			strategy = EXCLUDED.strategy,
			stackable = EXCLUDED.stackable,
			priority = EXCLUDED.priority,
			min_amount = EXCLUDED.min_amount,
			min_quantity = EXCLUDED.min_quantity,
			max_usage_per_user = EXCLUDED.max_usage_per_user,
			max_usage_total = EXCLUDED.max_usage_total,
			user_segment = EXCLUDED.user_segment,
			exclude_promoted = EXCLUDED.exclude_promoted,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			active = EXCLUDED.active`
)

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Repository backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// GetActive returns the promotions valid now, highest priority first.
func (r *PromotionRepository) GetActive(ctx context.Context) ([]promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, getActivePromotionsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "get active promotions")
	}
	promos, err := pgx.CollectRows(rows, scanPromotion)
	if err != nil {
		return nil, errors.Wrap(err, "get active promotions")
	}
	return promos, nil
}

// GetByCode looks up a promotion by its code, ignoring case.
// Returns promotion.ErrNotFound when no promotion carries the code.
func (r *PromotionRepository) GetByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, getPromotionByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "get promotion by code %q", code)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get promotion by code %q", code)
	}
	return &p, nil
}

// IncrementUsage bumps the global usage counter of a promotion.
func (r *PromotionRepository) IncrementUsage(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, incrementPromotionUsageSQL, id)
	if err != nil {
		return errors.Wrapf(err, "increment usage of %q", id)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrNotFound
	}
	return nil
}

// Upsert inserts or replaces a promotion definition. The usage counter of an
// existing promotion is preserved.
func (r *PromotionRepository) Upsert(ctx context.Context, p promotion.Promotion) error {
	row, err := toPromotionRow(p)
	if err != nil {
		return errors.Wrapf(err, "encode promotion %s", p.ID)
	}
	if _, err := r.pool.Exec(ctx, upsertPromotionSQL,
		row.ID, row.Name, row.Kind, row.Code, row.Scope, row.DiscountType, row.DiscountValue,
		row.TargetIDs, row.TargetSegment, row.Tiers, row.BuyXGetY, row.Strategy, row.Stackable, row.Priority,
		row.MinAmount, row.MinQuantity, row.MaxUsagePerUser, row.MaxUsageTotal, row.UserSegment, row.ExcludePromoted,
		row.StartDate, row.EndDate, row.Active, row.CurrentUsage,
	); err != nil {
		return errors.Wrapf(err, "upsert promotion %s", p.ID)
	}
	return nil
}

// promotionRow is the flat storage shape of a promotion.
type promotionRow struct {
	ID              string
	Name            string
	Kind            string
	Code            *string
	Scope           string
	DiscountType    string
	DiscountValue   decimal.Decimal
	TargetIDs       []string
	TargetSegment   string
	Tiers           []byte
	BuyXGetY        []byte
	Strategy        string
	Stackable       bool
	Priority        int32
	MinAmount       decimal.Decimal
	MinQuantity     int32
	MaxUsagePerUser int32
	MaxUsageTotal   int32
	UserSegment     string
	ExcludePromoted bool
	StartDate       time.Time
	EndDate         *time.Time
	Active          bool
	CurrentUsage    int32
}

type tierJSON struct {
	MinAmount     decimal.Decimal `json:"min_amount"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
}

type buyXGetYJSON struct {
	BuyQuantity int    `json:"buy_quantity"`
	GetQuantity int    `json:"get_quantity"`
	ApplyOn     string `json:"apply_on"`
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var r promotionRow
	if err := row.Scan(
		&r.ID, &r.Name, &r.Kind, &r.Code, &r.Scope, &r.DiscountType, &r.DiscountValue,
		&r.TargetIDs, &r.TargetSegment, &r.Tiers, &r.BuyXGetY, &r.Strategy, &r.Stackable, &r.Priority,
		&r.MinAmount, &r.MinQuantity, &r.MaxUsagePerUser, &r.MaxUsageTotal, &r.UserSegment, &r.ExcludePromoted,
		&r.StartDate, &r.EndDate, &r.Active, &r.CurrentUsage,
	); err != nil {
		return promotion.Promotion{}, err
	}
	return fromPromotionRow(r)
}

func fromPromotionRow(r promotionRow) (promotion.Promotion, error) {
	target, err := decodeTarget(r)
	if err != nil {
		return promotion.Promotion{}, errors.Wrapf(err, "decode target of %s", r.ID)
	}
	p := promotion.Promotion{
		ID:     r.ID,
		Name:   r.Name,
		Kind:   promotion.Kind(r.Kind),
		Target: target,
		Discount: promotion.Discount{
			Type:  promotion.DiscountType(r.DiscountType),
			Value: r.DiscountValue,
		},
		Strategy:  promotion.Strategy(r.Strategy),
		Stackable: r.Stackable,
		Priority:  int(r.Priority),
		Conditions: promotion.Conditions{
			MinAmount:               r.MinAmount,
			MinQuantity:             int(r.MinQuantity),
			MaxUsagePerUser:         int(r.MaxUsagePerUser),
			MaxUsageTotal:           int(r.MaxUsageTotal),
			UserSegment:             promotion.Segment(r.UserSegment),
			ExcludePromotedProducts: r.ExcludePromoted,
		},
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Active:       r.Active,
		CurrentUsage: int(r.CurrentUsage),
	}
	if r.Code != nil {
		p.Code = *r.Code
	}
	return p, nil
}

func decodeTarget(r promotionRow) (promotion.Target, error) {
	ids := r.TargetIDs
	switch promotion.Scope(r.Scope) {
	case promotion.ScopeProduct:
		return promotion.ProductTarget{ProductIDs: ids}, nil
	case promotion.ScopeCategory:
		return promotion.CategoryTarget{CategorySlugs: ids}, nil
	case promotion.ScopeSubCategory:
		return promotion.SubCategoryTarget{SubCategorySlugs: ids}, nil
	case promotion.ScopeFormat:
		return promotion.FormatTarget{FormatIDs: ids}, nil
	case promotion.ScopeSiteWide:
		return promotion.SiteWideTarget{}, nil
	case promotion.ScopeShipping:
		return promotion.ShippingTarget{}, nil
	case promotion.ScopeUserSegment:
		return promotion.UserSegmentTarget{Segment: promotion.Segment(r.TargetSegment)}, nil
	case promotion.ScopeSubscription:
		return promotion.SubscriptionTarget{PlanIDs: ids}, nil
	case promotion.ScopeCart:
		var t promotion.CartTarget
		if len(r.Tiers) == 0 {
			return t, nil
		}
		var tiers []tierJSON
		if err := json.Unmarshal(r.Tiers, &tiers); err != nil {
			return nil, errors.Wrap(err, "unmarshal tiers")
		}
		for _, tj := range tiers {
			t.Tiers = append(t.Tiers, promotion.Tier{
				MinAmount: tj.MinAmount,
				Discount: promotion.Discount{
					Type:  promotion.DiscountType(tj.DiscountType),
					Value: tj.DiscountValue,
				},
			})
		}
		return t, nil
	case promotion.ScopeBuyXGetY:
		t := promotion.BuyXGetYTarget{ProductIDs: ids}
		// A missing config stays zero and yields no discount.
		if len(r.BuyXGetY) == 0 {
			return t, nil
		}
		var cfg buyXGetYJSON
		if err := json.Unmarshal(r.BuyXGetY, &cfg); err != nil {
			return nil, errors.Wrap(err, "unmarshal buy_x_get_y")
		}
		t.Config = promotion.BuyXGetY{
			BuyQuantity: cfg.BuyQuantity,
			GetQuantity: cfg.GetQuantity,
			ApplyOn:     promotion.ApplyOn(cfg.ApplyOn),
		}
		return t, nil
	default:
		return nil, errors.Errorf("unknown scope %q", r.Scope)
	}
}

func toPromotionRow(p promotion.Promotion) (promotionRow, error) {
	r := promotionRow{
		ID:              p.ID,
		Name:            p.Name,
		Kind:            string(p.Kind),
		Scope:           string(p.Scope()),
		DiscountType:    string(p.Discount.Type),
		DiscountValue:   p.Discount.Value,
		TargetIDs:       []string{},
		TargetSegment:   string(promotion.SegmentAll),
		Strategy:        string(p.Strategy),
		Stackable:       p.Stackable,
		Priority:        int32(p.Priority),
		MinAmount:       p.Conditions.MinAmount,
		MinQuantity:     int32(p.Conditions.MinQuantity),
		MaxUsagePerUser: int32(p.Conditions.MaxUsagePerUser),
		MaxUsageTotal:   int32(p.Conditions.MaxUsageTotal),
		UserSegment:     string(p.Conditions.UserSegment),
		ExcludePromoted: p.Conditions.ExcludePromotedProducts,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		Active:          p.Active,
		CurrentUsage:    int32(p.CurrentUsage),
	}
	if p.Code != "" {
		code := p.Code
		r.Code = &code
	}
	if r.Strategy == "" {
		r.Strategy = string(promotion.StrategyAll)
	}
	if r.UserSegment == "" {
		r.UserSegment = string(promotion.SegmentAll)
	}
	if r.DiscountType == "" {
		// Tiered and buy-x-get-y rules carry their effect in the target.
		r.DiscountType = string(promotion.DiscountPercentage)
	}

	switch t := p.Target.(type) {
	case promotion.ProductTarget:
		r.TargetIDs = nonNil(t.ProductIDs)
	case promotion.CategoryTarget:
		r.TargetIDs = nonNil(t.CategorySlugs)
	case promotion.SubCategoryTarget:
		r.TargetIDs = nonNil(t.SubCategorySlugs)
	case promotion.FormatTarget:
		r.TargetIDs = nonNil(t.FormatIDs)
	case promotion.SubscriptionTarget:
		r.TargetIDs = nonNil(t.PlanIDs)
	case promotion.UserSegmentTarget:
		r.TargetSegment = string(t.Segment)
	case promotion.CartTarget:
		if len(t.Tiers) > 0 {
			tiers := make([]tierJSON, len(t.Tiers))
			for i, tier := range t.Tiers {
				tiers[i] = tierJSON{
					MinAmount:     tier.MinAmount,
					DiscountType:  string(tier.Discount.Type),
					DiscountValue: tier.Discount.Value,
				}
			}
			data, err := json.Marshal(tiers)
			if err != nil {
				return r, errors.Wrap(err, "marshal tiers")
			}
			r.Tiers = data
		}
	case promotion.BuyXGetYTarget:
		r.TargetIDs = nonNil(t.ProductIDs)
		data, err := json.Marshal(buyXGetYJSON{
			BuyQuantity: t.Config.BuyQuantity,
			GetQuantity: t.Config.GetQuantity,
			ApplyOn:     string(t.Config.ApplyOn),
		})
		if err != nil {
			return r, errors.Wrap(err, "marshal buy_x_get_y")
		}
		r.BuyXGetY = data
	case nil:
		return r, errors.New("promotion has no target")
	}
	return r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
