package loyalty

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when a reward cannot be redeemed on a cart.
var ErrUnavailable = errors.New("reward unavailable")

// Catalog is what a customer holding some points can see.
type Catalog struct {
	Points    int64
	Available []Reward
	Next      *Reward
}

// Service exposes the reward catalog and redemption.
type Service struct {
	repo          Repository
	pointsPerEuro decimal.Decimal
}

// NewService creates a loyalty Service awarding pointsPerEuro points per euro paid.
func NewService(repo Repository, pointsPerEuro decimal.Decimal) *Service {
	return &Service{repo: repo, pointsPerEuro: pointsPerEuro}
}

// PointsFor returns the points earned for a paid amount.
func (s *Service) PointsFor(amount decimal.Decimal) int64 {
	return PointsFor(amount, s.pointsPerEuro)
}

// Catalog lists the rewards affordable with points and the next one to unlock.
func (s *Service) Catalog(ctx context.Context, points int64) (*Catalog, error) {
	rewards, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list rewards")
	}
	return &Catalog{
		Points:    points,
		Available: FindAvailableRewards(points, rewards),
		Next:      FindNextReward(points, rewards),
	}, nil
}

// Redeem applies a reward to a cart total.
func (s *Service) Redeem(ctx context.Context, rewardID string, cartTotal decimal.Decimal) (*Redemption, error) {
	r, err := s.repo.GetByID(ctx, rewardID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get reward")
	}

	res := ApplyReward(r, cartTotal)
	if res == nil {
		return nil, ErrUnavailable
	}
	zctx.From(ctx).Debug("Reward redeemed",
		zap.String("reward_id", r.ID),
		zap.String("type", string(r.Type)),
		zap.String("amount", res.Amount.String()),
	)
	return res, nil
}
