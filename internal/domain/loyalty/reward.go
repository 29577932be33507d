package loyalty

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested reward does not exist.
var ErrNotFound = errors.New("reward not found")

// RewardType is the kind of benefit a reward grants.
type RewardType string

const (
	RewardShipping RewardType = "shipping"
	RewardAmount   RewardType = "amount"
	RewardPercent  RewardType = "percent"
	RewardGift     RewardType = "gift"
)

// Reward is a loyalty benefit customers redeem with points.
type Reward struct {
	ID             string
	Name           string
	Type           RewardType
	PointsRequired int64
	// Value is a euro amount for RewardAmount and a percentage for RewardPercent.
	Value         decimal.Decimal
	PercentCap    decimal.NullDecimal
	GiftProductID string
	Active        bool
}

// Redemption is the effect of a reward on a cart.
type Redemption struct {
	Reward        *Reward
	FreeShipping  bool
	Amount        decimal.Decimal
	Percent       decimal.Decimal
	Cap           decimal.NullDecimal
	GiftProductID string
}

// Repository provides read access to the reward catalog.
type Repository interface {
	List(ctx context.Context) ([]Reward, error)
	GetByID(ctx context.Context, id string) (*Reward, error)
}

var hundred = decimal.NewFromInt(100)

// PointsFor converts a paid amount into loyalty points.
func PointsFor(amount, ratePerEuro decimal.Decimal) int64 {
	if !amount.IsPositive() || !ratePerEuro.IsPositive() {
		return 0
	}
	return amount.Mul(ratePerEuro).Round(0).IntPart()
}

// ApplyReward computes the effect of a reward on a cart total. It returns nil
// for inactive rewards and empty carts.
func ApplyReward(r *Reward, cartTotal decimal.Decimal) *Redemption {
	if r == nil || !r.Active || !cartTotal.IsPositive() {
		return nil
	}

	res := &Redemption{Reward: r, Amount: decimal.Zero}
	switch r.Type {
	case RewardShipping:
		res.FreeShipping = true
	case RewardAmount:
		res.Amount = bound(r.Value, cartTotal)
	case RewardPercent:
		amount := cartTotal.Mul(r.Value).Div(hundred)
		if r.PercentCap.Valid {
			amount = decimal.Min(amount, r.PercentCap.Decimal)
		}
		res.Percent = r.Value
		res.Cap = r.PercentCap
		res.Amount = bound(amount, cartTotal)
	case RewardGift:
		res.GiftProductID = r.GiftProductID
	default:
		return nil
	}
	return res
}

// CalculateFinalAmount subtracts a redemption from a total, floored at zero.
func CalculateFinalAmount(total decimal.Decimal, r *Redemption) decimal.Decimal {
	if r != nil {
		total = total.Sub(r.Amount)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(2)
}

// FindNextReward returns the cheapest active reward the customer cannot
// afford yet, or nil.
func FindNextReward(points int64, rewards []Reward) *Reward {
	var next *Reward
	for i := range rewards {
		r := &rewards[i]
		if !r.Active || r.PointsRequired <= points {
			continue
		}
		if next == nil || r.PointsRequired < next.PointsRequired {
			next = r
		}
	}
	return next
}

// FindAvailableRewards returns the active rewards the customer can afford,
// most expensive first.
func FindAvailableRewards(points int64, rewards []Reward) []Reward {
	out := make([]Reward, 0, len(rewards))
	for _, r := range rewards {
		if r.Active && r.PointsRequired <= points {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PointsRequired > out[j].PointsRequired
	})
	return out
}

// bound clamps amount to [0, total] and rounds it to cents.
func bound(amount, total decimal.Decimal) decimal.Decimal {
	amount = decimal.Min(amount, total)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}
