package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/loyalty"
)

// ListRewards returns the rewards affordable with ?points=N and the next one
// to unlock.
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	var points int64
	if raw := r.URL.Query().Get("points"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "points must be a non-negative integer")
			return
		}
		points = n
	}

	res, err := h.rewards.Catalog(r.Context(), points)
	if err != nil {
		internalError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		encodeInt(e, "points", res.Points)
		e.FieldStart("available")
		e.ArrStart()
		for i := range res.Available {
			encodeReward(e, &res.Available[i])
		}
		e.ArrEnd()
		e.FieldStart("next")
		if res.Next == nil {
			e.Null()
		} else {
			encodeReward(e, res.Next)
		}
		e.ObjEnd()
	})
}

// RedeemReward computes the effect of a reward on the posted cart total.
func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	var cartTotal decimal.Decimal
	err := readObject(r, func(d *jx.Decoder, key string) error {
		if key != "cartTotal" {
			return d.Skip()
		}
		v, err := decodeDecimal(d)
		cartTotal = v
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err == nil && cartTotal.IsNegative() {
		err = errors.New("cartTotal must not be negative")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.rewards.Redeem(r.Context(), r.PathValue("id"), cartTotal)
	switch {
	case errors.Is(err, loyalty.ErrNotFound):
		writeError(w, http.StatusNotFound, "reward not found")
		return
	case errors.Is(err, loyalty.ErrUnavailable):
		writeError(w, http.StatusUnprocessableEntity, "reward unavailable")
		return
	case err != nil:
		internalError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("reward")
		encodeReward(e, res.Reward)
		encodeMoney(e, "discountAmount", res.Amount)
		encodeBool(e, "freeShipping", res.FreeShipping)
		if res.GiftProductID != "" {
			encodeStr(e, "giftProductId", res.GiftProductID)
		}
		encodeMoney(e, "finalAmount", loyalty.CalculateFinalAmount(cartTotal, res))
		e.ObjEnd()
	})
}

func encodeReward(e *jx.Encoder, r *loyalty.Reward) {
	e.ObjStart()
	encodeStr(e, "id", r.ID)
	encodeStr(e, "name", r.Name)
	encodeStr(e, "type", string(r.Type))
	encodeInt(e, "pointsRequired", r.PointsRequired)
	encodeMoney(e, "value", r.Value)
	if r.PercentCap.Valid {
		encodeMoney(e, "percentCap", r.PercentCap.Decimal)
	}
	if r.GiftProductID != "" {
		encodeStr(e, "giftProductId", r.GiftProductID)
	}
	e.ObjEnd()
}
