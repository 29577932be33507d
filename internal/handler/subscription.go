package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// SubscriptionPromotion returns the best automatic promotion for a
// subscription plan at the ?price=X monthly price.
func (h *Handler) SubscriptionPromotion(w http.ResponseWriter, r *http.Request) {
	price, err := decimal.NewFromString(r.URL.Query().Get("price"))
	if err != nil || price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must be a non-negative decimal")
		return
	}
	planID := r.PathValue("planId")

	best, err := h.promotions.BestSubscriptionPromotion(r.Context(), planID, price)
	if err != nil {
		internalError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		encodeStr(e, "planId", planID)
		encodeMoney(e, "price", price)
		e.FieldStart("bestDiscount")
		if best == nil {
			e.Null()
		} else {
			e.ObjStart()
			e.FieldStart("promotion")
			encodePromotion(e, best.Promotion)
			encodeMoney(e, "discountAmount", best.DiscountAmount)
			encodeMoney(e, "finalPrice", best.FinalPrice)
			e.ObjEnd()
		}
		e.ObjEnd()
	})
}
