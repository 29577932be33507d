package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/promotion"
)

// CartPromotions evaluates every active promotion against the posted cart.
func (h *Handler) CartPromotions(w http.ResponseWriter, r *http.Request) {
	var req promotion.CartRequest
	err := readObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			req.Items, err = decodeCartItems(d)
		case "subtotal":
			req.Subtotal, err = decodeDecimal(d)
		case "promoCode":
			req.PromoCode, err = d.Str()
		case "userId":
			req.UserID, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err == nil && req.Subtotal.IsNegative() {
		err = errors.New("subtotal must not be negative")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.promotions.CalculateCartPromotions(r.Context(), req)
	if err != nil {
		internalError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("appliedPromotions")
		e.ArrStart()
		for i := range res.Applied {
			encodeApplied(e, &res.Applied[i])
		}
		e.ArrEnd()
		e.FieldStart("progressIndicators")
		e.ArrStart()
		for i := range res.Progress {
			encodeProgress(e, &res.Progress[i])
		}
		e.ArrEnd()
		encodeMoney(e, "totalDiscount", res.TotalDiscount)
		encodeBool(e, "freeShipping", res.FreeShipping)
		e.ObjEnd()
	})
}

// ApplyPromoCode evaluates a single entered code against the posted cart.
func (h *Handler) ApplyPromoCode(w http.ResponseWriter, r *http.Request) {
	var (
		code, userID string
		cartTotal    decimal.Decimal
		items        []promotion.CartItem
	)
	err := readObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = d.Str()
		case "cartTotal":
			cartTotal, err = decodeDecimal(d)
		case "items":
			items, err = decodeCartItems(d)
		case "userId":
			userID, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err == nil && code == "" {
		err = errors.New("code required")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.promotions.ApplyPromoCode(r.Context(), code, cartTotal, items, userID)
	if err != nil {
		internalError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		encodeBool(e, "success", res.Success)
		if res.Promotion != nil {
			e.FieldStart("promotion")
			encodePromotion(e, res.Promotion)
		}
		encodeMoney(e, "discountAmount", res.DiscountAmount)
		encodeBool(e, "freeShipping", res.FreeShipping)
		encodeStr(e, "message", res.Message)
		e.ObjEnd()
	})
}

func decodeCartItems(d *jx.Decoder) ([]promotion.CartItem, error) {
	var items []promotion.CartItem
	err := d.Arr(func(d *jx.Decoder) error {
		var item promotion.CartItem
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "productId":
				item.ProductID, err = d.Str()
			case "unitPrice":
				item.UnitPrice, err = decodeDecimal(d)
			case "quantity":
				item.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		if item.ProductID == "" {
			return errors.New("productId required")
		}
		if item.Quantity <= 0 {
			return errors.Errorf("quantity must be greater than 0 for product %s", item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return errors.Errorf("unitPrice must not be negative for product %s", item.ProductID)
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

func encodeApplied(e *jx.Encoder, a *promotion.AppliedPromotion) {
	e.ObjStart()
	e.FieldStart("promotion")
	encodePromotion(e, a.Promotion)
	encodeMoney(e, "discountAmount", a.DiscountAmount)
	encodeBool(e, "freeShipping", a.FreeShipping)
	e.FieldStart("affectedItems")
	e.ArrStart()
	for _, item := range a.AffectedItems {
		e.ObjStart()
		encodeStr(e, "productId", item.ProductID)
		encodeInt(e, "quantity", int64(item.Quantity))
		encodeMoney(e, "discountAmount", item.Amount)
		e.ObjEnd()
	}
	e.ArrEnd()
	encodeStr(e, "message", a.Message)
	e.ObjEnd()
}

func encodeProgress(e *jx.Encoder, p *promotion.Progress) {
	e.ObjStart()
	e.FieldStart("promotion")
	encodePromotion(e, p.Promotion)
	encodeStr(e, "type", string(p.Type))
	e.FieldStart("current")
	e.Raw([]byte(p.Current.String()))
	e.FieldStart("target")
	e.Raw([]byte(p.Target.String()))
	e.FieldStart("remaining")
	e.Raw([]byte(p.Remaining.String()))
	encodeBool(e, "isUnlocked", p.IsUnlocked)
	encodeStr(e, "message", p.Message)
	e.ObjEnd()
}
