package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/promo-engine/internal/domain/order"
)

// PlaceOrder decodes the order request, delegates to the order service and
// writes the placed order with the promotions it received.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req order.PlaceOrderRequest
	err := readObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			req.Items, err = decodeOrderItems(d)
		case "promoCode", "couponCode":
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
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		if status, msg, ok := mapOrderError(err); ok {
			writeError(w, status, msg)
			return
		}
		internalError(r.Context(), w, err)
		return
	}

	o := result.Order
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		encodeStr(e, "id", o.ID)
		if o.UserID != "" {
			encodeStr(e, "userId", o.UserID)
		}
		e.FieldStart("items")
		e.ArrStart()
		for _, item := range o.Items {
			e.ObjStart()
			encodeStr(e, "productId", item.ProductID)
			encodeInt(e, "quantity", int64(item.Quantity))
			encodeMoney(e, "unitPrice", item.UnitPrice)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("products")
		e.ArrStart()
		for i := range result.Products {
			h.encodeProduct(e, &result.Products[i])
		}
		e.ArrEnd()
		encodeMoney(e, "subtotal", o.Subtotal)
		encodeMoney(e, "discounts", o.Discounts)
		encodeMoney(e, "total", o.Total)
		encodeBool(e, "freeShipping", o.FreeShipping)
		if o.PromoCode != "" {
			encodeStr(e, "promoCode", o.PromoCode)
		}
		encodeInt(e, "pointsEarned", o.PointsEarned)
		e.FieldStart("appliedPromotions")
		e.ArrStart()
		if result.Promotions != nil {
			for i := range result.Promotions.Applied {
				encodeApplied(e, &result.Promotions.Applied[i])
			}
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

func decodeOrderItems(d *jx.Decoder) ([]order.OrderItem, error) {
	var items []order.OrderItem
	err := d.Arr(func(d *jx.Decoder) error {
		var item order.OrderItem
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "productId":
				item.ProductID, err = d.Str()
			case "quantity":
				item.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

// mapOrderError converts domain errors to HTTP status codes. ok is false for
// errors that are not the client's fault.
func mapOrderError(err error) (status int, msg string, ok bool) {
	if errors.Is(err, order.ErrEmptyItems) {
		return http.StatusBadRequest, err.Error(), true
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		return http.StatusUnprocessableEntity, iqErr.Error(), true
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		return http.StatusUnprocessableEntity, pnfErr.Error(), true
	}

	var codeErr *order.PromoCodeError
	if errors.As(err, &codeErr) {
		return http.StatusUnprocessableEntity, codeErr.Reason, true
	}

	if errors.Is(err, order.ErrInvalidPromoCode) {
		return http.StatusUnprocessableEntity, "invalid promo code", true
	}

	return 0, "", false
}
