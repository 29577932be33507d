package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/promo-engine/internal/domain/catalog"
	"github.com/xenking/promo-engine/internal/domain/promotion"
)

// ListProducts returns the catalog, narrowed to one category when the
// category query parameter is set.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []catalog.Product
		err      error
	)
	if categoryID := strings.TrimSpace(r.URL.Query().Get("category")); categoryID != "" {
		products, err = h.products.GetByCategory(r.Context(), categoryID)
	} else {
		products, err = h.products.List(r.Context())
	}
	if err != nil {
		internalError(r.Context(), w, errors.Wrap(err, "list products"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range products {
			h.encodeProduct(e, &products[i])
		}
		e.ArrEnd()
	})
}

// ProductPromotions returns the automatic promotions touching a product and
// the one giving it the best price.
func (h *Handler) ProductPromotions(w http.ResponseWriter, r *http.Request) {
	res, err := h.promotions.BestPromotionForProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		internalError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("promotions")
		e.ArrStart()
		for i := range res.Promotions {
			encodePromotion(e, &res.Promotions[i])
		}
		e.ArrEnd()
		e.FieldStart("bestDiscount")
		if res.Best == nil {
			e.Null()
		} else {
			e.ObjStart()
			e.FieldStart("promotion")
			encodePromotion(e, res.Best.Promotion)
			encodeMoney(e, "discountAmount", res.Best.DiscountAmount)
			encodeMoney(e, "finalPrice", res.Best.FinalPrice)
			e.ObjEnd()
		}
		e.ObjEnd()
	})
}

// encodeProduct writes a product. Image paths are prefixed with the
// configured imageBaseURL.
func (h *Handler) encodeProduct(e *jx.Encoder, p *catalog.Product) {
	e.ObjStart()
	encodeStr(e, "id", p.ID)
	encodeStr(e, "name", p.Name)
	encodeMoney(e, "price", p.Price)
	if p.HasReducedPrice() {
		encodeMoney(e, "reducedPrice", p.ReducedPrice.Decimal)
	}
	encodeStr(e, "categoryId", p.CategoryID)
	encodeStrings(e, "subCategoryIds", p.SubCategoryIDs)
	if p.FormatID != "" {
		encodeStr(e, "formatId", p.FormatID)
	}
	if len(p.Variants) > 0 {
		e.FieldStart("variants")
		e.ArrStart()
		for _, v := range p.Variants {
			e.ObjStart()
			encodeStr(e, "id", v.ID)
			encodeStr(e, "formatId", v.FormatID)
			encodeMoney(e, "price", v.Price)
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	if p.Image != "" {
		encodeStr(e, "image", h.imageBaseURL+p.Image)
	}
	e.ObjEnd()
}

func encodePromotion(e *jx.Encoder, p *promotion.Promotion) {
	if p == nil {
		e.Null()
		return
	}
	e.ObjStart()
	encodeStr(e, "id", p.ID)
	encodeStr(e, "name", p.Name)
	encodeStr(e, "type", string(p.Kind))
	if p.Code != "" {
		encodeStr(e, "code", p.Code)
	}
	encodeStr(e, "scope", string(p.Scope()))
	encodeStr(e, "discountType", string(p.Discount.Type))
	encodeMoney(e, "discountValue", p.Discount.Value)
	if p.Strategy != "" {
		encodeStr(e, "strategy", string(p.Strategy))
	}
	encodeBool(e, "isStackable", p.Stackable)
	encodeInt(e, "priority", int64(p.Priority))
	encodeTime(e, "startDate", p.StartDate)
	if p.EndDate != nil {
		encodeTime(e, "endDate", *p.EndDate)
	}
	e.ObjEnd()
}
