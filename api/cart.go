package api

import (
	"net/http"
	"strconv"

	"salgados/models"
	"salgados/services"

	"github.com/go-chi/chi/v5"
)

type cartResponse struct {
	*models.Cart
	Units    int    `json:"units"`
	Subtotal string `json:"subtotal"`
}

func newCartResponse(c *models.Cart) cartResponse {
	return cartResponse{Cart: c, Units: services.UnitCount(c.Lines), Subtotal: services.Subtotal(c.Lines).StringFixed(2)}
}

func lineIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, &badRequest{msg: "line index must be a number"}
	}
	return i, nil
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.Carts.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, newCartResponse(c))
}

func (h *Handler) addCartLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	item, err := h.deps.Menu.Get(ctx, req.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.updateCart(w, r, func(lines []models.CartLine) ([]models.CartLine, error) {
		return services.AddToCart(lines, *item, req.Quantity, req.Customization)
	})
}

func (h *Handler) setCartLineQuantity(w http.ResponseWriter, r *http.Request) {
	i, err := lineIndex(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req lineQuantityRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.updateCart(w, r, func(lines []models.CartLine) ([]models.CartLine, error) {
		return services.SetLineQuantity(lines, i, req.Quantity)
	})
}

func (h *Handler) removeCartLine(w http.ResponseWriter, r *http.Request) {
	i, err := lineIndex(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.updateCart(w, r, func(lines []models.CartLine) ([]models.CartLine, error) {
		return services.RemoveLine(lines, i)
	})
}

func (h *Handler) updateCart(w http.ResponseWriter, r *http.Request, change func([]models.CartLine) ([]models.CartLine, error)) {
	ctx := r.Context()
	c, err := h.deps.Carts.Get(ctx, chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	lines, err := change(c.Lines)
	if err != nil {
		writeError(w, err)
		return
	}
	c.Lines = lines
	if err := h.deps.Carts.Save(ctx, c); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, newCartResponse(c))
}
