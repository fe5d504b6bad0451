package api

import (
	"net/http"

	"salgados/models"
	"salgados/services"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var s models.ShopSettings
	if err := h.decode(r, &s); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Settings.Save(r.Context(), &s); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, &s)
}

func (h *Handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	var item models.MenuItem
	if err := h.decode(r, &item); err != nil {
		writeError(w, err)
		return
	}
	id, err := h.deps.Menu.Add(r.Context(), item)
	if err != nil {
		writeError(w, err)
		return
	}
	item.ID = id
	respond(w, http.StatusCreated, item)
}

func (h *Handler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	var item models.MenuItem
	if err := h.decode(r, &item); err != nil {
		writeError(w, err)
		return
	}
	item.ID = chi.URLParam(r, "id")
	if err := h.deps.Menu.Update(r.Context(), item); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, item)
}

func (h *Handler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Menu.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []models.Order
		err    error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		orders, err = h.deps.Orders.ListByStatus(r.Context(), models.OrderStatus(status))
	} else {
		orders, err = h.deps.Orders.List(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	o, err := h.deps.Workflow.Advance(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

// rejectOrder refuses a pending order; the order document is removed.
func (h *Handler) rejectOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.deps.Workflow.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) dailyStats(w http.ResponseWriter, r *http.Request) {
	s := h.settingsOrFail(w)
	if s == nil {
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = services.StoreLocalNow(s.Timezone, h.deps.Now()).Format("2006-01-02")
	}
	orders, err := h.deps.Orders.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := services.DailyStats(orders, date, s.Timezone)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, stats)
}
