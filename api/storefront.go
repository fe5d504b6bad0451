package api

import (
	"net/http"
	"strconv"

	"salgados/docstore"
	"salgados/models"
	"salgados/services"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) settingsOrFail(w http.ResponseWriter) *models.ShopSettings {
	s := h.deps.Settings.Current()
	if s == nil {
		respond(w, http.StatusServiceUnavailable, errorBody("shop settings not loaded"))
	}
	return s
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	if s := h.settingsOrFail(w); s != nil {
		respond(w, http.StatusOK, s)
	}
}

func (h *Handler) storeStatus(w http.ResponseWriter, r *http.Request) {
	s := h.settingsOrFail(w)
	if s == nil {
		return
	}
	now := h.deps.Now()
	local := services.StoreLocalNow(s.Timezone, now)
	respond(w, http.StatusOK, storeStatusResponse{
		Open:      services.IsOpenNow(s.Schedule, s.Holidays, s.Timezone, now),
		LocalTime: local.Format("2006-01-02 15:04"),
		Today:     services.WorkingIntervalFor(s.Schedule, local.Format("2006-01-02")),
	})
}

func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	var (
		items []models.MenuItem
		err   error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		items, err = h.deps.Menu.ListByCategory(r.Context(), category)
	} else {
		items, err = h.deps.Menu.List(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) geoSearch(w http.ResponseWriter, r *http.Request) {
	var req geoSearchRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res := h.deps.Geo.ForwardGeocode(r.Context(), req.Query, req.PostalCode)
	if res == nil {
		respond(w, http.StatusNotFound, errorBody("address not found"))
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) geoReverse(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		respond(w, http.StatusBadRequest, errorBody("lat and lng are required"))
		return
	}
	addr := h.deps.Geo.ReverseGeocode(r.Context(), lat, lng)
	if addr == nil {
		respond(w, http.StatusNotFound, errorBody("address not found"))
		return
	}
	respond(w, http.StatusOK, addr)
}

func (h *Handler) registerPush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Users.RegisterPushChat(r.Context(), chi.URLParam(r, "id"), req.ChatID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.deps.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if userID := r.URL.Query().Get("userId"); userID != "" && userID != o.UserID {
		writeError(w, docstore.ErrNotFound)
		return
	}
	respond(w, http.StatusOK, o)
}

// getTracking returns the last published courier position of an order out
// for delivery.
func (h *Handler) getTracking(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Tracking.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}
