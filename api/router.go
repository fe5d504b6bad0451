package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"salgados/docstore"
	"salgados/models"
	"salgados/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type SettingsStore interface {
	Current() *models.ShopSettings
	Save(ctx context.Context, s *models.ShopSettings) error
}

type MenuStore interface {
	List(ctx context.Context) ([]models.MenuItem, error)
	ListByCategory(ctx context.Context, category string) ([]models.MenuItem, error)
	Get(ctx context.Context, id string) (*models.MenuItem, error)
	Add(ctx context.Context, item models.MenuItem) (string, error)
	Update(ctx context.Context, item models.MenuItem) error
	Delete(ctx context.Context, id string) error
}

type CartStore interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, userID string) error
}

type UserStore interface {
	DiscountEligible(ctx context.Context, id string) (bool, error)
	RegisterPushChat(ctx context.Context, id string, chatID int64) error
}

type OrderReader interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
}

type Workflow interface {
	Placed(ctx context.Context, o *models.Order)
	Advance(ctx context.Context, id string, to models.OrderStatus) (*models.Order, error)
	Reject(ctx context.Context, id string) (*models.Order, error)
}

type TrackingReader interface {
	Get(ctx context.Context, orderID string) (*services.TrackPosition, error)
}

type Geocoder interface {
	services.RouteDistancer
	ForwardGeocode(ctx context.Context, query, postalCode string) *services.GeoResult
	ReverseGeocode(ctx context.Context, lat, lng float64) *models.Address
}

// Deps wires the HTTP layer to the services.
type Deps struct {
	Settings SettingsStore
	Menu     MenuStore
	Carts    CartStore
	Users    UserStore
	Orders   OrderReader
	Workflow Workflow
	Checkout *services.Checkout
	Tracking TrackingReader
	Geo      Geocoder
	Quotes   *services.QuoteSessions
	Auth     *services.AdminAuth
	Now      func() time.Time
}

// Handler exposes the storefront and admin endpoints.
type Handler struct {
	deps     Deps
	validate *validator.Validate
}

func NewHandler(deps Deps) *Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handler{deps: deps, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// NewRouter returns the chi router with logging, recovery and request ids.
func NewRouter(h *Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", h.getSettings)           // GET    /api/settings
		r.Get("/store/status", h.storeStatus)       // GET    /api/store/status
		r.Get("/menu", h.listMenu)                  // GET    /api/menu
		r.Post("/geo/search", h.geoSearch)          // POST   /api/geo/search
		r.Get("/geo/reverse", h.geoReverse)         // GET    /api/geo/reverse?lat=&lng=
		r.Post("/users/{id}/push", h.registerPush)  // POST   /api/users/{id}/push
		r.Get("/orders/{id}", h.getOrder)           // GET    /api/orders/{id}
		r.Get("/orders/{id}/tracking", h.getTracking)
		r.Post("/orders", h.placeOrder)             // POST   /api/orders
		r.Post("/checkout/validate", h.validateCheckout)
		r.Post("/checkout/{sessionId}/quote", h.quote)

		r.Get("/carts/{userId}", h.getCart)
		r.Post("/carts/{userId}/lines", h.addCartLine)
		r.Patch("/carts/{userId}/lines/{index}", h.setCartLineQuantity)
		r.Delete("/carts/{userId}/lines/{index}", h.removeCartLine)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Put("/settings", h.putSettings)
			r.Post("/menu", h.createMenuItem)
			r.Put("/menu/{id}", h.updateMenuItem)
			r.Delete("/menu/{id}", h.deleteMenuItem)
			r.Get("/orders", h.listOrders)
			r.Patch("/orders/{id}/status", h.updateOrderStatus)
			r.Delete("/orders/{id}", h.rejectOrder)
			r.Get("/stats", h.dailyStats)
		})
	})
}

// requireAdmin checks HTTP basic auth against the admin password, with a
// cooldown per client address after failures.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			respond(w, http.StatusUnauthorized, errorBody("admin credentials required"))
			return
		}
		client, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			client = r.RemoteAddr
		}
		if wait := h.deps.Auth.Wait(client); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(wait))
			respond(w, http.StatusTooManyRequests, map[string]any{"error": "too many attempts", "retryAfter": wait})
			return
		}
		granted, wait, err := h.deps.Auth.Login(client, password)
		switch {
		case err != nil:
			log.Printf("api: admin login: %v", err)
			respond(w, http.StatusForbidden, errorBody("admin access is disabled"))
		case granted:
			next.ServeHTTP(w, r)
		default:
			if wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(wait))
			}
			respond(w, http.StatusUnauthorized, errorBody("invalid admin password"))
		}
	})
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &badRequest{msg: "invalid JSON: " + err.Error()}
	}
	if err := h.validate.Struct(dst); err != nil {
		return &badRequest{msg: err.Error()}
	}
	return nil
}

type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		br *badRequest
		de *services.DeliveryError
		ve *services.ValidationError
	)
	switch {
	case errors.As(err, &br):
		respond(w, http.StatusBadRequest, errorBody(br.msg))
	case errors.As(err, &de):
		body := map[string]any{"error": err.Error(), "kind": de.Kind.Error()}
		if errors.Is(de.Kind, services.ErrOutOfRange) {
			body["distanceKm"] = de.DistanceKm
			body["maxRadiusKm"] = de.MaxRadiusKm
		}
		respond(w, http.StatusUnprocessableEntity, body)
	case errors.As(err, &ve):
		respond(w, http.StatusUnprocessableEntity, errorBody(ve.Reason))
	case errors.Is(err, services.ErrItemUnavailable),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrBoxSelection):
		respond(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, services.ErrInvalidDate), errors.Is(err, services.ErrInvalidClock):
		respond(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrStaleQuote):
		respond(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, services.ErrOrderFailed):
		respond(w, http.StatusServiceUnavailable, errorBody(services.ErrOrderFailed.Error()))
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, services.ErrLineNotFound):
		respond(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, docstore.ErrPermissionDenied):
		respond(w, http.StatusForbidden, errorBody("permission denied"))
	default:
		log.Printf("api: %v", err)
		respond(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
