package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"salgados/docstore"
	"salgados/models"
	"salgados/services"

	"github.com/shopspring/decimal"
)

const adminPassword = "kitchen-door-42"

type fakeSettings struct{ s *models.ShopSettings }

func (f *fakeSettings) Current() *models.ShopSettings { return f.s }

func (f *fakeSettings) Save(_ context.Context, s *models.ShopSettings) error {
	if err := services.ValidateShopSettings(s); err != nil {
		return &services.ValidationError{Reason: err.Error(), Err: err}
	}
	f.s = s
	return nil
}

type memMenu struct{ m map[string]models.MenuItem }

func (r *memMenu) List(context.Context) ([]models.MenuItem, error) {
	out := make([]models.MenuItem, 0, len(r.m))
	for _, it := range r.m {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memMenu) ListByCategory(ctx context.Context, category string) ([]models.MenuItem, error) {
	all, _ := r.List(ctx)
	var out []models.MenuItem
	for _, it := range all {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memMenu) Get(_ context.Context, id string) (*models.MenuItem, error) {
	it, ok := r.m[id]
	if !ok {
		return nil, fmt.Errorf("menu item %s: %w", id, docstore.ErrNotFound)
	}
	return &it, nil
}

func (r *memMenu) Add(_ context.Context, item models.MenuItem) (string, error) {
	if err := services.ValidateMenuItem(&item); err != nil {
		return "", &services.ValidationError{Reason: err.Error(), Err: err}
	}
	item.ID = fmt.Sprintf("item-%d", len(r.m)+1)
	r.m[item.ID] = item
	return item.ID, nil
}

func (r *memMenu) Update(_ context.Context, item models.MenuItem) error {
	if _, ok := r.m[item.ID]; !ok {
		return docstore.ErrNotFound
	}
	r.m[item.ID] = item
	return nil
}

func (r *memMenu) Delete(_ context.Context, id string) error {
	if _, ok := r.m[id]; !ok {
		return docstore.ErrNotFound
	}
	delete(r.m, id)
	return nil
}

type memCarts struct{ m map[string]*models.Cart }

func (c *memCarts) Get(_ context.Context, userID string) (*models.Cart, error) {
	if cart, ok := c.m[userID]; ok {
		cp := *cart
		cp.Lines = append([]models.CartLine(nil), cart.Lines...)
		return &cp, nil
	}
	return &models.Cart{UserID: userID, Lines: []models.CartLine{}}, nil
}

func (c *memCarts) Save(_ context.Context, cart *models.Cart) error {
	c.m[cart.UserID] = cart
	return nil
}

func (c *memCarts) Delete(_ context.Context, userID string) error {
	delete(c.m, userID)
	return nil
}

type memUsers struct {
	eligible map[string]bool
	chats    map[string]int64
}

func (u *memUsers) DiscountEligible(_ context.Context, id string) (bool, error) {
	return u.eligible[id], nil
}

func (u *memUsers) RegisterPushChat(_ context.Context, id string, chatID int64) error {
	u.chats[id] = chatID
	return nil
}

type memOrders struct {
	m     map[string]models.Order
	users *memUsers
}

func (o *memOrders) Place(_ context.Context, order *models.Order, consumeDiscountFor string) error {
	o.m[order.ID] = *order
	if consumeDiscountFor != "" {
		o.users.eligible[consumeDiscountFor] = false
	}
	return nil
}

func (o *memOrders) Get(_ context.Context, id string) (*models.Order, error) {
	order, ok := o.m[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, docstore.ErrNotFound)
	}
	return &order, nil
}

func (o *memOrders) List(context.Context) ([]models.Order, error) {
	var out []models.Order
	for _, order := range o.m {
		out = append(out, order)
	}
	return out, nil
}

func (o *memOrders) ListByStatus(_ context.Context, status models.OrderStatus) ([]models.Order, error) {
	var out []models.Order
	for _, order := range o.m {
		if order.Status == status {
			out = append(out, order)
		}
	}
	return out, nil
}

func (o *memOrders) UpdateStatus(_ context.Context, id string, status models.OrderStatus) error {
	order, ok := o.m[id]
	if !ok {
		return docstore.ErrNotFound
	}
	order.Status = status
	o.m[id] = order
	return nil
}

func (o *memOrders) Delete(_ context.Context, id string) error {
	delete(o.m, id)
	return nil
}

type fakeGeo struct {
	meters     float64
	found      *models.GeoPoint
	lastPostal string
}

func (g *fakeGeo) RouteDistance(context.Context, models.GeoPoint, models.GeoPoint) (float64, bool) {
	return g.meters, g.meters > 0
}

func (g *fakeGeo) ForwardGeocode(_ context.Context, query, postalCode string) *services.GeoResult {
	g.lastPostal = postalCode
	if g.found == nil {
		return nil
	}
	addr := &models.Address{Street: query, City: "Lisboa"}
	addr.SetPoint(*g.found)
	return &services.GeoResult{Point: *g.found, Address: addr}
}

func (g *fakeGeo) ReverseGeocode(_ context.Context, lat, lng float64) *models.Address {
	if g.found == nil {
		return nil
	}
	addr := &models.Address{Street: "Rua Augusta", City: "Lisboa"}
	addr.SetPoint(models.GeoPoint{Lat: lat, Lng: lng})
	return addr
}

type memTracking map[string]services.TrackPosition

func (m memTracking) Get(_ context.Context, orderID string) (*services.TrackPosition, error) {
	p, ok := m[orderID]
	if !ok {
		return nil, fmt.Errorf("tracking %s: %w", orderID, docstore.ErrNotFound)
	}
	return &p, nil
}

type fixture struct {
	router   http.Handler
	settings *fakeSettings
	carts    *memCarts
	users    *memUsers
	orders   *memOrders
	geo      *fakeGeo
	tracking memTracking
}

// openAllDay is an every-day 00:00-00:00 schedule so tests do not depend on the clock.
func openAllDay() *models.ShopSettings {
	s := services.DefaultShopSettings("Salgados", "Europe/Lisbon")
	for _, d := range models.Weekdays {
		s.Schedule[d] = models.DaySchedule{Open: true, Start: "00:00", End: "00:00"}
	}
	s.Location = &models.GeoPoint{Lat: 38.7223, Lng: -9.1393}
	return s
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hash, err := services.HashAdminPassword(adminPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users := &memUsers{eligible: map[string]bool{"u1": true}, chats: map[string]int64{}}
	f := &fixture{
		settings: &fakeSettings{s: openAllDay()},
		carts:    &memCarts{m: map[string]*models.Cart{}},
		users:    users,
		orders:   &memOrders{m: map[string]models.Order{}, users: users},
		geo:      &fakeGeo{meters: 2500},
		tracking: memTracking{},
	}
	menu := &memMenu{m: map[string]models.MenuItem{
		"coxinha": {ID: "coxinha", Category: models.CategorySalgados, Name: "Coxinha", Price: decimal.RequireFromString("1.20"), Available: true},
		"bolo":    {ID: "bolo", Category: models.CategoryDoces, Name: "Bolo", Price: decimal.RequireFromString("15"), Available: true, RequiresScheduling: true},
	}}
	now := func() time.Time { return time.Date(2025, 1, 6, 14, 40, 0, 0, time.UTC) }
	n := 0
	newID := func() string { n++; return fmt.Sprintf("order-%d", n) }

	h := NewHandler(Deps{
		Settings: f.settings,
		Menu:     menu,
		Carts:    f.carts,
		Users:    users,
		Orders:   f.orders,
		Workflow: services.NewOrderWorkflow(f.orders, services.NopNotifier{}, nil, f.settings),
		Checkout: services.NewCheckout(f.settings, f.geo, f.orders, newID).WithClock(now),
		Tracking: f.tracking,
		Geo:      f.geo,
		Quotes:   services.NewQuoteSessions(time.Minute),
		Auth:     services.NewAdminAuth(hash, services.NewLoginThrottle()),
		Now:      now,
	})
	f.router = NewRouter(h)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func asAdmin(password string) func(*http.Request) {
	return func(r *http.Request) { r.SetBasicAuth("admin", password) }
}

func fromAddr(addr string) func(*http.Request) {
	return func(r *http.Request) { r.RemoteAddr = addr }
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, want, rec.Body.String())
	}
}

func TestPlaceOrder_PickupWithFirstOrderDiscount(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/carts/u1/lines", map[string]any{"itemId": "coxinha", "quantity": 10})
	expectStatus(t, rec, http.StatusOK)
	var cart cartResponse
	decodeBody(t, rec, &cart)
	if cart.Subtotal != "12.00" || cart.Units != 10 {
		t.Fatalf("cart = %+v", cart)
	}

	rec = f.do(t, http.MethodPost, "/api/orders", map[string]any{
		"userId":      "u1",
		"fulfillment": map[string]any{"method": "pickup", "pickupTime": "18:00"},
	})
	expectStatus(t, rec, http.StatusCreated)
	var order models.Order
	decodeBody(t, rec, &order)

	if !order.Pricing.GrandTotal.Equal(decimal.RequireFromString("11.40")) {
		t.Errorf("total = %s, want 11.40", order.Pricing.GrandTotal)
	}
	if order.Discount == nil || !order.Discount.Amount.Equal(decimal.RequireFromString("0.60")) {
		t.Errorf("discount = %+v", order.Discount)
	}
	if order.Status != models.StatusPending {
		t.Errorf("status = %s", order.Status)
	}
	if _, ok := f.carts.m["u1"]; ok {
		t.Error("cart should be cleared after the order is stored")
	}
	if f.users.eligible["u1"] {
		t.Error("first-order discount should be consumed")
	}

	// the cart is gone, so a second submit has nothing to order
	rec = f.do(t, http.MethodPost, "/api/orders", map[string]any{
		"userId":      "u1",
		"fulfillment": map[string]any{"method": "pickup", "pickupTime": "18:00"},
	})
	expectStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestPlaceOrder_ForcedSchedulingKeepsCart(t *testing.T) {
	f := newFixture(t)
	expectStatus(t, f.do(t, http.MethodPost, "/api/carts/u2/lines", map[string]any{"itemId": "coxinha", "quantity": 150}), http.StatusOK)

	delivery := map[string]any{
		"userId": "u2",
		"fulfillment": map[string]any{
			"method":  "deliver",
			"address": map[string]any{"street": "Rua Augusta", "city": "Lisboa", "lat": 38.71, "lng": -9.13},
		},
	}
	rec := f.do(t, http.MethodPost, "/api/checkout/validate", delivery)
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = f.do(t, http.MethodPost, "/api/orders", delivery)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if len(f.carts.m["u2"].Lines) != 1 {
		t.Error("a rejected checkout must leave the cart alone")
	}
	if len(f.orders.m) != 0 {
		t.Error("no order should be stored")
	}
}

func TestValidateCheckout_DeliveryPricing(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/carts/u3/lines", map[string]any{"itemId": "coxinha", "quantity": 10})

	rec := f.do(t, http.MethodPost, "/api/checkout/validate", map[string]any{
		"userId": "u3",
		"fulfillment": map[string]any{
			"method":  "deliver",
			"address": map[string]any{"street": "Rua Augusta", "city": "Lisboa", "lat": 38.71, "lng": -9.13},
		},
	})
	expectStatus(t, rec, http.StatusOK)
	var resp checkoutResponse
	decodeBody(t, rec, &resp)
	p := resp.Pricing
	if p == nil || !p.DeliveryFee.Equal(decimal.RequireFromString("2.50")) || !p.GrandTotal.Equal(decimal.RequireFromString("14.50")) {
		t.Fatalf("pricing = %+v", p)
	}
	if resp.ForceScheduling != "" {
		t.Errorf("unexpected force scheduling: %q", resp.ForceScheduling)
	}
}

func TestValidateCheckout_BadRequest(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		body any
	}{
		{"missing user", map[string]any{"fulfillment": map[string]any{"method": "pickup"}}},
		{"unknown method", map[string]any{"userId": "u1", "fulfillment": map[string]any{"method": "drone"}}},
		{"delivery without address", map[string]any{"userId": "u1", "fulfillment": map[string]any{"method": "deliver"}}},
		{"address without street", map[string]any{"userId": "u1", "fulfillment": map[string]any{
			"method": "deliver", "address": map[string]any{"city": "Lisboa"},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectStatus(t, f.do(t, http.MethodPost, "/api/checkout/validate", tc.body), http.StatusBadRequest)
		})
	}
}

func TestQuote_GeocodesBeforePricing(t *testing.T) {
	f := newFixture(t)
	f.geo.meters = 3500
	f.geo.found = &models.GeoPoint{Lat: 38.74, Lng: -9.15}

	rec := f.do(t, http.MethodPost, "/api/checkout/s1/quote", map[string]any{
		"address": map[string]any{"street": "Rua Augusta", "number": "10", "city": "Lisboa"},
	})
	expectStatus(t, rec, http.StatusOK)
	var resp quoteResponse
	decodeBody(t, rec, &resp)
	if !resp.Quote.Fee.Equal(decimal.RequireFromString("3.50")) || resp.Quote.DistanceKm != 3.5 {
		t.Errorf("quote = %+v", resp.Quote)
	}
	if !resp.Address.Geocoded() {
		t.Error("quoted address should carry coordinates")
	}
}

func TestQuote_Errors(t *testing.T) {
	f := newFixture(t)
	addr := map[string]any{"address": map[string]any{"street": "Rua Augusta", "city": "Lisboa"}}

	// geocoding found nothing: reported as a lookup failure, not as a pricing error
	rec := f.do(t, http.MethodPost, "/api/checkout/s1/quote", addr)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	var notFound struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	decodeBody(t, rec, &notFound)
	if notFound.Error != services.ErrAddressNotFound.Error() || notFound.Kind != "" {
		t.Errorf("geocode miss body = %+v", notFound)
	}

	f.geo.found = &models.GeoPoint{Lat: 38.9, Lng: -9.3}
	f.geo.meters = 20000
	rec = f.do(t, http.MethodPost, "/api/checkout/s1/quote", addr)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	var body struct {
		DistanceKm  float64 `json:"distanceKm"`
		MaxRadiusKm float64 `json:"maxRadiusKm"`
	}
	decodeBody(t, rec, &body)
	if body.DistanceKm != 20 || body.MaxRadiusKm != 17 {
		t.Errorf("out of range body = %+v", body)
	}
}

func TestCart_LineEdits(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/carts/u1/lines", map[string]any{"itemId": "coxinha", "quantity": 2})
	f.do(t, http.MethodPost, "/api/carts/u1/lines", map[string]any{"itemId": "coxinha", "quantity": 3})
	if got := f.carts.m["u1"].Lines; len(got) != 1 || got[0].Quantity != 5 {
		t.Fatalf("same item should merge into one line: %+v", got)
	}

	expectStatus(t, f.do(t, http.MethodPost, "/api/carts/u1/lines", map[string]any{"itemId": "nope", "quantity": 1}), http.StatusNotFound)
	expectStatus(t, f.do(t, http.MethodPatch, "/api/carts/u1/lines/4", map[string]any{"quantity": 1}), http.StatusNotFound)
	expectStatus(t, f.do(t, http.MethodDelete, "/api/carts/u1/lines/x", nil), http.StatusBadRequest)

	rec := f.do(t, http.MethodPatch, "/api/carts/u1/lines/0", map[string]any{"quantity": 0})
	expectStatus(t, rec, http.StatusOK)
	if len(f.carts.m["u1"].Lines) != 0 {
		t.Error("quantity 0 should drop the line")
	}
}

func TestStoreStatus(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/store/status", nil)
	expectStatus(t, rec, http.StatusOK)
	var resp storeStatusResponse
	decodeBody(t, rec, &resp)
	if !resp.Open || resp.LocalTime != "2025-01-06 14:40" {
		t.Errorf("status = %+v", resp)
	}

	f.settings.s = nil
	expectStatus(t, f.do(t, http.MethodGet, "/api/store/status", nil), http.StatusServiceUnavailable)
}

func TestAdmin_Authentication(t *testing.T) {
	f := newFixture(t)

	expectStatus(t, f.do(t, http.MethodGet, "/api/admin/orders", nil), http.StatusUnauthorized)

	rec := f.do(t, http.MethodGet, "/api/admin/orders", nil, asAdmin("guess"), fromAddr("10.0.0.1:5000"))
	expectStatus(t, rec, http.StatusUnauthorized)
	if rec.Header().Get("Retry-After") != "2" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}

	// the right password still waits out the cooldown
	rec = f.do(t, http.MethodGet, "/api/admin/orders", nil, asAdmin(adminPassword), fromAddr("10.0.0.1:5000"))
	expectStatus(t, rec, http.StatusTooManyRequests)

	rec = f.do(t, http.MethodGet, "/api/admin/orders", nil, asAdmin(adminPassword), fromAddr("10.0.0.2:5000"))
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "[]\n" {
		t.Errorf("empty list body = %q", rec.Body.String())
	}
}

func TestAdmin_OrderLifecycle(t *testing.T) {
	f := newFixture(t)
	admin := asAdmin(adminPassword)
	f.do(t, http.MethodPost, "/api/carts/u1/lines", map[string]any{"itemId": "coxinha", "quantity": 10})
	expectStatus(t, f.do(t, http.MethodPost, "/api/orders", map[string]any{
		"userId":      "u1",
		"fulfillment": map[string]any{"method": "pickup", "pickupTime": "18:00"},
	}), http.StatusCreated)

	status := func(s models.OrderStatus) *httptest.ResponseRecorder {
		return f.do(t, http.MethodPatch, "/api/admin/orders/order-1/status", map[string]any{"status": s}, admin)
	}
	expectStatus(t, status(models.StatusPreparing), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodDelete, "/api/admin/orders/order-1", nil, admin), http.StatusConflict)
	expectStatus(t, status(models.StatusCompleted), http.StatusConflict)
	expectStatus(t, status(models.StatusReady), http.StatusOK)
	// pickup orders skip the delivery leg
	expectStatus(t, status(models.StatusOutForDelivery), http.StatusConflict)
	expectStatus(t, status(models.StatusCompleted), http.StatusOK)

	rec := f.do(t, http.MethodGet, "/api/admin/orders?status="+string(models.StatusCompleted), nil, admin)
	expectStatus(t, rec, http.StatusOK)
	var done []models.Order
	decodeBody(t, rec, &done)
	if len(done) != 1 || done[0].ID != "order-1" {
		t.Errorf("completed orders = %+v", done)
	}

	rec = f.do(t, http.MethodGet, "/api/admin/stats?date=2025-01-06", nil, admin)
	expectStatus(t, rec, http.StatusOK)
	var stats models.DailyStats
	decodeBody(t, rec, &stats)
	if stats.OrdersCount != 1 || !stats.GrandRevenue.Equal(decimal.RequireFromString("11.40")) {
		t.Errorf("stats = %+v", stats)
	}
	expectStatus(t, f.do(t, http.MethodGet, "/api/admin/stats?date=06-01-2025", nil, admin), http.StatusBadRequest)
}

func TestAdmin_RejectDeletesPendingOrder(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/carts/u1/lines", map[string]any{"itemId": "coxinha", "quantity": 1})
	f.do(t, http.MethodPost, "/api/orders", map[string]any{
		"userId":      "u1",
		"fulfillment": map[string]any{"method": "pickup", "pickupTime": "18:00"},
	})

	rec := f.do(t, http.MethodDelete, "/api/admin/orders/order-1", nil, asAdmin(adminPassword))
	expectStatus(t, rec, http.StatusOK)
	if _, ok := f.orders.m["order-1"]; ok {
		t.Error("rejected order should be removed")
	}
	expectStatus(t, f.do(t, http.MethodGet, "/api/orders/order-1", nil), http.StatusNotFound)
}

func TestAdmin_Settings(t *testing.T) {
	f := newFixture(t)
	admin := asAdmin(adminPassword)

	broken := openAllDay()
	broken.Schedule[models.Monday] = models.DaySchedule{Open: true, Start: "10:00", End: "10:00"}
	expectStatus(t, f.do(t, http.MethodPut, "/api/admin/settings", broken, admin), http.StatusUnprocessableEntity)

	updated := openAllDay()
	updated.MaxRadiusKm = 5
	expectStatus(t, f.do(t, http.MethodPut, "/api/admin/settings", updated, admin), http.StatusOK)
	if f.settings.s.MaxRadiusKm != 5 {
		t.Error("settings not saved")
	}

	rec := f.do(t, http.MethodGet, "/api/settings", nil)
	expectStatus(t, rec, http.StatusOK)
	var got models.ShopSettings
	decodeBody(t, rec, &got)
	if got.MaxRadiusKm != 5 {
		t.Errorf("served settings = %+v", got)
	}
}

func TestAdmin_MenuCRUD(t *testing.T) {
	f := newFixture(t)
	admin := asAdmin(adminPassword)

	rec := f.do(t, http.MethodPost, "/api/admin/menu", map[string]any{
		"category": "bebidas", "name": "Guaraná", "price": "1.80", "available": true,
	}, admin)
	expectStatus(t, rec, http.StatusCreated)
	var item models.MenuItem
	decodeBody(t, rec, &item)
	if item.ID == "" {
		t.Fatal("created item has no id")
	}

	expectStatus(t, f.do(t, http.MethodPost, "/api/admin/menu", map[string]any{"category": "pizza", "name": "X", "price": "1"}, admin), http.StatusUnprocessableEntity)
	expectStatus(t, f.do(t, http.MethodPut, "/api/admin/menu/missing", map[string]any{"category": "bebidas", "name": "X", "price": "1"}, admin), http.StatusNotFound)
	expectStatus(t, f.do(t, http.MethodDelete, "/api/admin/menu/"+item.ID, nil, admin), http.StatusNoContent)

	rec = f.do(t, http.MethodGet, "/api/menu?category=salgados", nil)
	expectStatus(t, rec, http.StatusOK)
	var items []models.MenuItem
	decodeBody(t, rec, &items)
	if len(items) != 1 || items[0].ID != "coxinha" {
		t.Errorf("filtered menu = %+v", items)
	}
}

func TestGeoAndPush(t *testing.T) {
	f := newFixture(t)
	expectStatus(t, f.do(t, http.MethodPost, "/api/geo/search", map[string]any{"query": "Rua Augusta"}), http.StatusNotFound)
	expectStatus(t, f.do(t, http.MethodPost, "/api/geo/search", map[string]any{"query": "R"}), http.StatusBadRequest)
	expectStatus(t, f.do(t, http.MethodPost, "/api/geo/search", map[string]any{}), http.StatusBadRequest)
	expectStatus(t, f.do(t, http.MethodGet, "/api/geo/reverse?lat=x", nil), http.StatusBadRequest)

	f.geo.found = &models.GeoPoint{Lat: 38.71, Lng: -9.13}
	rec := f.do(t, http.MethodGet, "/api/geo/reverse?lat=38.71&lng=-9.13", nil)
	expectStatus(t, rec, http.StatusOK)
	var addr models.Address
	decodeBody(t, rec, &addr)
	if addr.Street != "Rua Augusta" || !addr.Geocoded() {
		t.Errorf("reverse = %+v", addr)
	}

	expectStatus(t, f.do(t, http.MethodPost, "/api/users/u7/push", map[string]any{"chatId": 4242}), http.StatusNoContent)
	if f.users.chats["u7"] != 4242 {
		t.Error("push chat not registered")
	}
}

func TestGeoSearch_PostalCodeOnly(t *testing.T) {
	f := newFixture(t)
	f.geo.found = &models.GeoPoint{Lat: 38.7139, Lng: -9.1334}
	rec := f.do(t, http.MethodPost, "/api/geo/search", map[string]any{"postalCode": "1100-148"})
	expectStatus(t, rec, http.StatusOK)
	var res services.GeoResult
	decodeBody(t, rec, &res)
	if res.Point != *f.geo.found {
		t.Errorf("point = %+v, want %+v", res.Point, *f.geo.found)
	}
	if f.geo.lastPostal != "1100-148" {
		t.Errorf("postal code passed to geocoder = %q", f.geo.lastPostal)
	}
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrOrderFailed, http.StatusServiceUnavailable},
		{fmt.Errorf("x: %w", docstore.ErrNotFound), http.StatusNotFound},
		{docstore.ErrPermissionDenied, http.StatusForbidden},
		{services.ErrStaleQuote, http.StatusConflict},
		{&services.DeliveryError{Kind: services.ErrRouteUnavailable}, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: Bolo", services.ErrItemUnavailable), http.StatusUnprocessableEntity},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		if rec.Code != tc.want {
			t.Errorf("%v: status %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestTracking(t *testing.T) {
	f := newFixture(t)
	expectStatus(t, f.do(t, http.MethodGet, "/api/orders/o9/tracking", nil), http.StatusNotFound)

	f.tracking["o9"] = services.TrackPosition{OrderID: "o9", Point: models.GeoPoint{Lat: 38.73, Lng: -9.14}, Progress: 0.5}
	rec := f.do(t, http.MethodGet, "/api/orders/o9/tracking", nil)
	expectStatus(t, rec, http.StatusOK)
	var p services.TrackPosition
	decodeBody(t, rec, &p)
	if p.Progress != 0.5 || p.Point.Lat != 38.73 {
		t.Errorf("position = %+v", p)
	}
}
