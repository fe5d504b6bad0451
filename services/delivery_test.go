package services

import (
	"context"
	"errors"
	"testing"

	"salgados/models"

	"github.com/shopspring/decimal"
)

// fakeRouter returns a fixed distance and counts calls.
type fakeRouter struct {
	meters float64
	ok     bool
	calls  int
}

func (f *fakeRouter) RouteDistance(ctx context.Context, from, to models.GeoPoint) (float64, bool) {
	f.calls++
	return f.meters, f.ok
}

var (
	shopPoint = &models.GeoPoint{Lat: 38.7223, Lng: -9.1393}
	farPoint  = &models.GeoPoint{Lat: 38.80, Lng: -9.30}
	onePerKm  = decimal.NewFromInt(1)
)

func TestComputeDeliveryFee_WithinRadius(t *testing.T) {
	r := &fakeRouter{meters: 16500, ok: true}
	q, err := ComputeDeliveryFee(context.Background(), r, shopPoint, farPoint, onePerKm, 17)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.DistanceKm != 16.5 || !q.Fee.Equal(decimal.RequireFromString("16.5")) {
		t.Errorf("quote = %+v, want 16.5 km / 16.5", q)
	}
}

func TestComputeDeliveryFee_OutOfRangeReportsDistance(t *testing.T) {
	r := &fakeRouter{meters: 18000, ok: true}
	q, err := ComputeDeliveryFee(context.Background(), r, shopPoint, farPoint, onePerKm, 17)
	if q != nil {
		t.Errorf("no quote expected, got %+v", q)
	}
	var de *DeliveryError
	if !errors.As(err, &de) || !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("want out of range DeliveryError, got %v", err)
	}
	if de.DistanceKm != 18 {
		t.Errorf("distance = %v, want 18", de.DistanceKm)
	}
}

func TestComputeDeliveryFee_SamePoint(t *testing.T) {
	r := &fakeRouter{meters: 5000, ok: true}
	near := &models.GeoPoint{Lat: shopPoint.Lat + 0.000005, Lng: shopPoint.Lng - 0.000009}
	q, err := ComputeDeliveryFee(context.Background(), r, shopPoint, near, onePerKm, 17)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.DistanceKm != 0 || !q.Fee.IsZero() {
		t.Errorf("quote = %+v, want zero", q)
	}
	if r.calls != 0 {
		t.Errorf("router called %d times for the same point", r.calls)
	}
}

func TestComputeDeliveryFee_MissingCoordinates(t *testing.T) {
	r := &fakeRouter{meters: 5000, ok: true}
	for _, pts := range [][2]*models.GeoPoint{{nil, farPoint}, {shopPoint, nil}, {nil, nil}} {
		_, err := ComputeDeliveryFee(context.Background(), r, pts[0], pts[1], onePerKm, 17)
		if !errors.Is(err, ErrMissingCoordinates) {
			t.Errorf("got %v, want ErrMissingCoordinates", err)
		}
	}
	if r.calls != 0 {
		t.Errorf("router must not be called without coordinates, called %d times", r.calls)
	}
}

func TestComputeDeliveryFee_RouteUnavailable(t *testing.T) {
	r := &fakeRouter{ok: false}
	_, err := ComputeDeliveryFee(context.Background(), r, shopPoint, farPoint, onePerKm, 17)
	if !errors.Is(err, ErrRouteUnavailable) {
		t.Errorf("got %v, want ErrRouteUnavailable", err)
	}
}

func TestComputeDeliveryFee_Tariff(t *testing.T) {
	tests := []struct {
		meters     float64
		pricePerKm string
		wantFee    string
	}{
		{0, "1.5", "0"},
		{500, "1.5", "0"},
		{999, "3", "0"},
		{1000, "1.5", "1.5"},
		{2500, "1.2", "3"},
		{7340, "0.8", "5.87"},
		{12000, "0", "0"},
		{17000, "1", "17"},
	}
	for _, tt := range tests {
		r := &fakeRouter{meters: tt.meters, ok: true}
		q, err := ComputeDeliveryFee(context.Background(), r, shopPoint, farPoint, decimal.RequireFromString(tt.pricePerKm), 17)
		if err != nil {
			t.Errorf("%vm: unexpected error %v", tt.meters, err)
			continue
		}
		if !q.Fee.Equal(decimal.RequireFromString(tt.wantFee)) {
			t.Errorf("%vm at %s/km: fee = %s, want %s", tt.meters, tt.pricePerKm, q.Fee, tt.wantFee)
		}
		if q.DistanceKm != tt.meters/1000 {
			t.Errorf("%vm: distance = %v", tt.meters, q.DistanceKm)
		}
	}
}

func TestComputeDeliveryFee_RadiusIsInclusive(t *testing.T) {
	r := &fakeRouter{meters: 17000, ok: true}
	if _, err := ComputeDeliveryFee(context.Background(), r, shopPoint, farPoint, onePerKm, 17); err != nil {
		t.Errorf("exactly the radius must be accepted, got %v", err)
	}
	r.meters = 17001
	if _, err := ComputeDeliveryFee(context.Background(), r, shopPoint, farPoint, onePerKm, 17); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("just beyond the radius must be rejected, got %v", err)
	}
}

func TestQuoteDelivery_UsesShopSettings(t *testing.T) {
	settings := &models.ShopSettings{Location: shopPoint, PricePerKm: decimal.RequireFromString("0.5"), MaxRadiusKm: 5}
	r := &fakeRouter{meters: 4000, ok: true}
	q, err := QuoteDelivery(context.Background(), r, settings, farPoint)
	if err != nil || !q.Fee.Equal(decimal.NewFromInt(2)) {
		t.Errorf("QuoteDelivery = %+v, %v", q, err)
	}
	r.meters = 6000
	if _, err := QuoteDelivery(context.Background(), r, settings, farPoint); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("settings radius not applied: %v", err)
	}
}

func TestQuoteDelivery_ShopWithoutLocation(t *testing.T) {
	settings := DefaultShopSettings("Salgados", "Europe/Lisbon")
	if err := ValidateShopSettings(settings); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	r := &fakeRouter{meters: 4000, ok: true}
	q, err := QuoteDelivery(context.Background(), r, settings, farPoint)
	if q != nil || !errors.Is(err, ErrMissingCoordinates) {
		t.Errorf("QuoteDelivery = %+v, %v; want ErrMissingCoordinates", q, err)
	}
	if r.calls != 0 {
		t.Errorf("router called %d times without a shop location", r.calls)
	}
}

func TestHaversineDistanceKm(t *testing.T) {
	lisbon := models.GeoPoint{Lat: 38.7223, Lng: -9.1393}
	porto := models.GeoPoint{Lat: 41.1579, Lng: -8.6291}
	d := HaversineDistanceKm(lisbon, porto)
	if d < 270 || d > 280 {
		t.Errorf("Lisbon-Porto = %v km, want about 274", d)
	}
	if HaversineDistanceKm(lisbon, lisbon) != 0 {
		t.Error("distance to self must be 0")
	}
}
