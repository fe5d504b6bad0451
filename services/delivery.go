package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"salgados/models"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingCoordinates = errors.New("missing coordinates")
	ErrRouteUnavailable   = errors.New("route unavailable")
	ErrOutOfRange         = errors.New("out of delivery range")
)

// samePointEpsilon is how close, in degrees on both axes, two points must be
// to skip routing and price the delivery at zero.
const samePointEpsilon = 0.00001

// freeDeliveryBelowKm is the flat free-delivery threshold.
const freeDeliveryBelowKm = 1.0

// RouteDistancer returns the driving distance between two points in meters.
type RouteDistancer interface {
	RouteDistance(ctx context.Context, from, to models.GeoPoint) (meters float64, ok bool)
}

// DeliveryQuote is a priced delivery.
type DeliveryQuote struct {
	DistanceKm float64         `json:"distanceKm"`
	Fee        decimal.Decimal `json:"fee"`
}

// DeliveryError is returned by ComputeDeliveryFee. Kind is one of
// ErrMissingCoordinates, ErrRouteUnavailable or ErrOutOfRange; DistanceKm is
// set for ErrOutOfRange.
type DeliveryError struct {
	Kind        error
	DistanceKm  float64
	MaxRadiusKm float64
}

func (e *DeliveryError) Error() string {
	if errors.Is(e.Kind, ErrOutOfRange) {
		return fmt.Sprintf("%v: %.1f km exceeds the %.1f km limit", e.Kind, e.DistanceKm, e.MaxRadiusKm)
	}
	return e.Kind.Error()
}

func (e *DeliveryError) Unwrap() error { return e.Kind }

// ComputeDeliveryFee prices a delivery from store to dest. Missing points fail
// before any routing call. Deliveries under 1 km are free; above that the fee
// is distance × pricePerKm, rounded to cents. Distances beyond maxRadiusKm are
// rejected with the distance attached.
func ComputeDeliveryFee(ctx context.Context, router RouteDistancer, store, dest *models.GeoPoint, pricePerKm decimal.Decimal, maxRadiusKm float64) (*DeliveryQuote, error) {
	if store == nil || dest == nil {
		return nil, &DeliveryError{Kind: ErrMissingCoordinates}
	}
	if math.Abs(store.Lat-dest.Lat) < samePointEpsilon && math.Abs(store.Lng-dest.Lng) < samePointEpsilon {
		return &DeliveryQuote{DistanceKm: 0, Fee: decimal.Zero}, nil
	}
	meters, ok := router.RouteDistance(ctx, *store, *dest)
	if !ok {
		return nil, &DeliveryError{Kind: ErrRouteUnavailable}
	}
	distanceKm := meters / 1000
	if distanceKm > maxRadiusKm {
		return nil, &DeliveryError{Kind: ErrOutOfRange, DistanceKm: distanceKm, MaxRadiusKm: maxRadiusKm}
	}
	return &DeliveryQuote{DistanceKm: distanceKm, Fee: CalcDeliveryFee(distanceKm, pricePerKm)}, nil
}

// CalcDeliveryFee applies the tariff to a distance that is already known to be
// within range.
func CalcDeliveryFee(distanceKm float64, pricePerKm decimal.Decimal) decimal.Decimal {
	if distanceKm < freeDeliveryBelowKm {
		return decimal.Zero
	}
	return decimal.NewFromFloat(distanceKm).Mul(pricePerKm).Round(2)
}

// QuoteDelivery runs ComputeDeliveryFee with the shop's location and tariff.
// A shop without a location yields ErrMissingCoordinates.
func QuoteDelivery(ctx context.Context, router RouteDistancer, settings *models.ShopSettings, dest *models.GeoPoint) (*DeliveryQuote, error) {
	return ComputeDeliveryFee(ctx, router, settings.Location, dest, settings.PricePerKm, settings.MaxRadiusKm)
}

// HaversineDistanceKm is the great-circle distance between two points.
func HaversineDistanceKm(a, b models.GeoPoint) float64 {
	const R = 6371
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.Round(R*c*100) / 100
}
