package models

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is a delivery address. Lat/Lng stay nil until the address has been
// geocoded; distance must never be computed before both are set.
type Address struct {
	Street     string   `json:"street" validate:"required"`
	Number     string   `json:"number"`
	District   string   `json:"district"`
	City       string   `json:"city" validate:"required"`
	State      string   `json:"state"`
	PostalCode string   `json:"postalCode"`
	Country    string   `json:"country"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
}

// Geocoded reports whether both coordinates are resolved.
func (a *Address) Geocoded() bool {
	return a != nil && a.Lat != nil && a.Lng != nil
}

// Point returns the address coordinates, or nil when not geocoded.
func (a *Address) Point() *GeoPoint {
	if !a.Geocoded() {
		return nil
	}
	return &GeoPoint{Lat: *a.Lat, Lng: *a.Lng}
}

// SetPoint stores resolved coordinates on the address.
func (a *Address) SetPoint(p GeoPoint) {
	lat, lng := p.Lat, p.Lng
	a.Lat = &lat
	a.Lng = &lng
}
