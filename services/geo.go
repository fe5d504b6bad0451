package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"salgados/models"
)

// GeoResult is a forward geocoding hit.
type GeoResult struct {
	Point   models.GeoPoint `json:"point"`
	Address *models.Address `json:"address"`
}

// Geocoder talks to a Nominatim compatible search API and an OSRM compatible
// routing API. Every lookup is best effort: failures and empty results both
// come back as "not found" and are only logged.
type Geocoder struct {
	searchURL   string
	routingURL  string
	countryCode string
	userAgent   string
	client      *http.Client
}

func NewGeocoder(searchURL, routingURL, countryCode, userAgent string, timeout time.Duration) *Geocoder {
	return &Geocoder{
		searchURL:   strings.TrimRight(searchURL, "/"),
		routingURL:  strings.TrimRight(routingURL, "/"),
		countryCode: countryCode,
		userAgent:   userAgent,
		client:      &http.Client{Timeout: timeout},
	}
}

// nominatimAddress carries the locality fields providers use interchangeably.
type nominatimAddress struct {
	Road          string `json:"road"`
	Pedestrian    string `json:"pedestrian"`
	HouseNumber   string `json:"house_number"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	CityDistrict  string `json:"city_district"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Municipality  string `json:"municipality"`
	State         string `json:"state"`
	Postcode      string `json:"postcode"`
	Country       string `json:"country"`
}

type nominatimPlace struct {
	Lat     string           `json:"lat"`
	Lon     string           `json:"lon"`
	Address nominatimAddress `json:"address"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (a nominatimAddress) toAddress() *models.Address {
	return &models.Address{
		Street:     firstNonEmpty(a.Road, a.Pedestrian),
		Number:     a.HouseNumber,
		District:   firstNonEmpty(a.Suburb, a.Neighbourhood, a.CityDistrict),
		City:       firstNonEmpty(a.City, a.Town, a.Village, a.Municipality),
		State:      a.State,
		PostalCode: a.Postcode,
		Country:    a.Country,
	}
}

// ForwardGeocode resolves a postal code (scoped to the shop country) when one
// is given, otherwise the free text query. Only the first hit is used. It
// returns nil when nothing was found or the provider failed.
func (g *Geocoder) ForwardGeocode(ctx context.Context, query, postalCode string) *GeoResult {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")
	switch {
	case strings.TrimSpace(postalCode) != "":
		q.Set("postalcode", strings.TrimSpace(postalCode))
		q.Set("countrycodes", g.countryCode)
	case strings.TrimSpace(query) != "":
		q.Set("q", strings.TrimSpace(query))
	default:
		return nil
	}

	var places []nominatimPlace
	if err := g.getJSON(ctx, g.searchURL+"/search?"+q.Encode(), &places); err != nil {
		log.Printf("geocode: search failed query=%q postal=%q: %v", query, postalCode, err)
		return nil
	}
	if len(places) == 0 {
		return nil
	}
	p := places[0]
	lat, errLat := strconv.ParseFloat(p.Lat, 64)
	lng, errLng := strconv.ParseFloat(p.Lon, 64)
	if errLat != nil || errLng != nil {
		log.Printf("geocode: bad coordinates lat=%q lon=%q", p.Lat, p.Lon)
		return nil
	}
	addr := p.Address.toAddress()
	addr.SetPoint(models.GeoPoint{Lat: lat, Lng: lng})
	return &GeoResult{Point: models.GeoPoint{Lat: lat, Lng: lng}, Address: addr}
}

// ReverseGeocode returns the structured address at a point, or nil.
func (g *Geocoder) ReverseGeocode(ctx context.Context, lat, lng float64) *models.Address {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	var place struct {
		Error   string            `json:"error"`
		Address *nominatimAddress `json:"address"`
	}
	if err := g.getJSON(ctx, g.searchURL+"/reverse?"+q.Encode(), &place); err != nil {
		log.Printf("geocode: reverse failed lat=%f lng=%f: %v", lat, lng, err)
		return nil
	}
	if place.Error != "" || place.Address == nil {
		return nil
	}
	addr := place.Address.toAddress()
	addr.SetPoint(models.GeoPoint{Lat: lat, Lng: lng})
	return addr
}

// RouteDistance returns the driving distance in meters of the first route
// between two points. ok is false when no route is available.
func (g *Geocoder) RouteDistance(ctx context.Context, from, to models.GeoPoint) (meters float64, ok bool) {
	endpoint := fmt.Sprintf("%s/route/v1/driving/%s,%s;%s,%s?overview=false",
		g.routingURL,
		strconv.FormatFloat(from.Lng, 'f', -1, 64), strconv.FormatFloat(from.Lat, 'f', -1, 64),
		strconv.FormatFloat(to.Lng, 'f', -1, 64), strconv.FormatFloat(to.Lat, 'f', -1, 64),
	)
	var res struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
		} `json:"routes"`
	}
	if err := g.getJSON(ctx, endpoint, &res); err != nil {
		log.Printf("route: lookup failed from=%v to=%v: %v", from, to, err)
		return 0, false
	}
	if len(res.Routes) == 0 || (res.Code != "" && res.Code != "Ok") {
		return 0, false
	}
	return res.Routes[0].Distance, true
}

func (g *Geocoder) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
