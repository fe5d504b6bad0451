package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"salgados/models"

	"github.com/shopspring/decimal"
)

// forceScheduleUnits is the cart size from which only scheduled orders are taken.
const forceScheduleUnits = 150

var discountRate = decimal.RequireFromString("0.05")

const discountTypeFirstOrder = "first_order_5"

// SettingsSource returns the shop settings snapshot to price against.
type SettingsSource interface {
	Current() *models.ShopSettings
}

// OrderPlacer persists a new order. When consumeDiscountFor is not empty the
// user's discount eligibility is cleared in the same write.
type OrderPlacer interface {
	Place(ctx context.Context, order *models.Order, consumeDiscountFor string) error
}

type CheckoutRequest struct {
	UserID           string
	Lines            []models.CartLine
	Fulfillment      models.Fulfillment
	DiscountEligible bool
}

// Checkout prices and places orders. Validate has no side effects; Place
// validates again and persists.
type Checkout struct {
	settings SettingsSource
	router   RouteDistancer
	orders   OrderPlacer
	now      func() time.Time
	newID    func() string
}

func NewCheckout(settings SettingsSource, router RouteDistancer, orders OrderPlacer, newID func() string) *Checkout {
	return &Checkout{settings: settings, router: router, orders: orders, now: time.Now, newID: newID}
}

// WithClock makes the checkout read the current time from now.
func (c *Checkout) WithClock(now func() time.Time) *Checkout {
	c.now = now
	return c
}

// ForceSchedulingReason explains why only scheduling is allowed for these
// lines right now, or returns "" when any fulfillment is allowed.
func ForceSchedulingReason(settings *models.ShopSettings, lines []models.CartLine, now time.Time) string {
	if UnitCount(lines) >= forceScheduleUnits {
		return fmt.Sprintf("orders of %d or more units must be scheduled", forceScheduleUnits)
	}
	for _, l := range lines {
		if l.RequiresScheduling {
			return fmt.Sprintf("%s can only be ordered in advance", l.Name)
		}
	}
	if !IsOpenNow(settings.Schedule, settings.Holidays, settings.Timezone, now) {
		return "the shop is closed right now, please schedule your order"
	}
	return ""
}

// Validate runs every checkout rule and returns the pricing the order would
// be created with.
func (c *Checkout) Validate(ctx context.Context, req CheckoutRequest) (*models.PricingResult, error) {
	settings := c.settings.Current()
	if settings == nil {
		return nil, fmt.Errorf("%w: shop settings not loaded", ErrOrderFailed)
	}
	if len(req.Lines) == 0 {
		return nil, invalid("the cart is empty")
	}
	if req.Fulfillment == nil {
		return nil, invalid("choose delivery, pickup or schedule")
	}
	now := c.now()

	if reason := ForceSchedulingReason(settings, req.Lines, now); reason != "" {
		if req.Fulfillment.Method() != models.MethodSchedule {
			return nil, invalid(reason)
		}
	}

	pricing := &models.PricingResult{DeliveryFee: decimal.Zero, DiscountAmount: decimal.Zero}
	if addr := req.Fulfillment.DeliveryAddress(); addr != nil {
		if !addr.Geocoded() {
			return nil, invalid("the delivery address has not been located yet")
		}
		quote, err := QuoteDelivery(ctx, c.router, settings, addr.Point())
		if err != nil {
			return nil, invalidErr(err)
		}
		pricing.DistanceKm = quote.DistanceKm
		pricing.DeliveryFee = quote.Fee
	}

	switch f := req.Fulfillment.(type) {
	case models.Pickup:
		if strings.TrimSpace(f.Time) == "" {
			return nil, invalid("choose a pickup time")
		}
		if _, err := parseClock(f.Time); err != nil {
			return nil, invalidErr(err)
		}
	case models.Scheduled:
		if f.Date == "" || f.Time == "" {
			return nil, invalid("choose a date and time for the scheduled order")
		}
		if err := ValidateScheduledMoment(settings.Schedule, settings.Timezone, f.Date, f.Time, now); err != nil {
			return nil, invalidErr(err)
		}
	}

	pricing.Subtotal = Subtotal(req.Lines)
	pricing.DiscountEligible = req.DiscountEligible
	if req.DiscountEligible {
		pricing.DiscountAmount = pricing.Subtotal.Mul(discountRate).Round(2)
	}
	pricing.GrandTotal = pricing.Subtotal.Sub(pricing.DiscountAmount).Add(pricing.DeliveryFee)
	return pricing, nil
}

// Place validates the request and persists the order with its pricing frozen.
// The caller clears the cart only after Place succeeds.
func (c *Checkout) Place(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	pricing, err := c.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	order := &models.Order{
		ID:          c.newID(),
		UserID:      req.UserID,
		Items:       append([]models.CartLine(nil), req.Lines...),
		Pricing:     *pricing,
		Fulfillment: req.Fulfillment,
		Status:      models.StatusPending,
		CreatedAt:   c.now().UTC(),
	}
	consume := ""
	if pricing.DiscountEligible {
		order.Discount = &models.Discount{Type: discountTypeFirstOrder, Amount: pricing.DiscountAmount}
		consume = req.UserID
	}
	if err := c.orders.Place(ctx, order, consume); err != nil {
		log.Printf("checkout: place order user=%s: %v", req.UserID, err)
		return nil, ErrOrderFailed
	}
	log.Printf("checkout: order placed id=%s user=%s method=%s total=%s", order.ID, order.UserID, order.Fulfillment.Method(), pricing.GrandTotal)
	return order, nil
}
