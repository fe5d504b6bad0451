package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryMethod is the persisted name of a fulfillment variant.
type DeliveryMethod string

const (
	MethodDeliver  DeliveryMethod = "deliver"
	MethodPickup   DeliveryMethod = "pickup"
	MethodSchedule DeliveryMethod = "schedule"
)

// Fulfillment is one of Delivery, Pickup or Scheduled.
type Fulfillment interface {
	Method() DeliveryMethod
	// DeliveryAddress is the address to deliver to, or nil for in-store collection.
	DeliveryAddress() *Address
	isFulfillment()
}

// Delivery is an immediate delivery to Address.
type Delivery struct {
	Address Address
}

// Pickup is an immediate in-store collection at Time ("HH:MM").
type Pickup struct {
	Time string
}

// Scheduled is a future-dated fulfillment. A nil Address means pickup.
type Scheduled struct {
	Date    string // "2006-01-02"
	Time    string // "15:04"
	Address *Address
}

func (Delivery) Method() DeliveryMethod  { return MethodDeliver }
func (Pickup) Method() DeliveryMethod    { return MethodPickup }
func (Scheduled) Method() DeliveryMethod { return MethodSchedule }

func (d Delivery) DeliveryAddress() *Address  { return &d.Address }
func (Pickup) DeliveryAddress() *Address      { return nil }
func (s Scheduled) DeliveryAddress() *Address { return s.Address }

func (Delivery) isFulfillment()  {}
func (Pickup) isFulfillment()    {}
func (Scheduled) isFulfillment() {}

type OrderStatus string

const (
	StatusPending        OrderStatus = "Pendente"
	StatusPreparing      OrderStatus = "Em Preparo"
	StatusReady          OrderStatus = "Pronto para Entrega"
	StatusOutForDelivery OrderStatus = "Saiu para Entrega"
	StatusCompleted      OrderStatus = "Concluído"
	StatusRejected       OrderStatus = "Rejeitado"
)

// PricingResult is computed once at checkout and carried into the order.
type PricingResult struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountEligible bool            `json:"discountEligible"`
	DiscountAmount   decimal.Decimal `json:"discountAmount"`
	DistanceKm       float64         `json:"distanceKm"`
	DeliveryFee      decimal.Decimal `json:"deliveryFee"`
	GrandTotal       decimal.Decimal `json:"grandTotal"`
}

type Discount struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

type Order struct {
	ID          string
	UserID      string
	Items       []CartLine
	Pricing     PricingResult
	Fulfillment Fulfillment
	Status      OrderStatus
	Discount    *Discount
	CreatedAt   time.Time
}

// IsDelivery reports whether the order ends at a customer address.
func (o *Order) IsDelivery() bool {
	return o.Fulfillment != nil && o.Fulfillment.DeliveryAddress() != nil
}

// orderDocument is the persisted layout of an order.
type orderDocument struct {
	ID             string          `json:"id,omitempty"`
	Items          []CartLine      `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
	DeliveryFee    decimal.Decimal `json:"deliveryFee"`
	DistanceKm     float64         `json:"distanceKm"`
	Discount       *Discount       `json:"discount,omitempty"`
	Status         OrderStatus     `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UserID         string          `json:"userId"`
	DeliveryMethod DeliveryMethod  `json:"deliveryMethod"`
	Address        *Address        `json:"address,omitempty"`
	PickupTime     string          `json:"pickupTime,omitempty"`
	ScheduledDate  string          `json:"scheduledDate,omitempty"`
	ScheduledTime  string          `json:"scheduledTime,omitempty"`
	IsScheduled    bool            `json:"isScheduled"`
}

func (o Order) MarshalJSON() ([]byte, error) {
	doc := orderDocument{
		ID:          o.ID,
		Items:       o.Items,
		Subtotal:    o.Pricing.Subtotal,
		Total:       o.Pricing.GrandTotal,
		DeliveryFee: o.Pricing.DeliveryFee,
		DistanceKm:  o.Pricing.DistanceKm,
		Discount:    o.Discount,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		UserID:      o.UserID,
	}
	switch f := o.Fulfillment.(type) {
	case Delivery:
		doc.DeliveryMethod = MethodDeliver
		addr := f.Address
		doc.Address = &addr
	case Pickup:
		doc.DeliveryMethod = MethodPickup
		doc.PickupTime = f.Time
	case Scheduled:
		doc.DeliveryMethod = MethodSchedule
		doc.Address = f.Address
		doc.ScheduledDate = f.Date
		doc.ScheduledTime = f.Time
		doc.IsScheduled = true
	default:
		return nil, fmt.Errorf("order %s: unknown fulfillment %T", o.ID, o.Fulfillment)
	}
	return json.Marshal(doc)
}

func (o *Order) UnmarshalJSON(b []byte) error {
	var doc orderDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	o.ID = doc.ID
	o.Items = doc.Items
	o.Pricing = PricingResult{
		Subtotal:         doc.Subtotal,
		DiscountEligible: doc.Discount != nil,
		DistanceKm:       doc.DistanceKm,
		DeliveryFee:      doc.DeliveryFee,
		GrandTotal:       doc.Total,
		DiscountAmount:   decimal.Zero,
	}
	if doc.Discount != nil {
		o.Pricing.DiscountAmount = doc.Discount.Amount
	}
	o.Discount = doc.Discount
	o.Status = doc.Status
	o.CreatedAt = doc.CreatedAt
	o.UserID = doc.UserID
	switch doc.DeliveryMethod {
	case MethodDeliver:
		if doc.Address == nil {
			return fmt.Errorf("deliver order without address")
		}
		o.Fulfillment = Delivery{Address: *doc.Address}
	case MethodPickup:
		o.Fulfillment = Pickup{Time: doc.PickupTime}
	case MethodSchedule:
		o.Fulfillment = Scheduled{Date: doc.ScheduledDate, Time: doc.ScheduledTime, Address: doc.Address}
	default:
		return fmt.Errorf("unknown delivery method %q", doc.DeliveryMethod)
	}
	return nil
}

type DailyStats struct {
	Date            string          `json:"date"`
	OrdersCount     int             `json:"ordersCount"`
	ItemsRevenue    decimal.Decimal `json:"itemsRevenue"`
	DiscountTotal   decimal.Decimal `json:"discountTotal"`
	DeliveryRevenue decimal.Decimal `json:"deliveryRevenue"`
	GrandRevenue    decimal.Decimal `json:"grandRevenue"`
	ScheduledCount  int             `json:"scheduledCount"`
}
