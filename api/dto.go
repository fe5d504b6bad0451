package api

import (
	"salgados/models"
	"salgados/services"
)

type fulfillmentRequest struct {
	Method        models.DeliveryMethod `json:"method" validate:"required,oneof=deliver pickup schedule"`
	Address       *models.Address       `json:"address" validate:"required_if=Method deliver,omitempty"`
	PickupTime    string                `json:"pickupTime"`
	ScheduledDate string                `json:"scheduledDate"`
	ScheduledTime string                `json:"scheduledTime"`
}

func (f fulfillmentRequest) toFulfillment() models.Fulfillment {
	switch f.Method {
	case models.MethodDeliver:
		return models.Delivery{Address: *f.Address}
	case models.MethodPickup:
		return models.Pickup{Time: f.PickupTime}
	case models.MethodSchedule:
		return models.Scheduled{Date: f.ScheduledDate, Time: f.ScheduledTime, Address: f.Address}
	}
	return nil
}

type checkoutRequest struct {
	UserID      string             `json:"userId" validate:"required"`
	SessionID   string             `json:"sessionId"`
	Fulfillment fulfillmentRequest `json:"fulfillment" validate:"required"`
}

type checkoutResponse struct {
	Pricing         *models.PricingResult `json:"pricing,omitempty"`
	ForceScheduling string                `json:"forceScheduling,omitempty"`
}

type quoteRequest struct {
	Address models.Address `json:"address" validate:"required"`
}

type quoteResponse struct {
	Quote   *services.DeliveryQuote `json:"quote"`
	Address models.Address          `json:"address"`
}

type geoSearchRequest struct {
	Query      string `json:"query" validate:"required_without=PostalCode,omitempty,min=3"`
	PostalCode string `json:"postalCode" validate:"required_without=Query"`
}

type addLineRequest struct {
	ItemID        string                     `json:"itemId" validate:"required"`
	Quantity      int                        `json:"quantity" validate:"required,gt=0"`
	Customization []models.CustomizationItem `json:"customization"`
}

type lineQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

type pushRequest struct {
	ChatID int64 `json:"chatId" validate:"required"`
}

type storeStatusResponse struct {
	Open      bool               `json:"open"`
	LocalTime string             `json:"localTime"`
	Today     *services.Interval `json:"today,omitempty"`
}
