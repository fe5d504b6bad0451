package services

import (
	"context"

	"salgados/models"
)

// Notifier pushes order events to the admin and the customer. Implementations
// log delivery failures instead of returning them.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *models.Order)
	OrderStatusChanged(ctx context.Context, o *models.Order)
}

// NopNotifier is used when no push channel is configured.
type NopNotifier struct{}

func (NopNotifier) OrderPlaced(context.Context, *models.Order)        {}
func (NopNotifier) OrderStatusChanged(context.Context, *models.Order) {}

// Notifiers delivers each event to every notifier in order.
type Notifiers []Notifier

func (ns Notifiers) OrderPlaced(ctx context.Context, o *models.Order) {
	for _, n := range ns {
		n.OrderPlaced(ctx, o)
	}
}

func (ns Notifiers) OrderStatusChanged(ctx context.Context, o *models.Order) {
	for _, n := range ns {
		n.OrderStatusChanged(ctx, o)
	}
}
