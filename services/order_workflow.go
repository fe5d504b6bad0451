package services

import (
	"context"
	"fmt"
	"log"

	"salgados/models"
)

// OrderStore is the persistence OrderWorkflow needs.
type OrderStore interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
	Delete(ctx context.Context, id string) error
}

// Tracker is the delivery position simulator driven by status changes.
type Tracker interface {
	Start(orderID string, from, to models.GeoPoint)
	StopOrder(orderID string)
}

// OrderWorkflow moves orders through the kitchen and delivery statuses.
type OrderWorkflow struct {
	orders   OrderStore
	notifier Notifier
	tracker  Tracker
	settings SettingsSource
}

func NewOrderWorkflow(orders OrderStore, notifier Notifier, tracker Tracker, settings SettingsSource) *OrderWorkflow {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &OrderWorkflow{orders: orders, notifier: notifier, tracker: tracker, settings: settings}
}

// Placed announces a freshly created order.
func (w *OrderWorkflow) Placed(ctx context.Context, o *models.Order) {
	w.notifier.OrderPlaced(ctx, o)
}

// Advance moves order id to status to. Going out for delivery starts the
// position tracker; completing the order stops it.
func (w *OrderWorkflow) Advance(ctx context.Context, id string, to models.OrderStatus) (*models.Order, error) {
	if to == models.StatusRejected {
		return w.Reject(ctx, id)
	}
	o, err := w.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ValidStatusTransition(o.Status, to, o.IsDelivery()) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	if err := w.orders.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	from := o.Status
	o.Status = to
	log.Printf("orders: status order=%s %s -> %s", id, from, to)

	switch to {
	case models.StatusOutForDelivery:
		w.startTracking(o)
	case models.StatusCompleted:
		if w.tracker != nil {
			w.tracker.StopOrder(id)
		}
	}
	w.notifier.OrderStatusChanged(ctx, o)
	return o, nil
}

// Reject deletes a pending order and tells the customer.
func (w *OrderWorkflow) Reject(ctx context.Context, id string) (*models.Order, error) {
	o, err := w.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ValidStatusTransition(o.Status, models.StatusRejected, o.IsDelivery()) {
		return nil, fmt.Errorf("%w: only pending orders can be rejected, order is %s", ErrInvalidTransition, o.Status)
	}
	if err := w.orders.Delete(ctx, id); err != nil {
		return nil, err
	}
	o.Status = models.StatusRejected
	log.Printf("orders: rejected order=%s", id)
	w.notifier.OrderStatusChanged(ctx, o)
	return o, nil
}

func (w *OrderWorkflow) startTracking(o *models.Order) {
	if w.tracker == nil {
		return
	}
	addr := o.Fulfillment.DeliveryAddress()
	if addr == nil || addr.Point() == nil {
		log.Printf("orders: order=%s has no coordinates, not tracking", o.ID)
		return
	}
	settings := w.settings.Current()
	if settings == nil || settings.Location == nil {
		log.Printf("orders: order=%s shop location not set, not tracking", o.ID)
		return
	}
	w.tracker.Start(o.ID, *settings.Location, *addr.Point())
}
