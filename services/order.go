package services

import (
	"context"
	"encoding/json"
	"fmt"

	"salgados/docstore"
	"salgados/models"
)

const ordersCollection = "orders"

// ValidStatusTransition reports whether an order may move from one status to
// another. Out for delivery exists only for delivery orders; pickup orders go
// from ready straight to completed. Rejection is only possible while pending.
func ValidStatusTransition(from, to models.OrderStatus, delivery bool) bool {
	switch from {
	case models.StatusPending:
		return to == models.StatusPreparing || to == models.StatusRejected
	case models.StatusPreparing:
		return to == models.StatusReady
	case models.StatusReady:
		if delivery {
			return to == models.StatusOutForDelivery
		}
		return to == models.StatusCompleted
	case models.StatusOutForDelivery:
		return to == models.StatusCompleted
	}
	return false
}

// NextStatuses lists the statuses an admin can move the order to.
func NextStatuses(o *models.Order) []models.OrderStatus {
	var next []models.OrderStatus
	for _, s := range []models.OrderStatus{
		models.StatusPreparing,
		models.StatusReady,
		models.StatusOutForDelivery,
		models.StatusCompleted,
		models.StatusRejected,
	} {
		if ValidStatusTransition(o.Status, s, o.IsDelivery()) {
			next = append(next, s)
		}
	}
	return next
}

// CustomerMessageForOrderStatus is the text pushed to the customer when their
// order reaches status. Empty for statuses that are not announced.
func CustomerMessageForOrderStatus(o *models.Order, status models.OrderStatus) string {
	ref := ShortOrderRef(o.ID)
	switch status {
	case models.StatusPending:
		return fmt.Sprintf("Recebemos o seu pedido #%s. Total: %s €", ref, o.Pricing.GrandTotal.StringFixed(2))
	case models.StatusPreparing:
		return fmt.Sprintf("O seu pedido #%s está a ser preparado. Total: %s €", ref, o.Pricing.GrandTotal.StringFixed(2))
	case models.StatusReady:
		if o.IsDelivery() {
			return fmt.Sprintf("O seu pedido #%s está pronto e sairá em breve para entrega.", ref)
		}
		return fmt.Sprintf("O seu pedido #%s está pronto para levantar.", ref)
	case models.StatusOutForDelivery:
		return fmt.Sprintf("O seu pedido #%s saiu para entrega.", ref)
	case models.StatusCompleted:
		return fmt.Sprintf("Pedido #%s concluído. Obrigado e bom apetite!", ref)
	case models.StatusRejected:
		return fmt.Sprintf("Lamentamos, o pedido #%s foi rejeitado.", ref)
	}
	return ""
}

// ShortOrderRef is the first eight characters of an order id, used in
// messages shown to people.
func ShortOrderRef(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// OrderRepo stores orders in the "orders" collection using the persisted
// order layout.
type OrderRepo struct {
	store *docstore.Store
}

func NewOrderRepo(store *docstore.Store) *OrderRepo {
	return &OrderRepo{store: store}
}

// Place writes a new order. When consumeDiscountFor is set the user's
// discount flag is cleared in the same transaction.
func (r *OrderRepo) Place(ctx context.Context, order *models.Order, consumeDiscountFor string) error {
	ops := []docstore.Op{docstore.SetOp(ordersCollection, order.ID, order)}
	if consumeDiscountFor != "" {
		ops = append(ops, docstore.UpdateOp(usersCollection, consumeDiscountFor, map[string]any{"discountEligible": false}))
	}
	if err := r.store.Batch(ctx, ops...); err != nil {
		return fmt.Errorf("create order %s: %w", order.ID, err)
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := r.store.Get(ctx, ordersCollection, id, &o); err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}
	o.ID = id
	return &o, nil
}

func (r *OrderRepo) List(ctx context.Context) ([]models.Order, error) {
	docs, err := r.store.List(ctx, ordersCollection)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return decodeOrders(docs)
}

func (r *OrderRepo) ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	docs, err := r.store.ListWhere(ctx, ordersCollection, "status", string(status))
	if err != nil {
		return nil, fmt.Errorf("list orders by status %s: %w", status, err)
	}
	return decodeOrders(docs)
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	if err := r.store.Update(ctx, ordersCollection, id, map[string]any{"status": status}); err != nil {
		return fmt.Errorf("update order %s status: %w", id, err)
	}
	return nil
}

func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, ordersCollection, id); err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	return nil
}

func decodeOrders(docs []docstore.Document) ([]models.Order, error) {
	orders := make([]models.Order, 0, len(docs))
	for _, d := range docs {
		var o models.Order
		if err := json.Unmarshal(d.Data, &o); err != nil {
			return nil, fmt.Errorf("decode orders/%s: %w", d.ID, err)
		}
		o.ID = d.ID
		orders = append(orders, o)
	}
	return orders, nil
}
