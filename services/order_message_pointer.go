package services

import (
	"context"
	"errors"
	"fmt"

	"salgados/docstore"
)

const orderCardsCollection = "order_cards"

const (
	AudienceAdmin    = "admin"
	AudienceCustomer = "customer"
)

// MessagePointer locates the chat message that shows an order card.
type MessagePointer struct {
	ChatID    int64 `json:"chatId"`
	MessageID int   `json:"messageId"`
}

// OrderMessagePointers remembers, per order and audience, which message to
// edit when the order changes.
type OrderMessagePointers struct {
	store *docstore.Store
}

func NewOrderMessagePointers(store *docstore.Store) *OrderMessagePointers {
	return &OrderMessagePointers{store: store}
}

func pointerID(orderID, audience string) string {
	return orderID + ":" + audience
}

// Get returns the pointer for the order's card for the given audience.
// ok is false if no pointer exists.
func (p *OrderMessagePointers) Get(ctx context.Context, orderID, audience string) (ptr MessagePointer, ok bool, err error) {
	err = p.store.Get(ctx, orderCardsCollection, pointerID(orderID, audience), &ptr)
	if errors.Is(err, docstore.ErrNotFound) {
		return MessagePointer{}, false, nil
	}
	if err != nil {
		return MessagePointer{}, false, fmt.Errorf("order card pointer %s/%s: %w", orderID, audience, err)
	}
	return ptr, true, nil
}

// Upsert stores the pointer for (orderID, audience).
func (p *OrderMessagePointers) Upsert(ctx context.Context, orderID, audience string, ptr MessagePointer) error {
	if err := p.store.Set(ctx, orderCardsCollection, pointerID(orderID, audience), ptr); err != nil {
		return fmt.Errorf("save order card pointer %s/%s: %w", orderID, audience, err)
	}
	return nil
}

// Forget drops the pointers of an order once it is finished.
func (p *OrderMessagePointers) Forget(ctx context.Context, orderID string) error {
	var ops []docstore.Op
	for _, a := range []string{AudienceAdmin, AudienceCustomer} {
		if _, ok, err := p.Get(ctx, orderID, a); err == nil && ok {
			ops = append(ops, docstore.DeleteOp(orderCardsCollection, pointerID(orderID, a)))
		}
	}
	if len(ops) == 0 {
		return nil
	}
	return p.store.Batch(ctx, ops...)
}
