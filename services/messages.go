package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salgados/docstore"
	"salgados/models"
)

const messagesCollection = "messages"

// OutboundMessage records a status notification pushed to a customer.
type OutboundMessage struct {
	OrderID string             `json:"orderId"`
	Status  models.OrderStatus `json:"status"`
	ChatID  int64              `json:"chatId"`
	Content string             `json:"content"`
	SentAt  time.Time          `json:"sentAt"`
}

// OutboundLog de-duplicates customer status notifications.
type OutboundLog struct {
	store *docstore.Store
	now   func() time.Time
}

func NewOutboundLog(store *docstore.Store) *OutboundLog {
	return &OutboundLog{store: store, now: time.Now}
}

func outboundID(orderID string, status models.OrderStatus) string {
	return orderID + ":" + statusCodes[status]
}

// Save persists an outbound status message.
func (l *OutboundLog) Save(ctx context.Context, m OutboundMessage) error {
	if m.SentAt.IsZero() {
		m.SentAt = l.now().UTC()
	}
	if err := l.store.Set(ctx, messagesCollection, outboundID(m.OrderID, m.Status), m); err != nil {
		return fmt.Errorf("save outbound message: %w", err)
	}
	return nil
}

// SentWithin reports whether the same order and status was already sent in the last window.
func (l *OutboundLog) SentWithin(ctx context.Context, orderID string, status models.OrderStatus, window time.Duration) (bool, error) {
	var m OutboundMessage
	err := l.store.Get(ctx, messagesCollection, outboundID(orderID, status), &m)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return l.now().Sub(m.SentAt) < window, nil
}
