package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"salgados/docstore"
	"salgados/models"
)

const trackingCollection = "tracking"

// TrackPosition is one simulated courier position for an order.
type TrackPosition struct {
	OrderID     string          `json:"orderId"`
	Point       models.GeoPoint `json:"point"`
	Progress    float64         `json:"progress"`
	RemainingKm float64         `json:"remainingKm"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// PositionSink receives tracker updates.
type PositionSink interface {
	Publish(ctx context.Context, p TrackPosition) error
}

type activeTrack struct {
	orderID string
	cancel  context.CancelFunc
	done    chan struct{}
}

// DeliveryTracker runs at most one simulated delivery at a time. Starting a
// tracking stops the previous one before the new goroutine begins.
type DeliveryTracker struct {
	sink     PositionSink
	interval time.Duration
	steps    int

	mu     sync.Mutex
	active *activeTrack
}

// NewDeliveryTracker publishes steps positions, one per interval, moving from
// the shop to the destination.
func NewDeliveryTracker(sink PositionSink, interval time.Duration, steps int) *DeliveryTracker {
	if steps < 1 {
		steps = 1
	}
	return &DeliveryTracker{sink: sink, interval: interval, steps: steps}
}

// Start begins tracking orderID, replacing any tracking already running.
func (t *DeliveryTracker) Start(orderID string, from, to models.GeoPoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	a := &activeTrack{orderID: orderID, cancel: cancel, done: make(chan struct{})}
	t.active = a
	log.Printf("tracker: start order=%s", orderID)
	go t.run(ctx, a, from, to)
}

// Stop cancels the running tracking, if any, and waits for it to exit.
func (t *DeliveryTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// StopOrder stops the tracking only when it belongs to orderID.
func (t *DeliveryTracker) StopOrder(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != nil && t.active.orderID == orderID {
		t.stopLocked()
	}
}

// Active returns the order currently being tracked, or "".
func (t *DeliveryTracker) Active() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return ""
	}
	select {
	case <-t.active.done:
		return ""
	default:
		return t.active.orderID
	}
}

func (t *DeliveryTracker) stopLocked() {
	if t.active == nil {
		return
	}
	t.active.cancel()
	<-t.active.done
	log.Printf("tracker: stop order=%s", t.active.orderID)
	t.active = nil
}

func (t *DeliveryTracker) run(ctx context.Context, a *activeTrack, from, to models.GeoPoint) {
	defer close(a.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for step := 1; step <= t.steps; step++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		progress := float64(step) / float64(t.steps)
		point := interpolate(from, to, progress)
		p := TrackPosition{
			OrderID:     a.orderID,
			Point:       point,
			Progress:    progress,
			RemainingKm: HaversineDistanceKm(point, to),
			UpdatedAt:   time.Now().UTC(),
		}
		if err := t.sink.Publish(ctx, p); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("tracker: publish order=%s: %v", a.orderID, err)
		}
	}
}

func interpolate(from, to models.GeoPoint, f float64) models.GeoPoint {
	if f >= 1 {
		return to
	}
	return models.GeoPoint{
		Lat: from.Lat + (to.Lat-from.Lat)*f,
		Lng: from.Lng + (to.Lng-from.Lng)*f,
	}
}

// TrackingRepo publishes positions to tracking/{orderId} so clients can
// subscribe to the document.
type TrackingRepo struct {
	store *docstore.Store
}

func NewTrackingRepo(store *docstore.Store) *TrackingRepo {
	return &TrackingRepo{store: store}
}

func (r *TrackingRepo) Publish(ctx context.Context, p TrackPosition) error {
	if err := r.store.Set(ctx, trackingCollection, p.OrderID, p); err != nil {
		return fmt.Errorf("publish position for %s: %w", p.OrderID, err)
	}
	return nil
}

func (r *TrackingRepo) Get(ctx context.Context, orderID string) (*TrackPosition, error) {
	var p TrackPosition
	if err := r.store.Get(ctx, trackingCollection, orderID, &p); err != nil {
		return nil, fmt.Errorf("tracking %s: %w", orderID, err)
	}
	return &p, nil
}

// Clear removes the tracking document once the delivery is over.
func (r *TrackingRepo) Clear(ctx context.Context, orderID string) error {
	err := r.store.Delete(ctx, trackingCollection, orderID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("clear tracking %s: %w", orderID, err)
	}
	return nil
}

func (r *TrackingRepo) OrderPlaced(context.Context, *models.Order) {}

// OrderStatusChanged drops the position of a delivery that has completed.
func (r *TrackingRepo) OrderStatusChanged(ctx context.Context, o *models.Order) {
	if o.Status != models.StatusCompleted || !o.IsDelivery() {
		return
	}
	if err := r.Clear(ctx, o.ID); err != nil {
		log.Printf("tracker: %v", err)
	}
}
