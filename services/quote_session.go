package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// QuoteFunc computes a delivery quote. It must honour ctx cancellation.
type QuoteFunc func(ctx context.Context) (*DeliveryQuote, error)

// QuoteSession serialises delivery quotes for one checkout. A new
// Recalculate cancels the lookup in flight and clears the displayed fee; a
// result that finishes after a newer request started is discarded.
type QuoteSession struct {
	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	current  *DeliveryQuote
	lastUsed time.Time
}

// Recalculate runs fn as the newest quote request for the session.
func (s *QuoteSession) Recalculate(ctx context.Context, fn QuoteFunc) (*DeliveryQuote, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.current = nil
	s.lastUsed = time.Now()
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	q, err := fn(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		cancel()
		return nil, ErrStaleQuote
	}
	cancel()
	s.cancel = nil
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ErrStaleQuote
		}
		return nil, err
	}
	s.current = q
	return q, nil
}

// Current is the fee on display, nil while a recalculation is running or
// after the last one failed.
func (s *QuoteSession) Current() *DeliveryQuote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *QuoteSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *QuoteSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// QuoteSessions keeps one QuoteSession per checkout session id.
type QuoteSessions struct {
	idle time.Duration

	mu       sync.Mutex
	sessions map[string]*QuoteSession
}

// NewQuoteSessions evicts sessions unused for longer than idle.
func NewQuoteSessions(idle time.Duration) *QuoteSessions {
	return &QuoteSessions{idle: idle, sessions: make(map[string]*QuoteSession)}
}

// Session returns the session for id, creating it on first use.
func (r *QuoteSessions) Session(id string) *QuoteSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = &QuoteSession{lastUsed: time.Now()}
		r.sessions[id] = s
	}
	return s
}

// Close drops the session for id, cancelling any lookup in flight.
func (r *QuoteSessions) Close(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.close()
	}
}

// Len returns the number of live sessions.
func (r *QuoteSessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle since before now - idle and returns how many.
func (r *QuoteSessions) Sweep(now time.Time) int {
	r.mu.Lock()
	var stale []*QuoteSession
	for id, s := range r.sessions {
		if now.Sub(s.idleSince()) > r.idle {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range stale {
		s.close()
	}
	return len(stale)
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *QuoteSessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				log.Printf("quotes: evicted %d idle sessions", n)
			}
		}
	}
}
