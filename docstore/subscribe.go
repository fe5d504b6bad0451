package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

// Subscribe delivers the current document and every later version of it to
// onData. A deleted or missing document is delivered as nil. Errors go to
// onError; errors.Is(err, ErrPermissionDenied) tells expected denials apart.
// The returned function stops the subscription and waits for it to exit.
func (s *Store) Subscribe(ctx context.Context, collection, id string, onData func(json.RawMessage), onError func(error)) (unsubscribe func()) {
	return s.run(ctx, collection, onError, func(ctx context.Context, docID string) error {
		if docID != "" && docID != id {
			return nil
		}
		raw, err := s.raw(ctx, collection, id)
		if err != nil {
			return err
		}
		onData(raw)
		return nil
	})
}

const resubscribeDelay = 2 * time.Second

// changeFunc is called with "" once the listener is up, then with the id of
// every changed document in the collection.
type changeFunc func(ctx context.Context, docID string) error

func (s *Store) run(ctx context.Context, collection string, onError func(error), onChange changeFunc) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			err := s.listenOnce(ctx, collection, onChange)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				onError(err)
				if errors.Is(err, ErrPermissionDenied) {
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(resubscribeDelay):
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *Store) listenOnce(ctx context.Context, collection string, onChange changeFunc) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener: %w", translate(err))
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", translate(err))
	}
	defer func() {
		// the connection goes back to the pool; stop receiving on it
		_, _ = conn.Exec(context.Background(), "UNLISTEN "+notifyChannel)
	}()

	if err := onChange(ctx, ""); err != nil {
		return err
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", translate(err))
		}
		c, docID, ok := SplitPath(n.Payload)
		if !ok || c != collection {
			continue
		}
		if err := onChange(ctx, docID); err != nil {
			return err
		}
	}
}

// raw returns the stored JSON, or nil when the document does not exist.
func (s *Store) raw(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := s.Get(ctx, collection, id, &raw)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return raw, err
}

// LogListenerError is an onError that logs permission denials separately from
// other failures. Denials are expected for listeners without the right role.
func LogListenerError(subject string) func(error) {
	return func(err error) {
		if errors.Is(err, ErrPermissionDenied) {
			log.Printf("%s: listener permission denied: %v", subject, err)
			return
		}
		log.Printf("%s: listener error: %v", subject, err)
	}
}
