package services

import (
	"math"
	"sync"
	"time"
)

const ThrottleCooldownCapSeconds = 30

type throttleEntry struct {
	failCount     int
	cooldownUntil time.Time
}

// LoginThrottle tracks failed logins per client in memory.
type LoginThrottle struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*throttleEntry
}

func NewLoginThrottle() *LoginThrottle {
	return &LoginThrottle{now: time.Now, entries: make(map[string]*throttleEntry)}
}

// WaitSeconds returns how many seconds the client must wait before trying again (0 if no cooldown).
func (t *LoginThrottle) WaitSeconds(client string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[client]
	if !ok {
		return 0
	}
	left := e.cooldownUntil.Sub(t.now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// RecordFailed increments the fail count and sets the cooldown to min(30, 2^failCount) seconds.
func (t *LoginThrottle) RecordFailed(client string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[client]
	if !ok {
		e = &throttleEntry{}
		t.entries[client] = e
	}
	e.failCount++
	e.cooldownUntil = t.now().Add(time.Duration(CooldownSecondsForFailCount(e.failCount)) * time.Second)
}

// RecordSuccess forgets the client's failures.
func (t *LoginThrottle) RecordSuccess(client string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, client)
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > ThrottleCooldownCapSeconds {
		return ThrottleCooldownCapSeconds
	}
	return s
}
