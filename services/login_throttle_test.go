package services

import (
	"testing"
	"time"
)

func TestCooldownSecondsForFailCount(t *testing.T) {
	tests := []struct {
		failCount int
		want      int
	}{
		{0, 1},   // 2^0=1
		{1, 2},   // 2^1=2
		{2, 4},   // 2^2=4
		{3, 8},   // 2^3=8
		{4, 16},  // 2^4=16
		{5, 30},  // 2^5=32 -> cap 30
		{6, 30},  // 2^6=64 -> cap 30
		{10, 30}, // cap 30
	}
	for _, tt := range tests {
		got := CooldownSecondsForFailCount(tt.failCount)
		if got != tt.want {
			t.Errorf("CooldownSecondsForFailCount(%d) = %d, want %d", tt.failCount, got, tt.want)
		}
	}
}

func TestLoginThrottle(t *testing.T) {
	now := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	th := NewLoginThrottle()
	th.now = func() time.Time { return now }
	const client = "10.0.0.1"

	if w := th.WaitSeconds(client); w != 0 {
		t.Errorf("fresh client: wait = %d, want 0", w)
	}

	th.RecordFailed(client)
	if w := th.WaitSeconds(client); w != 2 {
		t.Errorf("after one fail: wait = %d, want 2", w)
	}
	if w := th.WaitSeconds("other"); w != 0 {
		t.Errorf("cooldown leaked to another client: %d", w)
	}

	now = now.Add(3 * time.Second)
	if w := th.WaitSeconds(client); w != 0 {
		t.Errorf("after cooldown expired: wait = %d, want 0", w)
	}

	for i := 0; i < 8; i++ {
		th.RecordFailed(client)
	}
	if w := th.WaitSeconds(client); w != ThrottleCooldownCapSeconds {
		t.Errorf("after many fails: wait = %d, want cap %d", w, ThrottleCooldownCapSeconds)
	}

	th.RecordSuccess(client)
	if w := th.WaitSeconds(client); w != 0 {
		t.Errorf("after success: wait = %d, want 0", w)
	}
}
