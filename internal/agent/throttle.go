package agent

import (
	"sync"
	"time"

	"github.com/seonix/seonix-backend/internal/model"
)

// DefaultCooldown is the minimum gap between reports of the same violation
// type. A face missing for twenty seconds should produce a handful of
// reports, not one per frame.
const DefaultCooldown = 3 * time.Second

// Throttle rate-limits violation reports per type.
type Throttle struct {
	mu       sync.Mutex
	last     map[model.ViolationType]time.Time
	cooldown time.Duration
	now      func() time.Time
}

func NewThrottle(cooldown time.Duration) *Throttle {
	return &Throttle{
		last:     make(map[model.ViolationType]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Allow reports whether a violation of this type may be sent now, and if so
// starts its cooldown. Types throttle independently.
func (t *Throttle) Allow(kind model.ViolationType) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[kind]; ok && now.Sub(last) < t.cooldown {
		return false
	}
	t.last[kind] = now
	return true
}
