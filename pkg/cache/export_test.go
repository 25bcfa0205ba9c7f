package cache

import "time"

// SetClock replaces the time source used to stamp and check expiry.
func (m *Memory) SetClock(now func() time.Time) {
	m.now = now
}
