package scheduler

import (
	"strconv"
	"sync"
	"time"
)

// Handle identifies one pending delayed invocation. Handles are stored on the
// entity owning the transition so a later operation can cancel them.
type Handle string

// Scheduler runs a function once after a delay. Cancel is best-effort: a
// canceled handle may still fire, so every scheduled function has to
// re-validate state before acting.
type Scheduler interface {
	After(d time.Duration, fn func()) Handle
	Cancel(h Handle)
}

// TimerScheduler is the production Scheduler built on time.AfterFunc.
type TimerScheduler struct {
	mu     sync.Mutex
	seq    uint64
	timers map[Handle]*time.Timer
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[Handle]*time.Timer)}
}

func (s *TimerScheduler) After(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	s.seq++
	h := Handle(strconv.FormatUint(s.seq, 10))
	s.timers[h] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, h)
		s.mu.Unlock()
		fn()
	})
	s.mu.Unlock()
	return h
}

// Cancel stops the pending invocation. It is a no-op for unknown handles and
// for handles that already fired.
func (s *TimerScheduler) Cancel(h Handle) {
	s.mu.Lock()
	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
	s.mu.Unlock()
}
