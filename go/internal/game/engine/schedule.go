package engine

import (
	"sync"
	"time"
)

// Schedule owns the next-session deadline and the wake signal of the
// scheduler loop. It is rebuilt from storage on restart.
type Schedule struct {
	mu     sync.RWMutex
	next   *time.Time
	wakeCh chan struct{}
}

func NewSchedule() *Schedule {
	return &Schedule{
		wakeCh: make(chan struct{}, 1),
	}
}

// Next returns the time the next session is due, if one is known.
func (s *Schedule) Next() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.next == nil {
		return time.Time{}, false
	}
	return *s.next, true
}

// SetNext records the next start and wakes the loop.
func (s *Schedule) SetNext(t time.Time) {
	s.mu.Lock()
	s.next = &t
	s.mu.Unlock()
	s.Wake()
}

// Wake nudges the loop to re-read state. It never blocks.
func (s *Schedule) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Schedule) woken() <-chan struct{} {
	return s.wakeCh
}
