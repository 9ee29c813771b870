package effect

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Queue is a bounded buffer of effects. Pushing never blocks: when the
// buffer is full the effect is dropped with a warning.
type Queue struct {
	ch     chan Effect
	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue holding up to size effects.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan Effect, size)}
}

// Push enqueues e and reports whether it was accepted.
func (q *Queue) Push(e Effect) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		log.Warn().Str("effect", string(e.Kind)).Int64("user_id", e.UserID).Msg("Effect queue closed, dropping effect")
		return false
	}
	select {
	case q.ch <- e:
		return true
	default:
		log.Warn().Str("effect", string(e.Kind)).Int64("user_id", e.UserID).Msg("Effect queue full, dropping effect")
		return false
	}
}

// PushAll enqueues every effect and returns how many were accepted.
func (q *Queue) PushAll(effects []Effect) int {
	n := 0
	for _, e := range effects {
		if q.Push(e) {
			n++
		}
	}
	return n
}

// Close stops accepting effects. Buffered effects stay readable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Len returns the number of buffered effects.
func (q *Queue) Len() int {
	return len(q.ch)
}

func (q *Queue) items() <-chan Effect {
	return q.ch
}
