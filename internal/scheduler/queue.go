package scheduler

import (
	"sync"
	"time"
)

// Request is one queued cycle run
type Request struct {
	Reason string
	At     time.Time
}

// requestQueue is an unbounded FIFO with a coalescing signal channel for
// context-aware waiting.
type requestQueue struct {
	mu       sync.Mutex
	requests []Request
	closed   bool
	signal   chan struct{} // buffered, size 1
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		requests: make([]Request, 0, 8),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a request. Returns false once the queue is closed.
func (q *requestQueue) Enqueue(r Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.requests = append(q.requests, r)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the front request without blocking
func (q *requestQueue) TryDequeue() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return Request{}, false
	}
	r := q.requests[0]
	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}
	return r, true
}

// Wait returns the channel signalled when requests may be available
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Close rejects further requests and drops pending ones. Returns the number
// dropped.
func (q *requestQueue) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := len(q.requests)
	q.closed = true
	q.requests = nil
	return dropped
}

// Len returns the number of pending requests
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}
