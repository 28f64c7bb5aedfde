// Package scheduler drives reconciliation cycles: once on start, on every
// tick, and whenever something asks for one.
//
// Every request goes through a single FIFO queue drained by one worker, so at
// most one cycle is in flight and cycles complete in the order they were
// requested.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// DefaultInterval matches the dashboard refresh period
const DefaultInterval = 9 * time.Second

// Reasons attached to scheduler-originated runs
const (
	ReasonStartup = "startup"
	ReasonTick    = "tick"
)

// ErrAlreadyStarted is returned by a second Start
var ErrAlreadyStarted = errors.New("scheduler already started")

// RunFunc executes one cycle
type RunFunc func(ctx context.Context, reason string) error

// Option configures a Scheduler
type Option func(*Scheduler)

// WithCycleTimeout bounds each cycle
func WithCycleTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.cycleTimeout = d
		}
	}
}

// Scheduler serializes cycle runs
type Scheduler struct {
	run          RunFunc
	interval     time.Duration
	cycleTimeout time.Duration
	queue        *requestQueue

	mu       sync.Mutex
	started  bool
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a scheduler. A non-positive interval uses DefaultInterval.
func New(run RunFunc, interval time.Duration, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{
		run:          run,
		interval:     interval,
		cycleTimeout: 30 * time.Second,
		queue:        newRequestQueue(),
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the tick period
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start queues an immediate run and begins ticking. Cancelling ctx has the
// same effect as Stop, except that it does not wait: the worker closes the
// queue on its way out.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	s.queue.Enqueue(Request{Reason: ReasonStartup, At: time.Now()})

	s.wg.Add(2)
	go s.worker(ctx)
	go s.ticker(ctx)

	log.Printf("Scheduler: started (interval=%s)", s.interval)
	return nil
}

// Trigger queues an on-demand run. It is a no-op once the scheduler has
// stopped.
func (s *Scheduler) Trigger(reason string) {
	if !s.queue.Enqueue(Request{Reason: reason, At: time.Now()}) {
		log.Printf("Scheduler: dropped trigger %q after stop", reason)
	}
}

// Pending returns the number of queued runs
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// Stop ends ticking, drops queued runs and waits for the in-flight cycle to
// finish committing.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if dropped := s.queue.Close(); dropped > 0 {
			log.Printf("Scheduler: dropped %d pending runs", dropped)
		}
	})
	s.wg.Wait()
	log.Printf("Scheduler: stopped")
}

func (s *Scheduler) ticker(ctx context.Context) {
	defer s.wg.Done()

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			s.queue.Enqueue(Request{Reason: ReasonTick, At: time.Now()})
		}
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		if dropped := s.queue.Close(); dropped > 0 {
			log.Printf("Scheduler: dropped %d pending runs", dropped)
		}
	}()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-s.queue.Wait():
		}

		for {
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			default:
			}

			req, ok := s.queue.TryDequeue()
			if !ok {
				break
			}
			s.execute(ctx, req)
		}
	}
}

// execute runs one cycle on a context that outlives stop so the cycle can
// commit consistently.
func (s *Scheduler) execute(ctx context.Context, req Request) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cycleTimeout)
	defer cancel()

	if err := s.run(runCtx, req.Reason); err != nil {
		log.Printf("Scheduler: cycle (%s) failed: %v", req.Reason, err)
	}
}
