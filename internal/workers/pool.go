package workers

import (
	"context"
	"time"

	"model-library/internal/metrics"
)

// Pool is a bounded set of worker slots for blocking filesystem and CPU
// work. Keeping scans and archive compression on pool slots means a burst
// of downloads cannot starve lightweight catalog reads, which never touch
// the pool.
type Pool struct {
	name  string
	slots chan struct{}
}

// NewPool creates a pool with the given number of slots.
func NewPool(name string, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		name:  name,
		slots: make(chan struct{}, size),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	start := time.Now()

	select {
	case p.slots <- struct{}{}:
		metrics.WorkerAcquireWait.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
		metrics.WorkerSlotsInUse.WithLabelValues(p.name).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot to the pool. Must pair with a successful Acquire.
func (p *Pool) Release() {
	<-p.slots
	metrics.WorkerSlotsInUse.WithLabelValues(p.name).Dec()
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return cap(p.slots)
}

// InUse returns the number of slots currently held.
func (p *Pool) InUse() int {
	return len(p.slots)
}
