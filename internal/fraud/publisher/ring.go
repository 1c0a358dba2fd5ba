package publisher

import (
	"sync"

	"custos/internal/fraud"
)

// ring is a bounded FIFO over findings. A full ring drops its oldest
// finding to admit the newest, so enqueueing never blocks a sweep.
type ring struct {
	mu      sync.Mutex
	buf     []fraud.Finding
	start   int
	length  int
	dropped int64
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]fraud.Finding, capacity)}
}

// enqueue admits the finding, reporting whether an older one was dropped
// to make room.
func (r *ring) enqueue(f fraud.Finding) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted bool
	if r.length == len(r.buf) {
		r.start = (r.start + 1) % len(r.buf)
		r.length--
		r.dropped++
		evicted = true
	}
	r.buf[(r.start+r.length)%len(r.buf)] = f
	r.length++
	return evicted
}

// dequeueBatch removes up to n findings in arrival order.
func (r *ring) dequeueBatch(n int) []fraud.Finding {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.length == 0 {
		return nil
	}
	if n > r.length {
		n = r.length
	}
	out := make([]fraud.Finding, n)
	for i := range out {
		out[i] = r.buf[r.start]
		r.buf[r.start] = fraud.Finding{}
		r.start = (r.start + 1) % len(r.buf)
	}
	r.length -= n
	return out
}

func (r *ring) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.length
}

func (r *ring) droppedTotal() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
