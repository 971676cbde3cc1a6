package provision

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool owns every Provision borrowed by connection tasks. It is per-runtime,
// not per-worker — the only cross-task synchronization in the connection
// hot path (spec.md §5).
//
// Per spec.md §9's resolved Open Question, a Pool with a bounded
// ConnectionCountMax does not refuse a Borrow when exhausted: the caller
// parks on admission.Acquire until a Release frees a slot, so an already
// SYN-ACKed socket is never dropped for want of a provision.
type Pool struct {
	limits Limits
	max    *int // nil = unbounded

	admission *semaphore.Weighted // nil when unbounded

	mu   sync.Mutex
	free []*Provision
}

// NewPool builds a Pool. max mirrors config.Config.ConnectionCountMax: nil
// means no admission limit.
func NewPool(limits Limits, max *int) *Pool {
	p := &Pool{limits: limits}
	if max != nil {
		m := *max
		p.max = &m
		p.admission = semaphore.NewWeighted(int64(m))
	}
	return p
}

// Borrow returns an exclusive Provision for one connection's use. It blocks
// (parking, not refusing — see Pool's doc comment) until admitted, if the
// pool is bounded and currently full.
func (p *Pool) Borrow(ctx context.Context) (*Provision, error) {
	if p.admission != nil {
		if err := p.admission.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	n := len(p.free)
	var pr *Provision
	if n > 0 {
		pr = p.free[n-1]
		p.free = p.free[:n-1]
	}
	p.mu.Unlock()

	if pr == nil {
		pr = newProvision(p.limits)
	}
	pr.init()
	return pr, nil
}

// Release returns pr to the pool for reuse by a future Borrow, after
// resetting it per the per-connection memory budget in spec.md §5.
func (p *Pool) Release(pr *Provision) {
	pr.release()

	p.mu.Lock()
	p.free = append(p.free, pr)
	p.mu.Unlock()

	if p.admission != nil {
		p.admission.Release(1)
	}
}

// Len reports how many idle provisions are currently held in the free
// list (for tests/metrics, not part of the borrow/release hot path).
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
