package authflow

import (
	"context"
	"sync"
)

// latest supervises the handlers of one trigger type. Starting a handler
// cancels the previous one, and a cancelled handler can no longer commit
// effects: commits and cancellation share the same lock.
type latest struct {
	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	current *task
}

type task struct {
	owner *latest
	id    uint64
	ctx   context.Context
	done  chan struct{}
	err   error

	// set by commit, read after done
	committed bool
	message   string
}

func (l *latest) start(parent context.Context) *task {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	l.seq++
	l.cancel = cancel
	l.current = &task{
		owner: l,
		id:    l.seq,
		ctx:   ctx,
		done:  make(chan struct{}),
	}
	return l.current
}

// last returns the most recently started handler, or nil
func (l *latest) last() *task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// commit runs effects in order if t is still the latest live handler
func (t *task) commit(effects ...func()) bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.id != t.owner.seq || t.ctx.Err() != nil {
		return false
	}
	for _, effect := range effects {
		effect()
	}
	t.committed = true
	return true
}

// superseded reports whether the handler lost its right to commit
func (t *task) superseded() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.id != t.owner.seq || t.ctx.Err() != nil
}

func (t *task) finish(err error) {
	t.owner.mu.Lock()
	if t.id == t.owner.seq && t.owner.cancel != nil {
		t.owner.cancel()
		t.owner.cancel = nil
	}
	t.owner.mu.Unlock()

	t.err = err
	close(t.done)
}

// wait blocks until the handler finished or ctx is done
func (t *task) wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
