package promising

import "sync"

// Fulfiller produces the single value (or error) a Promise resolves to. It
// is called at most once, lazily on first Resolve, unless the promise was
// created prefilled or with StartSoon eager scheduling.
type Fulfiller[T any] func() (T, error)

// Promise is a single-value, at-most-once-resolved future, mirroring the
// original implementation's Promise[T] (prefill-or-fulfiller, lock-guarded
// first resolution, cached result after).
type Promise[T any] struct {
	ctx *Context

	mu        sync.Mutex
	fulfiller Fulfiller[T]
	resolved  bool
	resolving bool
	done      chan struct{}
	value     T
	err       error
}

// NewPromise builds a Promise that calls fulfiller at most once, the first
// time Resolve is called (lazy mode), unless startSoon is true, in which case
// production begins immediately on a Context-tracked background goroutine
// (eager mode).
func NewPromise[T any](ctx *Context, startSoon bool, fulfiller Fulfiller[T]) *Promise[T] {
	p := &Promise[T]{
		ctx:       ctx,
		fulfiller: fulfiller,
		done:      make(chan struct{}),
	}
	if startSoon {
		p.startResolving()
	}
	return p
}

// Prefilled builds a Promise that is already resolved to value with no
// fulfiller at all.
func Prefilled[T any](ctx *Context, value T) *Promise[T] {
	p := &Promise[T]{ctx: ctx, done: make(chan struct{})}
	p.resolved = true
	p.value = value
	close(p.done)
	return p
}

// PrefilledError builds a Promise that is already resolved to err.
func PrefilledError[T any](ctx *Context, err error) *Promise[T] {
	p := &Promise[T]{ctx: ctx, done: make(chan struct{})}
	p.resolved = true
	p.err = err
	close(p.done)
	return p
}

func (p *Promise[T]) startResolving() {
	p.mu.Lock()
	if p.resolved || p.resolving {
		p.mu.Unlock()
		return
	}
	p.resolving = true
	fulfiller := p.fulfiller
	p.mu.Unlock()

	resolve := func() {
		value, err := fulfiller()
		p.mu.Lock()
		if !p.resolved {
			p.value, p.err = value, err
			p.resolved = true
			close(p.done)
		}
		p.mu.Unlock()
		if err != nil && p.ctx != nil && p.ctx.Logger != nil {
			p.ctx.Logger.Printf("promising: promise resolver error: %v", err)
		}
		if p.ctx != nil {
			p.ctx.notifyResolved(value, err)
		}
	}
	if p.ctx != nil {
		// The resolver's own error is already captured into p.err for every
		// caller of Resolve to observe; it is logged above, not reported a
		// second time as an orphan background-task failure.
		p.ctx.StartSoon(func() error { resolve(); return nil })
	} else {
		go resolve()
	}
}

// Resolve blocks until the promise's value is available, triggering
// production under lock if it has not started yet, and returns the cached
// result on every subsequent call.
func (p *Promise[T]) Resolve() (T, error) {
	p.mu.Lock()
	if !p.resolved && !p.resolving {
		p.mu.Unlock()
		p.startResolving()
	} else {
		p.mu.Unlock()
	}
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

// Done returns a channel closed once the promise has resolved, for callers
// that want to select on multiple promises.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}
