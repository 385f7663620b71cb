package promising

import (
	"context"
	"errors"
	"log"
	"sync"
)

// PromiseResolvedHandler is invoked every time any Promise activated under a
// Context resolves, successfully or not.
type PromiseResolvedHandler func(result any, err error)

// PersistMessageHandler is invoked when a component (typically the message
// package) asks the active Context to persist a frozen value. The promising
// package has no notion of "message" itself; it only ferries the callback.
type PersistMessageHandler func(ctx context.Context, value any) error

// Context is a scoped runtime: it owns the background-task registry that
// lets Promises and StreamedPromises schedule eager production without
// blocking their caller, and the handler registries agents use to observe
// resolution and persistence. It plays the role the original implementation
// gives its contextvars-based PromiseContext, adapted to the teacher's
// explicit, mutex-guarded context struct idiom instead of ambient globals.
//
// The exported default fields below mirror the original's module-level defaults
// (start_everything_soon_by_default, appenders_capture_errors_by_default,
// longer_hash_keys, errors_as_messages): callers downstream of promising
// (flat, message, agent) read them to decide their own defaults instead of
// hard-coding a choice, so one Context consistently governs a whole run.
type Context struct {
	Logger *log.Logger

	// StartSoonByDefault is read by agent invocation to decide whether a
	// reply sequence starts draining in the background immediately or only
	// once a consumer asks for it.
	StartSoonByDefault bool
	// AppendersCaptureErrorsByDefault is read by flat.NewSequence to decide
	// whether its normal/urgent appenders capture a CloseWithError'd error
	// into a clean end-of-stream (dropping it from the sequence's output) or
	// let it surface as the stream's terminal error.
	AppendersCaptureErrorsByDefault bool
	// LongerHashKeys is read by components that choose a hash_key
	// truncation at the point they mint an identifier (e.g. agent call/reply
	// audit records) to decide between the 40-char short form and the full
	// 64-char SHA-256 digest.
	LongerHashKeys bool
	// ErrorsAsMessages is the context-wide error-to-message default; an
	// agent registered with WithErrorsAsMessages(true) always converts,
	// regardless of this field, but an agent with no explicit setting
	// follows it.
	ErrorsAsMessages bool
	// PropagateBackgroundErrors, when true, makes Finalize return a combined
	// error for every background task that failed instead of only logging
	// it and letting peer tasks continue.
	PropagateBackgroundErrors bool

	mu               sync.Mutex
	wg               sync.WaitGroup
	onResolved       []PromiseResolvedHandler
	onPersist        []PersistMessageHandler
	backgroundErrors []error
}

type ctxKey struct{}

// NewContext builds a fresh, unactivated Context with the original's
// documented defaults (start_everything_soon_by_default=true, every other
// default=false). Pass nil for logger to get a context that logs nothing.
func NewContext(logger *log.Logger) *Context {
	return &Context{
		Logger:             logger,
		StartSoonByDefault: true,
	}
}

// Activate binds c to ctx so that Current can recover it further down the
// call stack, mirroring the original's "activate" contextvars token.
func (c *Context) Activate(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// Current recovers the Context bound to ctx by the nearest enclosing
// Activate call. It returns ErrNoActiveContext if none is bound.
func Current(ctx context.Context) (*Context, error) {
	c, ok := ctx.Value(ctxKey{}).(*Context)
	if !ok {
		return nil, ErrNoActiveContext
	}
	return c, nil
}

// OnPromiseResolved registers a handler invoked whenever any Promise
// activated under this Context resolves.
func (c *Context) OnPromiseResolved(h PromiseResolvedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResolved = append(c.onResolved, h)
}

// OnPersistMessage registers a handler invoked when a value is submitted
// for persistence under this Context.
func (c *Context) OnPersistMessage(h PersistMessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPersist = append(c.onPersist, h)
}

func (c *Context) notifyResolved(result any, err error) {
	c.mu.Lock()
	handlers := append([]PromiseResolvedHandler(nil), c.onResolved...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(result, err)
	}
}

// PersistMessage runs every registered PersistMessageHandler for value,
// returning the first error encountered, if any.
func (c *Context) PersistMessage(ctx context.Context, value any) error {
	c.mu.Lock()
	handlers := append([]PersistMessageHandler(nil), c.onPersist...)
	c.mu.Unlock()
	for _, h := range handlers {
		if err := h(ctx, value); err != nil {
			return err
		}
	}
	return nil
}

// StartSoon schedules fn to run on a background goroutine tracked by this
// Context's Finalize wait group, the same role the original's
// schedule_task/activate plays for "start producing immediately" promises:
// the caller's own call stack is never blocked waiting for fn. A non-nil
// error returned by fn (or a recovered panic) is always logged; it is also
// recorded for Finalize to return if PropagateBackgroundErrors is set,
// otherwise it is suppressed so one failing background task never stops its
// peers.
func (c *Context) StartSoon(fn func() error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = toError(r)
				}
			}()
			err = fn()
		}()
		if err != nil {
			c.recordBackgroundError(err)
		}
	}()
}

func toError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errors.New("promising: recovered panic in background task")
}

func (c *Context) recordBackgroundError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Logger != nil {
		c.Logger.Printf("promising: background task error: %v", err)
	}
	if c.PropagateBackgroundErrors {
		c.backgroundErrors = append(c.backgroundErrors, err)
	}
}

// Gather runs every task concurrently, each given runCtx, and waits for all
// of them to finish, joining every non-nil error they return (the original's
// asyncio.gather-style "await a set of tasks" helper, generalized to a bare
// Context method rather than a package-level coroutine). Unlike StartSoon,
// Gather's tasks are not tracked by Finalize: the caller is already blocked
// waiting for them here. If runCtx is canceled before every task reports,
// Gather returns immediately with runCtx.Err() joined with whatever errors
// had already arrived, respecting cancellation instead of waiting out
// stragglers; those still-running tasks are expected to observe runCtx
// themselves and return promptly.
func (c *Context) Gather(runCtx context.Context, tasks ...func(context.Context) error) error {
	if len(tasks) == 0 {
		return nil
	}
	results := make(chan error, len(tasks))
	for _, task := range tasks {
		task := task
		go func() {
			defer func() {
				if r := recover(); r != nil {
					results <- toError(r)
					return
				}
			}()
			results <- task(runCtx)
		}()
	}

	var errs []error
	for range tasks {
		select {
		case err := <-results:
			if err != nil {
				errs = append(errs, err)
			}
		case <-runCtx.Done():
			errs = append(errs, runCtx.Err())
			return errors.Join(errs...)
		}
	}
	return errors.Join(errs...)
}

// Finalize waits for every background task started with StartSoon to
// complete, repeatedly draining because a task's completion may itself
// enqueue new ones (matching the original's afinalize loop). If
// PropagateBackgroundErrors is set, it returns every background error
// observed since the last Finalize, joined together; otherwise it always
// returns nil, since those errors were already logged and suppressed as
// they occurred.
func (c *Context) Finalize() error {
	c.wg.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.PropagateBackgroundErrors || len(c.backgroundErrors) == 0 {
		c.backgroundErrors = nil
		return nil
	}
	err := errors.Join(c.backgroundErrors...)
	c.backgroundErrors = nil
	return err
}
