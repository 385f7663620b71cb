// Package miniagents is a streaming-promise concurrency runtime for
// composing agents — independent asynchronous producers of message streams
// — into dataflow graphs.
package miniagents

import (
	"context"
	"log"
	"os"

	"github.com/voocel/miniagents/promising"
)

// config holds Run's options, built via the functional-options pattern.
type config struct {
	logger                          *log.Logger
	startSoonByDefault              bool
	appendersCaptureErrorsByDefault bool
	longerHashKeys                  bool
	errorsAsMessages                bool
	propagateBackgroundErrors       bool
}

// Option configures a Run call.
type Option func(*config)

// WithLogger sets the *log.Logger every Promise/StreamedPromise activated
// under this run reports background-task failures to. Defaults to a logger
// writing to stderr.
func WithLogger(logger *log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithStartSoonByDefault controls whether agent replies (and other eager
// promises) start draining in the background immediately, or only once a
// consumer asks for them. Defaults to true.
func WithStartSoonByDefault(enabled bool) Option {
	return func(c *config) { c.startSoonByDefault = enabled }
}

// WithAppendersCaptureErrorsByDefault controls whether a flattened
// sequence's appenders swallow a CloseWithError'd error into a clean
// end-of-stream instead of surfacing it as the stream's terminal error. A
// swallowed error does not appear in the sequence's output. Defaults to
// false.
func WithAppendersCaptureErrorsByDefault(enabled bool) Option {
	return func(c *config) { c.appendersCaptureErrorsByDefault = enabled }
}

// WithLongerHashKeys selects the full 64-character SHA-256 hash_key instead
// of the default 40-character truncation for components (such as agent
// call/reply audit records) that read this default when minting one.
// Defaults to false.
func WithLongerHashKeys(enabled bool) Option {
	return func(c *config) { c.longerHashKeys = enabled }
}

// WithErrorsAsMessages sets the context-wide error-to-message default: when
// enabled, every agent converts its own failures into is_error=true reply
// messages instead of propagating them as the reply stream's terminal error.
// An agent's own WithErrorsAsMessages(true) enables conversion for that
// agent alone; WithErrorsAsMessages(false) on an agent does not turn this
// default off. Defaults to false.
func WithErrorsAsMessages(enabled bool) Option {
	return func(c *config) { c.errorsAsMessages = enabled }
}

// WithPropagateBackgroundErrors makes Run return a combined error for every
// background task that failed during the run instead of only logging it and
// letting peer tasks continue. Defaults to false.
func WithPropagateBackgroundErrors(enabled bool) Option {
	return func(c *config) { c.propagateBackgroundErrors = enabled }
}

// Run activates a fresh promising.Context, binds it to ctx, runs fn with
// the bound context, then waits for every background task started under it
// (via promising.Context.StartSoon, including every agent invocation's
// background execution and audit-record promises) to finish before
// returning fn's error.
func Run(ctx context.Context, fn func(ctx context.Context, pctx *promising.Context) error, opts ...Option) error {
	c := &config{
		logger:             log.New(os.Stderr, "miniagents: ", log.LstdFlags),
		startSoonByDefault: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	pctx := promising.NewContext(c.logger)
	pctx.StartSoonByDefault = c.startSoonByDefault
	pctx.AppendersCaptureErrorsByDefault = c.appendersCaptureErrorsByDefault
	pctx.LongerHashKeys = c.longerHashKeys
	pctx.ErrorsAsMessages = c.errorsAsMessages
	pctx.PropagateBackgroundErrors = c.propagateBackgroundErrors

	runCtx := pctx.Activate(ctx)

	err := fn(runCtx, pctx)
	if bgErr := pctx.Finalize(); bgErr != nil && err == nil {
		err = WrapRunError("background tasks", bgErr)
	}
	return err
}
