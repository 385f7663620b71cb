package promising

import (
	"errors"
	"fmt"
)

// Sentinel errors describing the usage-kind failures the promising package
// can surface, mirrored after the teacher's sentinel-var-plus-Wrap*Error
// convention.
var (
	ErrNoActiveContext     = errors.New("promising: no active context")
	ErrAlreadyResolved     = errors.New("promising: promise already resolved")
	ErrAlreadyOpened       = errors.New("promising: appender already opened")
	ErrAppenderNotOpen     = errors.New("promising: appender is not open")
	ErrAppenderClosed      = errors.New("promising: appender already closed")
	ErrProducerNotSet      = errors.New("promising: streamed promise has no producer")
	ErrStreamAlreadyCalled = errors.New("promising: producer function must not be called concurrently")
)

// ErrEndOfStream is returned by a PieceProducer to signal that no further
// pieces will be produced. It is not a failure: StreamedPromise and its
// replay iterators treat it as normal stream completion.
var ErrEndOfStream = errors.New("promising: end of stream")

// WrapContextError wraps err with operation-specific context about the
// active runtime Context, or nil if err is nil.
func WrapContextError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("promising: context %s: %w", op, err)
}

// WrapPromiseError wraps err with operation-specific context about a Promise,
// or nil if err is nil.
func WrapPromiseError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("promising: promise %s: %w", op, err)
}

// WrapStreamError wraps err with operation-specific context about a
// StreamedPromise, or nil if err is nil.
func WrapStreamError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("promising: stream %s: %w", op, err)
}

// WrapAppenderError wraps err with operation-specific context about a
// StreamAppender, or nil if err is nil.
func WrapAppenderError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("promising: appender %s: %w", op, err)
}
