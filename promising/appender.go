package promising

import "sync"

// StreamAppender is a write handle for feeding pieces into a StreamedPromise:
// the producer side of the open/append/close lifecycle the original
// implementation calls AppendProducer. A StreamAppender's Producer method
// returns a PieceProducer suitable for NewStreamedPromise.
type StreamAppender[Piece any] struct {
	ch            chan Piece
	captureErrors bool

	mu     sync.Mutex
	opened bool
	closed bool
	err    error
}

// NewStreamAppender builds an appender. If captureErrors is true, an error
// passed to CloseWithError ends the stream normally (as ErrEndOfStream) and
// is only retrievable via Err, letting a caller such as the message package
// turn it into an in-band error value instead of a broken stream; if false,
// that error becomes the stream's terminal error, returned to every replay
// cursor in place of ErrEndOfStream.
func NewStreamAppender[Piece any](captureErrors bool) *StreamAppender[Piece] {
	return &StreamAppender[Piece]{ch: make(chan Piece), captureErrors: captureErrors}
}

// Open marks the appender ready to accept pieces. Append before Open returns
// ErrAppenderNotOpen.
func (a *StreamAppender[Piece]) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.opened {
		return ErrAlreadyOpened
	}
	a.opened = true
	return nil
}

// Append sends piece to the stream, blocking until a replay cursor consumes
// it. It returns ErrAppenderNotOpen or ErrAppenderClosed if called out of
// sequence.
func (a *StreamAppender[Piece]) Append(piece Piece) error {
	a.mu.Lock()
	if !a.opened {
		a.mu.Unlock()
		return ErrAppenderNotOpen
	}
	if a.closed {
		a.mu.Unlock()
		return ErrAppenderClosed
	}
	a.mu.Unlock()

	a.ch <- piece
	return nil
}

// Close ends the stream with no error: subsequent reads see ErrEndOfStream.
func (a *StreamAppender[Piece]) Close() error {
	return a.closeWith(nil)
}

// CloseWithError ends the stream and records err. Whether a replay cursor
// sees err itself or ErrEndOfStream (with err recoverable via Err) depends
// on the captureErrors flag this appender was built with.
func (a *StreamAppender[Piece]) CloseWithError(err error) error {
	return a.closeWith(err)
}

func (a *StreamAppender[Piece]) closeWith(err error) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAppenderClosed
	}
	a.closed = true
	a.err = err
	a.mu.Unlock()
	close(a.ch)
	return nil
}

// Err returns the error this appender was closed with, if any, regardless of
// the captureErrors mode.
func (a *StreamAppender[Piece]) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Acquire opens the appender, runs body, and closes it with body's returned
// error (nil closing cleanly), mirroring the original's `with appender:`
// scoped-block usage. It is a convenience wrapper only: flat.Sequence and the
// message package open-code this same open/run/close sequence themselves
// because they need to interleave it with other setup, but a caller with no
// such need can use Acquire directly instead of repeating the three calls.
func (a *StreamAppender[Piece]) Acquire(body func() error) error {
	if err := a.Open(); err != nil {
		return err
	}
	err := body()
	return a.closeWith(err)
}

// Producer returns a PieceProducer reading from this appender, suitable for
// NewStreamedPromise. It must be called by at most one StreamedPromise.
func (a *StreamAppender[Piece]) Producer() PieceProducer[Piece] {
	return func() (Piece, error) {
		piece, ok := <-a.ch
		if ok {
			return piece, nil
		}
		var zero Piece
		a.mu.Lock()
		err := a.err
		capture := a.captureErrors
		a.mu.Unlock()
		if err != nil && !capture {
			return zero, err
		}
		return zero, ErrEndOfStream
	}
}
