// Package flat implements recursive flattening of nested, possibly
// out-of-order input into a single ordered output stream, generalizing the
// original implementation's FlatSequence and MessageSequence flattening.
package flat

import (
	"github.com/voocel/miniagents/promising"
)

// Flattener expands a single input item into zero or more output pieces by
// calling emit, which it may call any number of times (including
// recursively driving nested iterables/promises down to their leaves). It
// mirrors the original's recursive `_flattener`/`_producer` callable.
type Flattener[IN, OUT any] func(item IN, emit func(OUT) error) error

// Sequence merges two independently-appended input streams — a normal,
// ordered one and a high-priority, out-of-order one — into a single flat
// output stream, expanding each input item through a Flattener. Items
// appended to the urgent stream are always flattened and emitted ahead of
// whatever remains buffered on the normal stream, the same "inject as
// urgent" capability the original's dual normal_appender/high_priority_appender
// gives MessageSequenceAppender.
type Sequence[IN, OUT any] struct {
	ctx     *promising.Context
	flatten Flattener[IN, OUT]

	normal *promising.StreamAppender[IN]
	urgent *promising.StreamAppender[IN]

	normalCh chan itemOrErr[IN]
	urgentCh chan itemOrErr[IN]

	out *promising.StreamedPromise[OUT, []OUT]
}

type itemOrErr[IN any] struct {
	item IN
	err  error
}

// NewSequence builds a Sequence. If startSoon is true, flattening begins
// immediately in the background; otherwise it begins lazily, the first time
// the output promise (via Promise) is read.
func NewSequence[IN, OUT any](ctx *promising.Context, startSoon bool, flatten Flattener[IN, OUT]) *Sequence[IN, OUT] {
	s := &Sequence[IN, OUT]{
		ctx:      ctx,
		flatten:  flatten,
		normal:   promising.NewStreamAppender[IN](ctx.AppendersCaptureErrorsByDefault),
		urgent:   promising.NewStreamAppender[IN](ctx.AppendersCaptureErrorsByDefault),
		normalCh: make(chan itemOrErr[IN]),
		urgentCh: make(chan itemOrErr[IN]),
	}
	s.normal.Open()
	s.urgent.Open()

	ctx.StartSoon(func() error { forward(s.normal.Producer(), s.normalCh); return nil })
	ctx.StartSoon(func() error { forward(s.urgent.Producer(), s.urgentCh); return nil })

	s.out = promising.NewStreamedPromise[OUT, []OUT](ctx, startSoon, s.produce(), collectAll[OUT])
	return s
}

func forward[IN any](producer promising.PieceProducer[IN], ch chan<- itemOrErr[IN]) {
	for {
		item, err := producer()
		ch <- itemOrErr[IN]{item: item, err: err}
		if err != nil {
			return
		}
	}
}

func collectAll[OUT any](pieces []OUT) ([]OUT, error) {
	return pieces, nil
}

// Append adds item to the normal, ordered input stream.
func (s *Sequence[IN, OUT]) Append(item IN) error {
	return s.normal.Append(item)
}

// AppendUrgent adds item to the high-priority, out-of-order input stream: it
// will be flattened and emitted ahead of anything still buffered on the
// normal stream.
func (s *Sequence[IN, OUT]) AppendUrgent(item IN) error {
	return s.urgent.Append(item)
}

// Close ends the normal input stream.
func (s *Sequence[IN, OUT]) Close() error {
	return s.normal.Close()
}

// CloseUrgent ends the high-priority input stream.
func (s *Sequence[IN, OUT]) CloseUrgent() error {
	return s.urgent.Close()
}

// CloseWithError ends the normal input stream with a terminal error: the
// output stream fails with err once every already-buffered item has been
// flattened and emitted.
func (s *Sequence[IN, OUT]) CloseWithError(err error) error {
	return s.normal.CloseWithError(err)
}

// CloseUrgentWithError ends the high-priority input stream with a terminal
// error.
func (s *Sequence[IN, OUT]) CloseUrgentWithError(err error) error {
	return s.urgent.CloseWithError(err)
}

// Promise returns the flattened output as a replayable streamed promise.
func (s *Sequence[IN, OUT]) Promise() *promising.StreamedPromise[OUT, []OUT] {
	return s.out
}

// produce returns the PieceProducer driving the output StreamedPromise: it
// preferentially drains urgent input, flattening each item through the
// configured Flattener, and falls back to normal input only once no urgent
// item is immediately available and the urgent stream has not ended. A
// terminal (non-end-of-stream) error on either input stream ends the output
// stream with that same error.
func (s *Sequence[IN, OUT]) produce() promising.PieceProducer[OUT] {
	var pending []OUT
	urgentDone, normalDone := false, false

	// consume processes one upstream item for the given channel, appending
	// any flattened pieces to pending, marking the corresponding *Done flag
	// once that stream ends, and returning a non-nil error if the stream
	// ended abnormally (as opposed to plain ErrEndOfStream).
	consume := func(ie itemOrErr[IN], doneFlag *bool) error {
		if ie.err != nil {
			*doneFlag = true
			if ie.err != promising.ErrEndOfStream {
				return ie.err
			}
			return nil
		}
		return s.flatten(ie.item, func(o OUT) error {
			pending = append(pending, o)
			return nil
		})
	}

	return func() (OUT, error) {
		for {
			if len(pending) > 0 {
				o := pending[0]
				pending = pending[1:]
				return o, nil
			}
			if urgentDone && normalDone {
				var zero OUT
				return zero, promising.ErrEndOfStream
			}

			var err error
			select {
			case ie := <-s.urgentCh:
				err = consume(ie, &urgentDone)
			default:
				if urgentDone {
					err = consume(<-s.normalCh, &normalDone)
				} else {
					select {
					case ie := <-s.urgentCh:
						err = consume(ie, &urgentDone)
					case ie := <-s.normalCh:
						err = consume(ie, &normalDone)
					}
				}
			}
			if err != nil {
				var zero OUT
				return zero, err
			}
		}
	}
}
