package promising

import "sync"

// PieceProducer produces the next piece of a streamed promise's content, or
// returns ErrEndOfStream once exhausted. It is called under the stream's
// producer lock, so implementations never need their own synchronization
// against concurrent replay cursors.
type PieceProducer[Piece any] func() (Piece, error)

// Packager collects every piece produced by a StreamedPromise into its final
// whole value, mirroring the original's per-stream "packager" callback.
type Packager[Piece, Whole any] func(pieces []Piece) (Whole, error)

// StreamedPromise is a replayable promise over a sequence of pieces: any
// number of independent replay cursors (StreamReplayIterator) can iterate it
// concurrently, each seeing every piece exactly once in order, while the
// underlying producer itself is driven at most once per piece courtesy of a
// shared producer lock and a growing backing buffer. This mirrors the
// original's StreamedPromise/_StreamReplayIterator pair.
type StreamedPromise[Piece, Whole any] struct {
	ctx       *Context
	producer  PieceProducer[Piece]
	packager  Packager[Piece, Whole]

	producerMu sync.Mutex
	piecesSoFar []Piece
	streamDone  bool
	streamErr   error

	wholeOnce sync.Once
	whole     Whole
	wholeErr  error
}

// NewStreamedPromise builds a StreamedPromise. If startSoon is true,
// production begins immediately on a Context-tracked background goroutine
// (eager mode); otherwise the first piece is produced lazily, the first time
// any replay cursor asks for it.
func NewStreamedPromise[Piece, Whole any](ctx *Context, startSoon bool, producer PieceProducer[Piece], packager Packager[Piece, Whole]) *StreamedPromise[Piece, Whole] {
	sp := &StreamedPromise[Piece, Whole]{ctx: ctx, producer: producer, packager: packager}
	if startSoon {
		ctx.StartSoon(func() error {
			it := sp.NewReplayIterator()
			for {
				if _, err := it.Next(); err != nil {
					if err == ErrEndOfStream {
						return nil
					}
					return err
				}
			}
		})
	}
	return sp
}

// nextPieceAt returns the piece at index idx, producing it (under the
// producer lock) if it has not been produced yet. Every replay cursor
// funnels through this, which is what guarantees the underlying producer
// function runs at most once per piece regardless of how many cursors are
// reading concurrently.
func (sp *StreamedPromise[Piece, Whole]) nextPieceAt(idx int) (Piece, error) {
	sp.producerMu.Lock()
	defer sp.producerMu.Unlock()

	if idx < len(sp.piecesSoFar) {
		return sp.piecesSoFar[idx], nil
	}
	if sp.streamDone {
		var zero Piece
		return zero, sp.streamErr
	}

	piece, err := sp.producer()
	if err != nil {
		sp.streamDone = true
		sp.streamErr = err
		var zero Piece
		return zero, err
	}
	sp.piecesSoFar = append(sp.piecesSoFar, piece)
	return piece, nil
}

// StreamReplayIterator is an independent cursor over a StreamedPromise's
// pieces: it replays pieces already buffered and, once caught up, drives the
// shared producer (under the promise's producer lock) for further ones.
type StreamReplayIterator[Piece, Whole any] struct {
	sp  *StreamedPromise[Piece, Whole]
	idx int
}

// NewReplayIterator returns a fresh cursor starting at the beginning of the
// stream.
func (sp *StreamedPromise[Piece, Whole]) NewReplayIterator() *StreamReplayIterator[Piece, Whole] {
	return &StreamReplayIterator[Piece, Whole]{sp: sp}
}

// Next returns the next piece, or, once the stream is exhausted,
// ErrEndOfStream or the producer's own error unchanged if it failed with a
// different one.
func (it *StreamReplayIterator[Piece, Whole]) Next() (Piece, error) {
	piece, err := it.sp.nextPieceAt(it.idx)
	if err != nil {
		var zero Piece
		return zero, err
	}
	it.idx++
	return piece, nil
}

// ResolveWhole drains the stream to completion (if not already) and returns
// the packaged whole value, memoized after the first call.
func (sp *StreamedPromise[Piece, Whole]) ResolveWhole() (Whole, error) {
	sp.wholeOnce.Do(func() {
		it := sp.NewReplayIterator()
		var pieces []Piece
		for {
			piece, err := it.Next()
			if err != nil {
				if err == ErrEndOfStream {
					break
				}
				sp.wholeErr = err
				return
			}
			pieces = append(pieces, piece)
		}
		sp.whole, sp.wholeErr = sp.packager(pieces)
	})
	return sp.whole, sp.wholeErr
}
