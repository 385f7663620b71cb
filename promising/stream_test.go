package promising

import "testing"

func intsProducer(n int) PieceProducer[int] {
	i := 0
	return func() (int, error) {
		if i >= n {
			return 0, ErrEndOfStream
		}
		i++
		return i, nil
	}
}

func sumPackager(pieces []int) (int, error) {
	sum := 0
	for _, p := range pieces {
		sum += p
	}
	return sum, nil
}

func TestStreamedPromiseReplayIndependentCursors(t *testing.T) {
	sp := NewStreamedPromise(NewContext(nil), false, intsProducer(3), sumPackager)

	it1 := sp.NewReplayIterator()
	v, err := it1.Next()
	if err != nil || v != 1 {
		t.Fatalf("it1.Next() = (%d, %v), want (1, nil)", v, err)
	}

	it2 := sp.NewReplayIterator()
	for _, want := range []int{1, 2, 3} {
		v, err := it2.Next()
		if err != nil || v != want {
			t.Fatalf("it2.Next() = (%d, %v), want (%d, nil)", v, err, want)
		}
	}
	if _, err := it2.Next(); err != ErrEndOfStream {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}

	v, err = it1.Next()
	if err != nil || v != 2 {
		t.Fatalf("it1 should replay piece 2 next, got (%d, %v)", v, err)
	}
}

func TestStreamedPromiseProducerCalledOncePerPiece(t *testing.T) {
	calls := 0
	producer := func() (int, error) {
		if calls >= 2 {
			return 0, ErrEndOfStream
		}
		calls++
		return calls, nil
	}
	sp := NewStreamedPromise(NewContext(nil), false, producer, sumPackager)

	// Two independent cursors both read the whole stream.
	for _, it := range []*StreamReplayIterator[int, int]{sp.NewReplayIterator(), sp.NewReplayIterator()} {
		for {
			if _, err := it.Next(); err != nil {
				break
			}
		}
	}
	if calls != 2 {
		t.Fatalf("expected producer called exactly twice (once per piece), called %d times", calls)
	}
}

func TestResolveWholePackagesAllPieces(t *testing.T) {
	sp := NewStreamedPromise(NewContext(nil), false, intsProducer(4), sumPackager)
	whole, err := sp.ResolveWhole()
	if err != nil {
		t.Fatalf("ResolveWhole: %v", err)
	}
	if whole != 10 {
		t.Fatalf("expected sum 10, got %d", whole)
	}
}

func TestStreamAppenderRoundTrip(t *testing.T) {
	app := NewStreamAppender[int](false)
	if err := app.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	sp := NewStreamedPromise[int, int](NewContext(nil), false, app.Producer(), sumPackager)

	go func() {
		app.Append(1)
		app.Append(2)
		app.Append(3)
		app.Close()
	}()

	whole, err := sp.ResolveWhole()
	if err != nil {
		t.Fatalf("ResolveWhole: %v", err)
	}
	if whole != 6 {
		t.Fatalf("expected 6, got %d", whole)
	}
}

func TestStreamAppenderCaptureErrorsSwallowsTerminalError(t *testing.T) {
	app := NewStreamAppender[int](true)
	app.Open()
	go func() {
		app.Append(1)
		app.CloseWithError(errBoom)
	}()

	sp := NewStreamedPromise[int, int](NewContext(nil), false, app.Producer(), sumPackager)
	whole, err := sp.ResolveWhole()
	if err != nil {
		t.Fatalf("expected captured error not to surface as a stream error, got %v", err)
	}
	if whole != 1 {
		t.Fatalf("expected 1, got %d", whole)
	}
	if app.Err() != errBoom {
		t.Fatalf("expected Err() to return the captured error")
	}
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
