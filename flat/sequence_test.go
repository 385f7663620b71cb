package flat

import (
	"testing"

	"github.com/voocel/miniagents/promising"
)

// identityFlatten treats each input int as already a single output leaf.
func identityFlatten(item int, emit func(int) error) error {
	return emit(item)
}

// expandFlatten treats a negative input as "expand into its absolute value
// copies of 1", modeling a nested-iterable input collapsing into several
// leaves — the same shape as a nested message sequence flattening into
// several messages.
func expandFlatten(item int, emit func(int) error) error {
	if item < 0 {
		for i := 0; i < -item; i++ {
			if err := emit(1); err != nil {
				return err
			}
		}
		return nil
	}
	return emit(item)
}

func TestSequenceFlattensNormalStreamInOrder(t *testing.T) {
	s := NewSequence[int, int](promising.NewContext(nil), false, identityFlatten)
	s.Append(1)
	s.Append(2)
	s.Append(3)
	s.Close()
	s.CloseUrgent()

	whole, err := s.Promise().ResolveWhole()
	if err != nil {
		t.Fatalf("ResolveWhole: %v", err)
	}
	want := []int{1, 2, 3}
	if len(whole) != len(want) {
		t.Fatalf("got %v, want %v", whole, want)
	}
	for i := range want {
		if whole[i] != want[i] {
			t.Fatalf("got %v, want %v", whole, want)
		}
	}
}

func TestSequenceExpandsNestedItemsIntoMultipleLeaves(t *testing.T) {
	s := NewSequence[int, int](promising.NewContext(nil), false, expandFlatten)
	s.Append(-3) // expands to three 1s
	s.Append(5)
	s.Close()
	s.CloseUrgent()

	whole, err := s.Promise().ResolveWhole()
	if err != nil {
		t.Fatalf("ResolveWhole: %v", err)
	}
	want := []int{1, 1, 1, 5}
	if len(whole) != len(want) {
		t.Fatalf("got %v, want %v", whole, want)
	}
	for i := range want {
		if whole[i] != want[i] {
			t.Fatalf("got %v, want %v", whole, want)
		}
	}
}

func TestSequenceUrgentStreamPrecedesNormal(t *testing.T) {
	s := NewSequence[int, int](promising.NewContext(nil), false, identityFlatten)
	s.Append(100) // normal, appended first but should come second
	s.AppendUrgent(1)
	s.Close()
	s.CloseUrgent()

	whole, err := s.Promise().ResolveWhole()
	if err != nil {
		t.Fatalf("ResolveWhole: %v", err)
	}
	if len(whole) != 2 || whole[0] != 1 || whole[1] != 100 {
		t.Fatalf("expected urgent item first, got %v", whole)
	}
}
