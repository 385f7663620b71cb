package frozen

import (
	"math"
	"testing"
)

func TestNewRejectsRawMap(t *testing.T) {
	_, err := New("Thing", map[string]any{
		"bad": map[int]bool{1: true},
	})
	if err == nil {
		t.Fatalf("expected New to reject a raw map value, got nil error")
	}
}

func TestNewRejectsNaN(t *testing.T) {
	_, err := New("Thing", map[string]any{"x": math.NaN()})
	if err == nil {
		t.Fatalf("expected New to reject NaN")
	}
}

func TestHashKeyStableAcrossFieldOrder(t *testing.T) {
	a, err := New("Thing", map[string]any{"a": int64(1), "b": "two"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New("Thing", map[string]any{"b": "two", "a": int64(1)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.HashKey(false) != b.HashKey(false) {
		t.Fatalf("hash keys differ despite identical fields in different insertion order")
	}
}

func TestHashKeyShortIsPrefixOfLong(t *testing.T) {
	r, err := New("Thing", map[string]any{"a": int64(1)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	short := r.HashKey(false)
	long := r.HashKey(true)
	if len(short) != 40 || len(long) != 64 {
		t.Fatalf("unexpected hash lengths: short=%d long=%d", len(short), len(long))
	}
	if long[:40] != short {
		t.Fatalf("short hash is not a prefix of the long hash")
	}
}

func TestHashKeyDiffersOnDifferentFields(t *testing.T) {
	a, _ := New("Thing", map[string]any{"a": int64(1)})
	b, _ := New("Thing", map[string]any{"a": int64(2)})
	if a.HashKey(false) == b.HashKey(false) {
		t.Fatalf("expected different field values to produce different hash keys")
	}
}

func TestEqualUsesStructuralHash(t *testing.T) {
	a, _ := New("Thing", map[string]any{"a": int64(1), "nested": map[string]any{"x": "y"}})
	b, _ := New("Thing", map[string]any{"a": int64(1), "nested": map[string]any{"x": "y"}})
	if !a.Equal(b) {
		t.Fatalf("expected structurally identical records to be Equal")
	}
}

func TestExternalizeReplacesFieldWithHashKey(t *testing.T) {
	child, err := New("Child", map[string]any{"v": int64(42)})
	if err != nil {
		t.Fatalf("New child: %v", err)
	}
	parent, err := New("Parent", map[string]any{
		"child": Externalize(child),
	})
	if err != nil {
		t.Fatalf("New parent: %v", err)
	}
	ser := parent.Serialize()
	if _, inline := ser["child"]; inline {
		t.Fatalf("expected child to be externalized, found inline field instead")
	}
	hk, ok := ser["child__hash_key"]
	if !ok {
		t.Fatalf("expected child__hash_key field in serialized parent")
	}
	if hk != child.HashKey(false) {
		t.Fatalf("externalized hash key does not match child's own hash key")
	}
}

func TestExternalizeSliceUsesHashKeysPlural(t *testing.T) {
	c1, _ := New("Child", map[string]any{"v": int64(1)})
	c2, _ := New("Child", map[string]any{"v": int64(2)})
	parent, err := New("Parent", map[string]any{
		"children": []any{Externalize(c1), Externalize(c2)},
	})
	if err != nil {
		t.Fatalf("New parent: %v", err)
	}
	ser := parent.Serialize()
	hashes, ok := ser["children__hash_keys"].([]string)
	if !ok {
		t.Fatalf("expected children__hash_keys field of type []string, got %T", ser["children__hash_keys"])
	}
	if len(hashes) != 2 || hashes[0] != c1.HashKey(false) || hashes[1] != c2.HashKey(false) {
		t.Fatalf("unexpected externalized hash list: %v", hashes)
	}
}

func TestFrozenSetCanonicalOrderIndependentOfInsertion(t *testing.T) {
	a, _ := New("Thing", map[string]any{"s": FrozenSet("b", "a", "c")})
	b, _ := New("Thing", map[string]any{"s": FrozenSet("c", "b", "a")})
	if a.HashKey(false) != b.HashKey(false) {
		t.Fatalf("expected FrozenSet to canonicalize order regardless of insertion order")
	}
}
