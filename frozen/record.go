// Package frozen implements content-addressed, immutable labeled records:
// hashable, JSON-serializable values with a class tag, modeled after the
// original Python implementation's Node/Frozen base.
package frozen

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Value is the type of a field value stored inside a Record. Conventionally
// one of: nil, bool, int64, float64 (finite), string, []byte, UUID, Decimal,
// time.Time, time.Duration, Path, Enum, *Record, ExternalRef, or []Value.
type Value = any

// ExternalRef marks a field value as a reference to another frozen Record
// whose hash key should be externalized (replacing the field's full value
// with its hash) during Serialize, rather than nesting it inline. This lets
// a package that wraps *Record (such as a message package) opt a sub-value
// into hash-key externalization without frozen importing that package.
type ExternalRef struct {
	rec *Record
}

// Externalize wraps r so that any Record field set to this value serializes
// as a `<field>__hash_key` reference instead of an inline nested record.
func Externalize(r *Record) ExternalRef {
	return ExternalRef{rec: r}
}

// Record is an immutable, content-addressed labeled record. Once created by
// New, a Record's fields never change; its hash keys are computed lazily and
// cached.
type Record struct {
	class  string
	fields map[string]Value

	mu          sync.Mutex
	hashedShort bool
	hashShort   string
	hashedLong  bool
	hashLong    string
}

// Class returns the record's class tag (the original's `class_`).
func (r *Record) Class() string {
	return r.class
}

// Fields returns the record's field names in sorted order.
func (r *Record) Fields() []string {
	names := make([]string, 0, len(r.fields))
	for k := range r.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Get returns the value stored under field, and whether it was present.
func (r *Record) Get(field string) (Value, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// Equal reports whether two records are structurally identical. It compares
// full (long) hash keys rather than walking fields directly, which keeps this
// consistent with the invariant that structural equality implies equal hash
// keys by construction rather than by a second, independently maintained
// comparison.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.HashKey(true) == other.HashKey(true)
}

// New builds an immutable Record from a class tag and a set of fields. Field
// values are recursively converted: nested map[string]any become nested
// Records (tagged with class "Record"), slices/arrays become tuples ([]Value),
// and any value produced by FrozenSet is canonicalized into a sorted tuple.
// Unrecognized value types, NaN/Inf floats, and raw Go maps used as sets are
// rejected.
func New(class string, fields map[string]any) (*Record, error) {
	converted := make(map[string]Value, len(fields))
	for k, v := range fields {
		cv, err := convertValue(k, v)
		if err != nil {
			return nil, err
		}
		converted[k] = cv
	}
	return &Record{class: class, fields: converted}, nil
}

// convertValue recursively normalizes a raw Go value into the canonical
// Value shapes a Record is allowed to hold.
func convertValue(field string, v any) (Value, error) {
	switch tv := v.(type) {
	case nil, bool, string, []byte, UUID, Decimal, Path, Enum, ExternalRef, time.Time, time.Duration:
		return tv, nil
	case *Record:
		return tv, nil

	case int:
		return int64(tv), nil
	case int32:
		return int64(tv), nil
	case int64:
		return tv, nil
	case float32:
		return checkFloat(field, float64(tv))
	case float64:
		return checkFloat(field, tv)

	case map[string]any:
		nested, err := New("Record", tv)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		return nested, nil

	case setMarker:
		items := make([]Value, 0, len(tv))
		for i, item := range tv {
			ci, err := convertValue(fmt.Sprintf("%s[%d]", field, i), item)
			if err != nil {
				return nil, err
			}
			items = append(items, ci)
		}
		sort.Slice(items, func(i, j int) bool {
			return fmt.Sprint(items[i]) < fmt.Sprint(items[j])
		})
		return items, nil

	case []any:
		items := make([]Value, 0, len(tv))
		for i, item := range tv {
			ci, err := convertValue(fmt.Sprintf("%s[%d]", field, i), item)
			if err != nil {
				return nil, err
			}
			items = append(items, ci)
		}
		return items, nil

	default:
		return nil, fmt.Errorf("field %q: value of type %T is not an allowed frozen value (raw maps are rejected; use frozen.FrozenSet for unordered collections)", field, v)
	}
}

func checkFloat(field string, f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("field %q: NaN/Inf is not an allowed frozen value", field)
	}
	return f, nil
}
