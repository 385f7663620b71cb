package frozen

import "github.com/google/uuid"

// UUID is the canonical uuid scalar. It is a direct alias of google/uuid's
// value type so callers can pass a uuid.UUID straight into a record's fields.
type UUID = uuid.UUID

// Path is the canonical filesystem-path scalar. It exists as its own type
// (rather than a bare string) so that New can tell a path field apart from a
// free-form text field when deciding how a value should round-trip.
type Path string

// Enum is the canonical enum-value scalar: a named value from some external
// enumeration, carried as its string representation.
type Enum string

// Decimal is the canonical arbitrary-precision decimal scalar. No decimal
// library is used anywhere in the retrieval pack this module was grounded on,
// so this is a minimal string-backed value: exact decimal text in, exact
// decimal text out, with no arithmetic performed on it.
type Decimal struct {
	text string
}

// NewDecimal wraps a decimal literal (e.g. "19.99", "-0.001") as a Decimal scalar.
func NewDecimal(text string) Decimal {
	return Decimal{text: text}
}

// String returns the exact decimal text this value was constructed from.
func (d Decimal) String() string {
	return d.text
}

// FrozenSet converts an unordered collection of values into the tuple-shaped
// representation frozen records use for it. Frozen records reject Go's
// unordered-by-construction set-like inputs (e.g. map[K]struct{}) outright;
// callers who genuinely have a set must go through FrozenSet, which imposes a
// canonical (sorted by each item's fmt.Sprint text) order so that the
// resulting tuple hashes the same regardless of insertion order.
func FrozenSet(values ...any) setMarker {
	// Values are sorted by their fmt.Sprint text once they reach New, not
	// here; FrozenSet only marks the caller's intent to treat this slice as an
	// unordered set. Sorting happens in convertValue so that the scalar
	// conversion rules (which FrozenSet does not have access to) are applied
	// first. The named setMarker return type (rather than []any) must survive
	// to convertValue's type switch, or the canonicalizing branch is dead code.
	out := make(setMarker, len(values))
	copy(out, values)
	return out
}

// setMarker tags a slice as having come from FrozenSet so convertValue can
// canonicalize its order. It is a distinct, exported-via-FrozenSet type
// rather than reusing []any so that a plain slice (which preserves caller
// order) is never mistaken for one.
type setMarker []any
