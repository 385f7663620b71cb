package frozen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// HashKey returns the record's content hash: a truncated (by default) or full
// (when long is true) lowercase-hex SHA-256 digest of its canonical JSON
// serialization. The result is memoized per record per truncation mode.
func (r *Record) HashKey(long bool) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if long && r.hashedLong {
		return r.hashLong
	}
	if !long && r.hashedShort {
		return r.hashShort
	}

	canonical, err := json.Marshal(r.Serialize())
	if err != nil {
		// Serialize only ever produces JSON-marshalable values; a failure here
		// means convertValue let something invalid through.
		panic(fmt.Sprintf("frozen: record of class %q failed to serialize: %v", r.class, err))
	}
	sum := sha256.Sum256(canonical)
	full := hex.EncodeToString(sum[:])

	r.hashLong = full
	r.hashedLong = true
	r.hashShort = full[:40]
	r.hashedShort = true

	if long {
		return r.hashLong
	}
	return r.hashShort
}

// Serialize renders the record as a plain JSON-marshalable map, with
// class_ set to the record's class tag and every field present under its own
// name. A field whose value is an ExternalRef is replaced by a
// "<field>__hash_key" entry holding the referenced record's hash key instead
// of the record inline; a []Value field whose entries are all ExternalRef is
// replaced by a "<field>__hash_keys" entry holding the list of hash keys.
// encoding/json sorts map keys alphabetically on Marshal, which is what makes
// the resulting JSON canonical.
func (r *Record) Serialize() map[string]any {
	out := make(map[string]any, len(r.fields)+1)
	out["class_"] = r.class

	for field, v := range r.fields {
		key, sv := serializeField(field, v)
		out[key] = sv
	}
	return out
}

// serializeField converts a single field's stored Value into its serialized
// JSON form and the key it should be stored under (which changes for
// externalized references).
func serializeField(field string, v Value) (string, any) {
	switch tv := v.(type) {
	case ExternalRef:
		return field + "__hash_key", tv.rec.HashKey(false)

	case []Value:
		if allExternalRefs(tv) {
			hashes := make([]string, len(tv))
			for i, item := range tv {
				hashes[i] = item.(ExternalRef).rec.HashKey(false)
			}
			return field + "__hash_keys", hashes
		}
		items := make([]any, len(tv))
		for i, item := range tv {
			_, items[i] = serializeField(fmt.Sprintf("%s[%d]", field, i), item)
		}
		return field, items

	case *Record:
		return field, tv.Serialize()

	case time.Time:
		return field, tv.Format(time.RFC3339Nano)

	case time.Duration:
		return field, tv.String()

	case Path:
		return field, string(tv)

	case Enum:
		return field, string(tv)

	case Decimal:
		return field, tv.String()

	case []byte:
		return field, tv // encoding/json base64-encodes []byte natively

	default:
		return field, tv
	}
}

func allExternalRefs(values []Value) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if _, ok := v.(ExternalRef); !ok {
			return false
		}
	}
	return true
}
