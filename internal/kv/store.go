// Package kv wraps the three local persistence mediums behind one
// capability interface. Adapters never propagate medium faults: a failed
// read is an absent value, a failed write reports false, and corrupted
// entries are repaired in place so they cannot recur on every load.
package kv

import "encoding/json"

// Placeholder replaces a corrupted entry. It is valid JSON that decodes
// into any target as a no-op, so readers see a zero value and treat the
// entry as absent instead of tripping over the same bad bytes again.
const Placeholder = "null"

// Store is one persistence medium holding (key, valueJSON) entries.
//
//   - Get returns the raw JSON for key, or absent. Syntactically invalid
//     JSON is healed to Placeholder and reported absent.
//   - Set stores valueJSON and reports whether the write stuck. Quota and
//     disabled-medium failures return false, never an error.
//   - Remove is best-effort and idempotent.
type Store interface {
	Name() string
	Get(key string) (valueJSON string, ok bool)
	Set(key, valueJSON string) bool
	Remove(key string)
}

// usable reports whether raw is a readable entry. The placeholder itself
// reads as absent.
func usable(raw string) bool {
	return raw != Placeholder && json.Valid([]byte(raw))
}
