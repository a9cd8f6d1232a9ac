// Package locality derives a coarse geographic token from free-text addresses.
//
// The token is a heuristic, not a geocoding result: it feeds the contact
// cache key and search queries, where a noisy value only costs an extra
// lookup, never correctness.
package locality

import "strings"

// FromAddress extracts a locality token from a listing address: the first
// token of the last comma-delimited segment ("12 Elm St, Austin, TX 78701"
// → "TX"). Returns "" when the address contains no comma.
func FromAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if !strings.Contains(addr, ",") {
		return ""
	}

	segs := strings.Split(addr, ",")
	last := strings.TrimSpace(segs[len(segs)-1])
	if last == "" && len(segs) > 1 {
		// Trailing comma; fall back to the previous segment.
		last = strings.TrimSpace(segs[len(segs)-2])
	}

	fields := strings.Fields(last)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
