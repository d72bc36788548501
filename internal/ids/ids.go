// Package ids generates task and board identifiers.
package ids

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a 26-character, lexicographically sortable ULID.
// Identifiers generated within the same millisecond are strictly increasing.
func New() string {
	return ulid.Make().String()
}

// timeOf extracts the creation time encoded in id.
func timeOf(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
