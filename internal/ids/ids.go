package ids

import "github.com/oklog/ulid/v2"

// New returns a lexicographically sortable identifier used for directory
// records and audit entries. Identifiers for API key records come from
// github.com/google/uuid instead, matching their storage schema.
func New() string {
	return ulid.Make().String()
}
