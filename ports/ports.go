// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import "time"

// Clock abstracts time for testability. Deferred field defaults and
// record timestamps are resolved through it at write time.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates surrogate record identifiers.
type IDGenerator interface {
	New() string
}
