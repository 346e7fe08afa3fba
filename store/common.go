package store

import "github.com/pkg/errors"

// ErrConflict is returned by drivers when a unique constraint would be violated.
var ErrConflict = errors.New("store: unique constraint violated")

// Pagination limits a List call. Nil fields mean no limit / no offset.
type Pagination struct {
	Limit  *int
	Offset *int
}
