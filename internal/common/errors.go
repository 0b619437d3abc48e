// Package common holds sentinel errors shared by the storage implementations
// and the services that consume them.
package common

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic write lost a race with a
	// concurrent writer. The whole read-modify-write may be retried.
	ErrConflict = errors.New("concurrent modification conflict")
)
