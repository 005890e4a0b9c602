package store

import "errors"

// ErrConflictTriggered is returned by SetJob when a client attempts to SET
// a job that is currently Triggered (invariant 2: a Triggered job is owned
// by exactly one in-flight execution).
var ErrConflictTriggered = errors.New("conflict_triggered")

// ErrNotFound is returned by UnsetJob/UnsetRule when no such identifier
// exists.
var ErrNotFound = errors.New("not_found")
