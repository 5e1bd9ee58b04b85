// Package errdefs provides the structured error taxonomy for outpost.
//
// Every failure mode that callers need to distinguish (for exit codes, for
// retry decisions, for user-facing messages) has a sentinel here. Domain
// packages wrap these sentinels with context via fmt.Errorf and %w; callers
// test with errors.Is.
package errdefs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes callers must distinguish.
var (
	// ErrSchemaViolation indicates a record missing required fields or
	// otherwise malformed. Such a record is never persisted.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrInvalidTransition indicates an illegal lifecycle move
	// (e.g. archiving an active session).
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrConflictingRegistration indicates a duplicate output path
	// registered with different agent or category.
	ErrConflictingRegistration = errors.New("conflicting registration")

	// ErrKeyGenerationExhausted indicates the bounded collision-retry
	// loop ran out of attempts.
	ErrKeyGenerationExhausted = errors.New("session key generation exhausted")

	// ErrNotFound indicates an unknown session, output, or sink.
	ErrNotFound = errors.New("not found")

	// ErrBackupRequired indicates a migration execute was attempted
	// without a verified backup of the legacy root.
	ErrBackupRequired = errors.New("backup required before migration")

	// ErrPromotionExists indicates a prior promotion exists for the same
	// (session, path, sink) tuple and the caller did not pass force.
	ErrPromotionExists = errors.New("promotion already exists")
)

// SchemaViolation wraps ErrSchemaViolation with the offending field.
func SchemaViolation(field string) error {
	return fmt.Errorf("%w: missing or invalid field %q", ErrSchemaViolation, field)
}

// InvalidTransition wraps ErrInvalidTransition with the attempted move.
func InvalidTransition(key, from, to string) error {
	return fmt.Errorf("%w: session %q cannot move %s -> %s", ErrInvalidTransition, key, from, to)
}

// NotFound wraps ErrNotFound with the kind and identifier of the missing thing.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// ExitCode maps an error to the CLI exit code contract:
// 0 success, 1 validation/precondition failure, 2 not found,
// 3 conflicting/duplicate state.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return 2
	case errors.Is(err, ErrConflictingRegistration),
		errors.Is(err, ErrPromotionExists),
		errors.Is(err, ErrKeyGenerationExhausted):
		return 3
	default:
		return 1
	}
}
