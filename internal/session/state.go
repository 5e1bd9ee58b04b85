package session

import (
	"time"

	"github.com/outpost-cli/outpost/internal/errdefs"
)

// --- Lifecycle state machine ---
//
// active --close--> closed --archive--> archived
//
// No transition skips a state or moves backward. An archived session is
// immutable. Reopening a closed session would be a distinct, named
// operation; it is not an implicit side effect of anything here.

// CanAccept reports whether the session may take new outputs. Only active
// sessions accept registrations.
func CanAccept(s *Session) error {
	if s.Status != StatusActive {
		return errdefs.InvalidTransition(s.Key, string(s.Status), "register-output")
	}
	return nil
}

// CanPromote reports whether outputs of the session may still be
// promoted. Closing a session bars new outputs but not promotion of the
// existing ones; archiving makes the record immutable, so promotion is
// rejected there.
func CanPromote(s *Session) error {
	if s.Status == StatusArchived {
		return errdefs.InvalidTransition(s.Key, string(s.Status), "promote-output")
	}
	return nil
}

// Close transitions active -> closed, stamping the closed timestamp.
func Close(s *Session) error {
	if s.Status != StatusActive {
		return errdefs.InvalidTransition(s.Key, string(s.Status), string(StatusClosed))
	}
	now := timeNow().UTC().Format(time.RFC3339)
	s.Status = StatusClosed
	s.ClosedAt = now
	s.UpdatedAt = now
	return nil
}

// Archive transitions closed -> archived. Archiving straight from active
// is rejected; close first.
func Archive(s *Session) error {
	if s.Status != StatusClosed {
		return errdefs.InvalidTransition(s.Key, string(s.Status), string(StatusArchived))
	}
	now := timeNow().UTC().Format(time.RFC3339)
	s.Status = StatusArchived
	s.ArchivedAt = now
	s.UpdatedAt = now
	return nil
}
