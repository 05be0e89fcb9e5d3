package notes

import "errors"

var (
	// ErrSessionNotFound is returned when the note session id does not exist.
	ErrSessionNotFound = errors.New("note session not found")
	// ErrSessionNotActive is returned when contributing to an inactive session.
	ErrSessionNotActive = errors.New("note session is not active")
	// ErrNotCreator is returned when a non-creator attempts a creator-only action.
	ErrNotCreator = errors.New("only the session creator may do this")
)
