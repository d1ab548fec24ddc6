package session

import "errors"

var (
	// ErrSessionNotFound means the session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed means the session was already finalized.
	ErrSessionClosed = errors.New("session closed")
	// ErrLearnerNotFound means a session was started for an unknown learner.
	ErrLearnerNotFound = errors.New("learner not found")
	// ErrInvalidEvent means an appended event failed basic checks.
	ErrInvalidEvent = errors.New("invalid event")
)
