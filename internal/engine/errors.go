package engine

import "errors"

// Caller-facing errors. All other failures are recorded on the session state.
var (
	// ErrUnknownSession is returned when no checkpoint exists for a session id.
	ErrUnknownSession = errors.New("unknown session")

	// ErrInvalidResume is returned when resuming a session that is not suspended.
	ErrInvalidResume = errors.New("invalid resume")

	// ErrStaleResume is returned when the caller's expected step does not
	// match the checkpoint, meaning another resume already moved the session.
	ErrStaleResume = errors.New("stale resume")

	// ErrSessionBusy is returned when another call for the same session is in flight.
	ErrSessionBusy = errors.New("session busy")

	// ErrSessionExists is returned by Start for a session id that already has a checkpoint.
	ErrSessionExists = errors.New("session already exists")

	// ErrInvalidRequest is returned for malformed start or resume requests.
	ErrInvalidRequest = errors.New("invalid request")
)
