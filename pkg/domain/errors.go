package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidLocation is returned when an application is declared without a location.
	ErrInvalidLocation = errors.New("application location must be a non-empty string")

	// ErrInvalidPredicate is returned when an application is declared without an activation predicate.
	ErrInvalidPredicate = errors.New("activation predicate must be a function")

	// ErrDuplicateLocation is returned when a location is declared twice.
	ErrDuplicateLocation = errors.New("application already declared")

	// ErrApplicationNotFound is returned when no application is declared at a location.
	ErrApplicationNotFound = errors.New("no such application")

	// ErrApplicationNotLoaded is returned when an operation needs hook sets that were never fetched.
	ErrApplicationNotLoaded = errors.New("application has not been loaded")

	// ErrInvalidManifest is returned when a module does not export the required manifest fields.
	ErrInvalidManifest = errors.New("invalid application manifest")

	// ErrMissingHook is returned when a hook set does not implement a required lifecycle hook.
	ErrMissingHook = errors.New("missing required lifecycle hook")

	// ErrSnapshotNotFound is returned when a session has no persisted snapshot.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// ConflictError is returned when more than one application claims the same URL.
type ConflictError struct {
	URL       string
	Locations []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("the following applications all claim to own the location %s -- %s",
		e.URL, strings.Join(e.Locations, ", "))
}

// Phase names the step of a transition that was running when it failed.
type Phase string

const (
	PhaseUnmount Phase = "unmount"
	PhaseLoad    Phase = "load"
	PhaseMount   Phase = "mount"
	PhaseUpdate  Phase = "update"
)

// TransitionError wraps a failure raised while moving between applications.
type TransitionError struct {
	Phase    Phase
	Location string
	Err      error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s of application %q failed: %v", e.Phase, e.Location, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
