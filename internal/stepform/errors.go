package stepform

import (
	"errors"
	"fmt"
)

var (
	// ErrTransitionInProgress is returned when a navigation or submit request
	// arrives while an earlier validation is still pending. The request is
	// rejected, not queued.
	ErrTransitionInProgress = errors.New("transition in progress")

	// ErrClosed is returned by every operation on a machine that has been
	// closed (the form instance was unmounted).
	ErrClosed = errors.New("form instance closed")
)

// UnknownStepError reports a step identity that is not registered.
type UnknownStepError struct {
	ID string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q", e.ID)
}

// DuplicateStepError reports two steps registered with the same identity.
type DuplicateStepError struct {
	ID string
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("duplicate step %q", e.ID)
}

// DuplicateFieldError reports a field owned by more than one step.
type DuplicateFieldError struct {
	Field string
	First string // Step that registered the field first
	Again string // Step that tried to register it again
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("field %q owned by both %q and %q", e.Field, e.First, e.Again)
}

// MissingDefaultError reports a field whose type tag has no default
// validator while no step validator covers it.
type MissingDefaultError struct {
	Field string
	Type  string
}

func (e *MissingDefaultError) Error() string {
	return fmt.Sprintf("no default validator for field %q of type %q", e.Field, e.Type)
}
