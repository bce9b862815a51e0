package application

import (
	"errors"
	"strings"
)

// Sentinel errors returned by application services.
var (
	// ErrNotFinalStep indicates Submit was called before the last wizard step.
	ErrNotFinalStep = errors.New("submit is only allowed from the final step")

	// ErrSubmitInFlight indicates a wizard submission is still running.
	ErrSubmitInFlight = errors.New("a submission is already in progress")

	// ErrWizardClosed indicates the wizard was already submitted or discarded.
	ErrWizardClosed = errors.New("wizard is closed")

	// ErrWizardNotFound indicates no live wizard has the requested session ID.
	ErrWizardNotFound = errors.New("wizard not found")

	// ErrFolderCreationUnavailable indicates no folder creator is configured.
	ErrFolderCreationUnavailable = errors.New("folder creation is not configured")
)

// ValidationError lists required fields that are missing or invalid. It is
// detected before any backend call is attempted.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
