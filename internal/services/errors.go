package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigUnreadable marks a patch-match configuration that could not be
	// opened. It is the only fatal class: rebuilds abort instead of degrading.
	ErrConfigUnreadable  = errors.New("config unreadable")
	ErrInvalidWorkspace  = errors.New("invalid workspace")
	ErrPreconditionUnmet = errors.New("precondition unmet")
	ErrStageBusy         = errors.New("stage already running")
	ErrExternalTool      = errors.New("external tool error")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
)

// ErrorDetails exposes the user-facing parts of a wrapped error.
type ErrorDetails struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

type serviceError struct {
	details ErrorDetails
}

func (e *serviceError) Error() string {
	detail := buildDetail(e.details.Stage, e.details.Operation, e.details.Message)
	if e.details.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.details.Marker, detail, e.details.Cause)
	}
	return fmt.Sprintf("%v: %s", e.details.Marker, detail)
}

func (e *serviceError) Unwrap() []error {
	if e.details.Cause == nil {
		return []error{e.details.Marker}
	}
	return []error{e.details.Marker, e.details.Cause}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrExternalTool
	}
	return &serviceError{details: ErrorDetails{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}}
}

// Details returns the structured parts of an error produced by Wrap. Errors not
// produced by Wrap yield a zero value with only Cause populated.
func Details(err error) ErrorDetails {
	var svcErr *serviceError
	if errors.As(err, &svcErr) {
		return svcErr.details
	}
	return ErrorDetails{Cause: err}
}

// IsFatal reports whether err belongs to the non-recoverable class.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfigUnreadable)
}

// UserMessage renders the short message shown to an operator.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	details := Details(err)
	if msg := strings.TrimSpace(details.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(err.Error())
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
