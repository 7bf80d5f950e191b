package grading

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports an unknown assignment or submission identifier.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InvalidStateError reports an operation attempted outside its required status.
type InvalidStateError struct {
	Entity   string
	Current  string
	Required []string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s is %s; this action requires %s", e.Entity, readable(e.Current), joinReadable(e.Required))
}

// ValidationError reports a missing or out-of-range score or feedback value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PreconditionError reports a publish attempt while submissions remain ungraded.
type PreconditionError struct {
	Message       string
	SubmissionIDs []uint
}

func (e *PreconditionError) Error() string {
	if len(e.SubmissionIDs) == 0 {
		return e.Message
	}
	ids := make([]string, 0, len(e.SubmissionIDs))
	for _, id := range e.SubmissionIDs {
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	return fmt.Sprintf("%s (submissions: %s)", e.Message, strings.Join(ids, ", "))
}

// ConflictError reports a write that lost a race with a concurrent update.
type ConflictError struct {
	Entity string
	ID     uint
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified by another request, reload and try again", e.Entity, e.ID)
}

func readable(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}

func joinReadable(statuses []string) string {
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, readable(status))
	}
	switch len(parts) {
	case 0:
		return "a different status"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " or " + parts[len(parts)-1]
	}
}

// IsUserError reports whether err is one of the workflow error kinds whose message is safe
// to show to the caller as-is.
func IsUserError(err error) bool {
	var (
		notFound     *NotFoundError
		state        *InvalidStateError
		validation   *ValidationError
		precondition *PreconditionError
		conflict     *ConflictError
	)
	return errors.As(err, &notFound) ||
		errors.As(err, &state) ||
		errors.As(err, &validation) ||
		errors.As(err, &precondition) ||
		errors.As(err, &conflict)
}
