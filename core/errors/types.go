// Package errors implements the typed error taxonomy shared by the Folio
// core: not-found, conflict, locked, and validation failures, plus the
// retry policy used by the version-number critical section.
package errors

import (
	"errors"
	"fmt"

	"github.com/foliocms/folio/core/cms"
)

// NotFoundError indicates a missing collection, content, or version.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFound creates a NotFoundError for the given resource and id.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// ConflictError indicates a duplicate branch name or a version-number
// race that could not be resolved within the retry budget.
type ConflictError struct {
	Resource string
	Detail   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Detail)
}

// NewConflict creates a ConflictError.
func NewConflict(resource, detail string) *ConflictError {
	return &ConflictError{Resource: resource, Detail: detail}
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// LockedError indicates a modification blocked by an effective lock.
// Source names the hierarchy level the lock was resolved from.
type LockedError struct {
	Source   cms.LockSource
	LockedBy string
	Reason   string
}

func (e *LockedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("entity locked by %s at %s level: %s", e.LockedBy, e.Source, e.Reason)
	}
	return fmt.Sprintf("entity locked by %s at %s level", e.LockedBy, e.Source)
}

// NewLocked creates a LockedError from resolved lock info.
func NewLocked(info *cms.LockInfo) *LockedError {
	return &LockedError{
		Source:   info.Source,
		LockedBy: info.LockedBy,
		Reason:   info.Reason,
	}
}

// IsLocked reports whether err is a LockedError.
func IsLocked(err error) bool {
	var target *LockedError
	return errors.As(err, &target)
}

// ValidationError indicates a malformed input, such as a restore target
// below 1 or an empty branch name.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// NewValidation creates a ValidationError.
func NewValidation(field, detail string) *ValidationError {
	return &ValidationError{Field: field, Detail: detail}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
