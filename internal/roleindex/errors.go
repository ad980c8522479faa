package roleindex

import (
	"errors"
)

var (
	// ErrNotFound is returned by lookups that miss. A miss is a valid result
	// variant, not a failure; callers branch on it with errors.Is.
	ErrNotFound = errors.New("role assignment not found")

	// ErrInvalidUserID is returned when an operation names a user below the
	// platform's minimum valid identifier.
	ErrInvalidUserID = errors.New("user id must be at least 1")

	// ErrRoleEmpty is returned when an operation names an empty role label.
	ErrRoleEmpty = errors.New("role cannot be empty")

	// ErrEmptyFilter is returned when a bulk delete is attempted without any
	// filter field set. Wiping the whole index requires DropSchema, not an
	// accidental wildcard delete.
	ErrEmptyFilter = errors.New("filter must set at least one field")

	// ErrDBNil is returned when the store is constructed without a database.
	ErrDBNil = errors.New("database connection is nil")
)
