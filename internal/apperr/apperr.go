// Package apperr holds sentinel errors shared across the engine and the
// API layer, so callers can branch with errors.Is instead of matching
// message strings.
package apperr

import "errors"

var (
	// ErrUnknownTriggerType is returned when a rule names a trigger type
	// no registered handler claims.
	ErrUnknownTriggerType = errors.New("unknown trigger type")

	// ErrUnknownActionType is returned when a rule step names an action
	// type no registered handler claims.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrInvalidRule is returned when a rule fails static validation.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrInvalidColumn is returned when an operation targets a column the
	// board does not have.
	ErrInvalidColumn = errors.New("column does not exist on board")
)
