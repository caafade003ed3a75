package domain

import "errors"

var (
	// ErrInvalidState is returned when an operation is illegal for the
	// session's current lifecycle state.
	ErrInvalidState = errors.New("operation invalid for current session state")
	// ErrConflict is returned when an optimistic update loses a race or a
	// single-write field (e.g. an answer judgment) is written twice.
	ErrConflict = errors.New("conflicting concurrent update")
	// ErrResolutionUnavailable indicates the buzzer event query failed; callers
	// must not treat this as "no winner".
	ErrResolutionUnavailable = errors.New("buzzer resolution unavailable")
	// ErrNotFound indicates a referenced session, question, answer or seat is absent.
	ErrNotFound = errors.New("not found")
)
