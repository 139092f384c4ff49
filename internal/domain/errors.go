package domain

import "errors"

var (
	// ErrInvalidInput indicates malformed scoring or session input. This is a
	// programming error and must not be silently defaulted.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyAttempted is returned when the daily question is re-attempted
	// on the same calendar day.
	ErrAlreadyAttempted = errors.New("daily question already attempted today")
	// ErrUserNotFound is returned when a profile or rank lookup misses.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned when a quiz session has not been started.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionActive is returned when a user already has a quiz in flight.
	ErrSessionActive = errors.New("quiz session already active")
	// ErrNoQuestions indicates the provider returned no usable questions.
	ErrNoQuestions = errors.New("no questions available")
	// ErrRemoteUnavailable wraps network or store failures on external calls.
	ErrRemoteUnavailable = errors.New("remote service unavailable")
)
