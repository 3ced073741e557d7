package model

import "errors"

// Error taxonomy shared by the calendar, query and resolver layers.
// Callers match with errors.Is; every layer wraps with context.
var (
	ErrInvalidDateFormat    = errors.New("invalid date format, want YYYY-MM-DD")
	ErrInvalidArgumentCount = errors.New("invalid argument count")
	ErrDivisionByZero       = errors.New("division by zero")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrEmptyResult          = errors.New("empty result")
	ErrInsufficientData     = errors.New("insufficient data")
	ErrNotFound             = errors.New("date outside loaded calendar window")

	// ErrInvalidIdentifier rejects column/table names that are not plain identifiers.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrInvalidCondition rejects predicates not of the form "column op value".
	ErrInvalidCondition = errors.New("invalid condition")
)
