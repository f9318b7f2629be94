// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Standard sentinel errors
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventSuperseded    = errors.New("event already superseded")
	ErrEditReasonRequired = errors.New("edit reason is required")
	ErrCycleNotFound      = errors.New("cycle not found")
	ErrCycleAlreadyOpen   = errors.New("cycle already open for symbol")
	ErrLotNotFound        = errors.New("share lot not found")
	ErrNoOpenLeg          = errors.New("no matching open leg")
	ErrSymbolNotFound     = errors.New("symbol not found")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrDataNotFound       = errors.New("data not found")
	ErrDatabaseError      = errors.New("database error")
	ErrImportInvalid      = errors.New("import record invalid")
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// RollError represents a rejected roll. Rejections happen before any
// journal write, so a RollError always means zero entries were booked.
type RollError struct {
	Symbol        string
	OldExpiration time.Time
	NewExpiration time.Time
	Reason        string
}

func (e *RollError) Error() string {
	return fmt.Sprintf("roll rejected [%s]: %s (old expiry: %s, new expiry: %s)",
		e.Symbol, e.Reason,
		e.OldExpiration.Format("2006-01-02"), e.NewExpiration.Format("2006-01-02"))
}

// NewRollError creates a new RollError.
func NewRollError(symbol string, oldExp, newExp time.Time, reason string) *RollError {
	return &RollError{
		Symbol:        symbol,
		OldExpiration: oldExp,
		NewExpiration: newExp,
		Reason:        reason,
	}
}

// EventError represents an error applying a journal entry.
type EventError struct {
	EventID string
	Symbol  string
	Type    string
	Reason  string
	Err     error
}

func (e *EventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event error [%s] %s %s: %s: %v", e.EventID, e.Type, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("event error [%s] %s %s: %s", e.EventID, e.Type, e.Symbol, e.Reason)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

// NewEventError creates a new EventError.
func NewEventError(eventID, symbol, eventType, reason string, err error) *EventError {
	return &EventError{
		EventID: eventID,
		Symbol:  symbol,
		Type:    eventType,
		Reason:  reason,
		Err:     err,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// ImportError represents a rejected import row.
type ImportError struct {
	Row     int
	Field   string
	Message string
	Err     error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import error row %d [%s]: %s: %v", e.Row, e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("import error row %d [%s]: %s", e.Row, e.Field, e.Message)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// NewImportError creates a new ImportError.
func NewImportError(row int, field, message string, err error) *ImportError {
	return &ImportError{
		Row:     row,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
