// Package errors provides custom error types for quote tracking failures.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors
var (
	ErrConfigInvalid  = errors.New("invalid configuration")
	ErrNoSymbols      = errors.New("no symbols configured")
	ErrInvalidSymbol  = errors.New("invalid symbol")
	ErrUnknownMode    = errors.New("unknown dispatch mode")
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrNoPrice        = errors.New("price not found in quote page")
	ErrCycleInFlight  = errors.New("previous cycle still running")
	ErrStoreClosed    = errors.New("store is closed")
	ErrBodyTooLarge   = errors.New("response body exceeds size limit")
)

// FetchKind identifies which step of a quote page fetch failed.
type FetchKind string

const (
	FetchKindURL       FetchKind = "PARSE_URL_FAILED"
	FetchKindTransport FetchKind = "REQUEST_FAILED"
	FetchKindStatus    FetchKind = "RESPONSE_FAILED"
	FetchKindBody      FetchKind = "RESPONSE_BODY_FAILED"
)

// FetchError represents a failure retrieving a quote page.
type FetchError struct {
	Kind       FetchKind
	Symbol     string
	StatusCode int // set only for FetchKindStatus
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchKindStatus {
		return fmt.Sprintf("fetch error [%s] %s: %d %s", e.Kind, e.Symbol, e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch error [%s] %s: %v", e.Kind, e.Symbol, e.Err)
	}
	return fmt.Sprintf("fetch error [%s] %s", e.Kind, e.Symbol)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(kind FetchKind, symbol string, err error) *FetchError {
	return &FetchError{
		Kind:   kind,
		Symbol: symbol,
		Err:    err,
	}
}

// NewStatusError creates a FetchError for a non-success HTTP response.
func NewStatusError(symbol string, statusCode int) *FetchError {
	return &FetchError{
		Kind:       FetchKindStatus,
		Symbol:     symbol,
		StatusCode: statusCode,
	}
}

// ExtractError represents an invalid selector in the quote extractor.
type ExtractError struct {
	Selector string
	Err      error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract error [%s] %q: %v", e.Code(), e.Selector, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Code returns the stable error code for the failure.
func (e *ExtractError) Code() string {
	return "SELECTOR_FAILED"
}

// NewExtractError creates a new ExtractError.
func NewExtractError(selector string, err error) *ExtractError {
	return &ExtractError{
		Selector: selector,
		Err:      err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets callers match any validation failure against ErrConfigInvalid.
func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// CycleError wraps a failed fetch/extract/commit cycle for one symbol in one tick.
type CycleError struct {
	Symbol string
	Stage  string
	Err    error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle error [%s] %s: %v", e.Stage, e.Symbol, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// NewCycleError creates a new CycleError.
func NewCycleError(symbol, stage string, err error) *CycleError {
	return &CycleError{
		Symbol: symbol,
		Stage:  stage,
		Err:    err,
	}
}

// IsRetryable reports whether a fetch failure is worth retrying within the same tick.
// Transport failures and 5xx responses are; everything else is not.
func IsRetryable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Kind {
	case FetchKindTransport:
		return true
	case FetchKindStatus:
		return fe.StatusCode >= 500
	default:
		return false
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
