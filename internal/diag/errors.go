package diag

import (
	"errors"
	"fmt"
)

// UsageError reports a violation of the core-thread contract.
//
// Usage errors include:
//   - Wrong thread: a NoSync queue touched from a goroutine other than its creator
//   - Core thread reentry: blocking on the core thread from the core thread
//   - Not destroyed: a core object released without Destroy
//   - Core init from core: Initialize/Destroy of a core-initialized object
//     called on the core goroutine
type UsageError struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Details contains additional context (goroutine ids, object ids).
	Details map[string]string
}

// Code categorizes usage errors.
type Code string

const (
	// CodeWrongThread indicates a single-producer structure was used from another goroutine.
	CodeWrongThread Code = "WRONG_THREAD"

	// CodeCoreThreadReentry indicates the core goroutine tried to wait on itself.
	CodeCoreThreadReentry Code = "CORE_THREAD_REENTRY"

	// CodeNotDestroyed indicates an object was released before Destroy was called.
	CodeNotDestroyed Code = "NOT_DESTROYED"

	// CodeCoreInitFromCore indicates Initialize/Destroy ran on the core goroutine
	// for an object whose core half must be initialized by a queued command.
	CodeCoreInitFromCore Code = "CORE_INIT_FROM_CORE"

	// CodeAlreadyInitialized indicates Initialize was called twice.
	CodeAlreadyInitialized Code = "ALREADY_INITIALIZED"

	// CodeBreakpoint indicates a registered command breakpoint was reached.
	CodeBreakpoint Code = "BREAKPOINT"
)

// Error implements the error interface.
func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Fail panics with a UsageError. It never returns.
func Fail(code Code, message string, details map[string]string) {
	panic(&UsageError{Code: code, Message: message, Details: details})
}

// Failf panics with a UsageError built from a format string.
func Failf(code Code, format string, args ...any) {
	panic(&UsageError{Code: code, Message: fmt.Sprintf(format, args...)})
}

// IsUsageError returns true if err is (or wraps) a UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// IsCode returns true if err is a UsageError with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code Code) bool {
	var ue *UsageError
	if errors.As(err, &ue) {
		return ue.Code == code
	}
	return false
}

// Recover converts a recovered panic value into a *UsageError.
// Returns nil if v is not a usage error. Intended for harnesses and tests
// that need to observe the fatal path without crashing:
//
//	defer func() { err = diag.Recover(recover()) }()
func Recover(v any) *UsageError {
	if v == nil {
		return nil
	}
	if ue, ok := v.(*UsageError); ok {
		return ue
	}
	if err, ok := v.(error); ok {
		var ue *UsageError
		if errors.As(err, &ue) {
			return ue
		}
	}
	return nil
}
