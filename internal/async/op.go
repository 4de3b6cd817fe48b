// Package async provides the handle for the eventual result of a command
// queued for the core thread.
//
// An Op is a value type; copies share the same resolution state. The
// executing goroutine resolves it exactly once, any goroutine may poll it.
// Nothing in this package blocks: callers that need to wait use the core
// thread's blocking submission instead.
package async

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotResolved is returned when a result is read before the op resolved.
	ErrNotResolved = errors.New("async: operation not resolved")

	// ErrTypeMismatch is returned when the resolved value has an unexpected type.
	ErrTypeMismatch = errors.New("async: return value type mismatch")
)

type state struct {
	mu       sync.Mutex
	resolved bool
	value    any
}

// Op is a shared handle to a single pending result.
//
// The zero Op behaves like Empty(): resolved, carrying no value.
type Op struct {
	s *state
}

// empty is the shared pre-resolved state behind Empty().
var empty = &state{resolved: true}

// New returns an unresolved op.
func New() Op {
	return Op{s: &state{}}
}

// Empty returns the pre-resolved op used by fire-and-forget commands so
// call sites never need to special-case a missing op.
func Empty() Op {
	return Op{s: empty}
}

// IsResolved reports whether a result has been produced.
// Safe to call from any goroutine.
func (o Op) IsResolved() bool {
	if o.s == nil {
		return true
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return o.s.resolved
}

// MarkResolved stores v and flips the op to resolved as one observable
// transition. Only the first call has an effect; it returns false for every
// later call, leaving the first value in place. Resolving the empty op is a
// no-op.
func (o Op) MarkResolved(v any) bool {
	if o.s == nil || o.s == empty {
		return false
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if o.s.resolved {
		return false
	}
	o.s.value = v
	o.s.resolved = true
	return true
}

// ReturnValue returns the resolved value.
// Returns ErrNotResolved if the op has not been resolved yet.
func (o Op) ReturnValue() (any, error) {
	if o.s == nil {
		return nil, nil
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if !o.s.resolved {
		return nil, ErrNotResolved
	}
	return o.s.value, nil
}

// IsEmpty reports whether the op is resolved with no value. True for the
// empty op and for ops the executor force-resolved.
func (o Op) IsEmpty() bool {
	v, err := o.ReturnValue()
	return err == nil && v == nil
}

// Same reports whether two handles share the same state.
func (o Op) Same(other Op) bool {
	return o.s == other.s
}

// Get returns the resolved value of op as a T.
// A resolved nil value yields the zero T. A value of another dynamic type
// yields ErrTypeMismatch.
func Get[T any](op Op) (T, error) {
	var zero T
	v, err := op.ReturnValue()
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: have %T, want %T", ErrTypeMismatch, v, zero)
	}
	return typed, nil
}
