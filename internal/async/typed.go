package async

// Typed is an Op whose result is statically known to be a T.
type Typed[T any] struct {
	op Op
}

// NewTyped returns an unresolved typed op.
func NewTyped[T any]() Typed[T] {
	return Typed[T]{op: New()}
}

// Wrap views an existing op as a Typed[T]. Reads fail with ErrTypeMismatch
// if the op resolves to a value of another type.
func Wrap[T any](op Op) Typed[T] {
	return Typed[T]{op: op}
}

// Complete resolves the op with v. Returns false if it was already resolved.
func (t Typed[T]) Complete(v T) bool {
	return t.op.MarkResolved(v)
}

// IsResolved reports whether a result has been produced.
func (t Typed[T]) IsResolved() bool {
	return t.op.IsResolved()
}

// Value returns the result, or ErrNotResolved.
func (t Typed[T]) Value() (T, error) {
	return Get[T](t.op)
}

// Op returns the untyped handle sharing the same state.
func (t Typed[T]) Op() Op {
	return t.op
}
