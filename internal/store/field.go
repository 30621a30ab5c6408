package store

// Field is a three-state optional used in update payloads: absent (leave the
// column alone), present-null (clear it), or present-value (set it). The
// distinction matters for columns like slug where an explicit null and an
// omitted key mean different things.
type Field[T any] struct {
	set   bool
	null  bool
	value T
}

// Set returns a present-value field.
func Set[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

// Null returns a present-null field.
func Null[T any]() Field[T] {
	return Field[T]{set: true, null: true}
}

// IsSet reports whether the field was provided at all.
func (f Field[T]) IsSet() bool { return f.set }

// IsNull reports whether the field was provided as an explicit null.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// Value returns the field's value; ok is false when absent or null.
func (f Field[T]) Value() (T, bool) {
	if !f.set || f.null {
		var zero T
		return zero, false
	}
	return f.value, true
}
