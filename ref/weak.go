package ref

import "weak"

type weakRetention[T any] struct{}

// Weak returns a retention backed by weak pointers. A nil pointer is
// retained as an already reclaimed value.
func Weak[T any]() Retention[*T] { return weakRetention[T]{} }

func (weakRetention[T]) Retain(v *T) Ref[*T] { return weakRef[T]{p: weak.Make(v)} }
func (weakRetention[T]) Reclaimable() bool   { return true }

type weakRef[T any] struct{ p weak.Pointer[T] }

func (r weakRef[T]) Load() (*T, bool) {
	v := r.p.Value()
	return v, v != nil
}
