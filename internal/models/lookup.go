package models

// Lookup is the outcome of resolving an archive reference into a local
// entity: either Found with a value, or Unresolvable with a reason. Callers
// skip Unresolvable items and carry on.
type Lookup[T any] struct {
	value  T
	found  bool
	reason error
}

// Found wraps a resolved entity.
func Found[T any](v T) Lookup[T] {
	return Lookup[T]{value: v, found: true}
}

// Unresolvable records why a reference could not be turned into an entity.
func Unresolvable[T any](reason error) Lookup[T] {
	return Lookup[T]{reason: reason}
}

// Get returns the entity and whether it was found.
func (l Lookup[T]) Get() (T, bool) {
	return l.value, l.found
}

// Reason returns why the lookup failed, or nil when it was found.
func (l Lookup[T]) Reason() error {
	return l.reason
}
