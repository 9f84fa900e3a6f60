// Package pathset provides small set operations over comparable values,
// used for reconciling path lists.
package pathset

// Set is an unordered collection of unique values
type Set[T comparable] map[T]struct{}

// New builds a set from the given values
func New[T comparable](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether v is in the set
func (s Set[T]) Contains(v T) bool {
	_, ok := s[v]
	return ok
}

// Add inserts v into the set
func (s Set[T]) Add(v T) {
	s[v] = struct{}{}
}

// Union returns a new set with the members of both sets
func Union[T comparable](a, b Set[T]) Set[T] {
	out := make(Set[T], len(a)+len(b))
	for v := range a {
		out[v] = struct{}{}
	}
	for v := range b {
		out[v] = struct{}{}
	}
	return out
}

// Difference returns the members of a that are not in b
func Difference[T comparable](a, b Set[T]) Set[T] {
	out := make(Set[T])
	for v := range a {
		if !b.Contains(v) {
			out[v] = struct{}{}
		}
	}
	return out
}

// SymmetricDifference returns the members present in exactly one of the sets
func SymmetricDifference[T comparable](a, b Set[T]) Set[T] {
	return Union(Difference(a, b), Difference(b, a))
}

// Values returns the set members as a slice in unspecified order
func (s Set[T]) Values() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}
