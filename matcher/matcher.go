// Package matcher provides predicates over remote job state names. Mappings
// in the poll package use them to translate a service vocabulary into the
// closed set of poll statuses.
package matcher

// Matcher represents a predicate for values of type T.
type Matcher[T any] interface {
	// IsMatch evaluates the underlying predicate for the provided value.
	IsMatch(T) bool
}

// Func adapts an ordinary function to the Matcher interface.
type Func[T any] func(T) bool

var _ Matcher[string] = Func[string](nil)

// IsMatch calls f(value).
func (f Func[T]) IsMatch(value T) bool {
	return f(value)
}

type anyOf[T any] []Matcher[T]

// AnyOf returns a Matcher which matches when at least one of the given
// matchers matches.
func AnyOf[T any](matchers ...Matcher[T]) Matcher[T] {
	return anyOf[T](matchers)
}

func (m anyOf[T]) IsMatch(value T) bool {
	for _, matcher := range m {
		if matcher.IsMatch(value) {
			return true
		}
	}
	return false
}

type allOf[T any] []Matcher[T]

// AllOf returns a Matcher which matches when every given matcher matches.
// An empty AllOf matches any value.
func AllOf[T any](matchers ...Matcher[T]) Matcher[T] {
	return allOf[T](matchers)
}

func (m allOf[T]) IsMatch(value T) bool {
	for _, matcher := range m {
		if !matcher.IsMatch(value) {
			return false
		}
	}
	return true
}
