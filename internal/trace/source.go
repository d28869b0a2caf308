// Package trace provides typed, synchronous event sources that statistics
// subscribe to during setup.
package trace

// Source fans an event out to every connected sink, in connection order.
// Connect is expected during setup only; Fire runs on the single event
// worker, so Source does no locking.
type Source[T any] struct {
	name  string
	sinks []func(T)
}

// NewSource creates a named source with no sinks.
func NewSource[T any](name string) *Source[T] {
	return &Source[T]{name: name}
}

// Name returns the trace name, e.g. "mac-tx".
func (s *Source[T]) Name() string {
	return s.name
}

// Connect subscribes fn to the source.
func (s *Source[T]) Connect(fn func(T)) {
	s.sinks = append(s.sinks, fn)
}

// Fire delivers ev to all sinks.
func (s *Source[T]) Fire(ev T) {
	for _, fn := range s.sinks {
		fn(ev)
	}
}

// Sinks returns the number of connected sinks.
func (s *Source[T]) Sinks() int {
	return len(s.sinks)
}
