package worker

// State is a worker's private key/value store. It is owned by one worker
// goroutine and is not safe for concurrent use.
type State struct {
	values map[string]any
}

// NewState returns an empty State.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Key is a typed State slot.
type Key[T any] struct {
	name string
}

// NewKey returns a key for values of type T.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the key name.
func (k Key[T]) Name() string { return k.name }

// Get returns the value stored under k.
func Get[T any](s *State, k Key[T]) (T, bool) {
	v, ok := s.values[k.name]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// GetOrInit returns the value under k, storing init() first if absent.
func GetOrInit[T any](s *State, k Key[T], init func() T) T {
	if v, ok := Get(s, k); ok {
		return v
	}
	v := init()
	s.values[k.name] = v
	return v
}

// Set stores v under k.
func Set[T any](s *State, k Key[T], v T) {
	s.values[k.name] = v
}

// Delete removes k.
func Delete[T any](s *State, k Key[T]) {
	delete(s.values, k.name)
}

// Len returns the number of stored keys.
func (s *State) Len() int {
	return len(s.values)
}
