package credential

import "sync/atomic"

// DefaultCache is a race-tolerant single-init cell for a default-location
// credential value of type T. Multiple goroutines may run Construct
// concurrently; the first successful value wins and is retained for all
// later readers. A failing Construct leaves the cell empty so a later
// caller can retry, per §9's "non-blocking set-once cell" design note. No
// mutex is used: readers are lock-free via atomic.Pointer.
type DefaultCache[T any] struct {
	value atomic.Pointer[T]
}

// GetOrInit returns the cached value if present, otherwise runs construct
// and attempts to install its result. If construct fails, the error is
// returned and the cell remains uninitialized for the next caller. If
// another goroutine installed a value first, this call discards its own
// result and returns the installed one.
func (c *DefaultCache[T]) GetOrInit(construct func() (T, error)) (T, error) {
	if p := c.value.Load(); p != nil {
		return *p, nil
	}
	v, err := construct()
	if err != nil {
		var zero T
		return zero, err
	}
	// Only the first successful value is installed; a goroutine that loses
	// the race returns the winner's value.
	if !c.value.CompareAndSwap(nil, &v) {
		return *c.value.Load(), nil
	}
	return v, nil
}

// Peek returns the cached value without attempting construction.
func (c *DefaultCache[T]) Peek() (T, bool) {
	if p := c.value.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}
