// Package event provides typed observer registries. Observers are removed
// through the handle returned when they were added.
package event

// Handle identifies one registered observer.
type Handle uint64

type observer[T any] struct {
	handle Handle
	fn     func(T)
	once   bool
}

// Observable is a list of callbacks notified with a value of type T.
// The zero value is ready to use. It is not safe for concurrent use.
type Observable[T any] struct {
	next      Handle
	observers []observer[T]
}

// Add registers fn and returns its handle.
func (o *Observable[T]) Add(fn func(T)) Handle {
	return o.add(fn, false)
}

// AddOnce registers fn to be removed after its first notification.
func (o *Observable[T]) AddOnce(fn func(T)) Handle {
	return o.add(fn, true)
}

func (o *Observable[T]) add(fn func(T), once bool) Handle {
	o.next++
	o.observers = append(o.observers, observer[T]{handle: o.next, fn: fn, once: once})
	return o.next
}

// Remove unregisters the observer with handle h. It reports whether the
// observer was registered.
func (o *Observable[T]) Remove(h Handle) bool {
	for i, obs := range o.observers {
		if obs.handle == h {
			o.observers = append(o.observers[:i:i], o.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Notify calls every observer with v in registration order. Observers added
// or removed during notification take effect on the next call.
func (o *Observable[T]) Notify(v T) {
	if len(o.observers) == 0 {
		return
	}
	snapshot := make([]observer[T], len(o.observers))
	copy(snapshot, o.observers)
	for _, obs := range snapshot {
		if obs.once {
			o.Remove(obs.handle)
		}
		obs.fn(v)
	}
}

// HasObservers reports whether at least one observer is registered.
func (o *Observable[T]) HasObservers() bool {
	return len(o.observers) > 0
}

// Len returns the number of registered observers.
func (o *Observable[T]) Len() int {
	return len(o.observers)
}

// Clear removes every observer.
func (o *Observable[T]) Clear() {
	o.observers = nil
}
