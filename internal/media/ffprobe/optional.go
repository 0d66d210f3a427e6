package ffprobe

// Optional holds a decoded field value or records that it was unavailable.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some wraps an available value.
func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, ok: true}
}

// Get returns the value and whether it was available.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Valid reports whether the value is available.
func (o Optional[T]) Valid() bool {
	return o.ok
}

// Or returns the value, or fallback when unavailable.
func (o Optional[T]) Or(fallback T) T {
	if !o.ok {
		return fallback
	}
	return o.value
}
