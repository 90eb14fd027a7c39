package feed

// ring is a fixed-capacity buffer that overwrites its oldest entry when full.
// It is not safe for concurrent use; Client guards it with its mutex.
type ring[T any] struct {
	items []T
	head  int // next write position
	size  int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring[T]{items: make([]T, capacity)}
}

func (r *ring[T]) Push(v T) {
	r.items[r.head] = v
	r.head = (r.head + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	}
}

// Newest returns a copy of the held entries, most recent first.
func (r *ring[T]) Newest() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		idx := (r.head - 1 - i + len(r.items)) % len(r.items)
		out[i] = r.items[idx]
	}
	return out
}

func (r *ring[T]) Len() int {
	return r.size
}
