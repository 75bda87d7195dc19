package event

// ring keeps the last len(items) values. It is not safe for concurrent use;
// Bus guards it with its mutex.
type ring[T any] struct {
	items []T
	next  int
	full  bool
}

func newRing[T any](size int) *ring[T] {
	if size <= 0 {
		return nil
	}
	return &ring[T]{items: make([]T, size)}
}

func (r *ring[T]) push(value T) {
	if r == nil {
		return
	}
	r.items[r.next] = value
	r.next++
	if r.next == len(r.items) {
		r.next = 0
		r.full = true
	}
}

func (r *ring[T]) len() int {
	if r == nil {
		return 0
	}
	if r.full {
		return len(r.items)
	}
	return r.next
}

// last returns up to count of the newest values, oldest first. A count of
// zero or less returns everything stored.
func (r *ring[T]) last(count int) []T {
	stored := r.len()
	if stored == 0 {
		return nil
	}
	if count <= 0 || count > stored {
		count = stored
	}
	values := make([]T, count)
	start := r.next - count
	for i := range values {
		index := start + i
		if index < 0 {
			index += len(r.items)
		}
		values[i] = r.items[index]
	}
	return values
}
