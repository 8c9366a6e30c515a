package poolutil

// Pool is a bounded LIFO free-list of reusable records. Unlike sync.Pool it never
// drops items behind the caller's back, which keeps reuse deterministic for
// single-threaded hot paths. It is not thread-safe; share one only between users on
// the same goroutine.
type Pool[T any] struct {
	New   func() T
	Reset func(T) T
	items []T
	limit int
}

// NewPool returns a pool retaining at most limit idle items; limit <= 0 means
// unbounded.
func NewPool[T any](new func() T, reset func(T) T, limit int) *Pool[T] {
	return &Pool[T]{
		New:   new,
		Reset: reset,
		limit: limit,
	}
}

func (p *Pool[T]) Get() T {
	if n := len(p.items); n > 0 {
		item := p.items[n-1]
		var zero T
		p.items[n-1] = zero
		p.items = p.items[:n-1]
		return item
	}
	return p.New()
}

func (p *Pool[T]) Put(item T) {
	if p.Reset != nil {
		item = p.Reset(item)
	}
	if p.limit > 0 && len(p.items) >= p.limit {
		return
	}
	p.items = append(p.items, item)
}

// Idle is the number of items waiting for reuse.
func (p *Pool[T]) Idle() int {
	return len(p.items)
}
