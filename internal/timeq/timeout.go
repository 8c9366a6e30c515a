package timeq

// TimeoutQueue turns relative delays into absolute deadlines on an internal clock
// advanced by Update. It replaces a large number of individual timers with one heap
// that is drained once per frame.
//
// It is not thread-safe.
type TimeoutQueue[T comparable] struct {
	heap *MinHeap[float64, T]
	time float64
}

func NewTimeoutQueue[T comparable](opts ...HeapOption[float64, T]) *TimeoutQueue[T] {
	return &TimeoutQueue[T]{
		heap: NewMinHeap(func(a, b float64) bool { return a < b }, opts...),
	}
}

// Time is the clock value, the sum of all Update deltas since creation or Clear.
func (q *TimeoutQueue[T]) Time() float64 {
	return q.time
}

func (q *TimeoutQueue[T]) Len() int {
	return q.heap.Len()
}

// Clear drops every pending entry and resets the clock to zero.
func (q *TimeoutQueue[T]) Clear() {
	q.heap.Clear()
	q.time = 0
}

// Insert schedules data to become ready timeout units from now.
func (q *TimeoutQueue[T]) Insert(data T, timeout float64) {
	q.heap.Insert(data, q.time+timeout)
}

func (q *TimeoutQueue[T]) Remove(data T) bool {
	return q.heap.Remove(data)
}

func (q *TimeoutQueue[T]) Update(deltaTime float64) {
	q.time += deltaTime
}

// HasNext reports whether the earliest deadline has been reached.
func (q *TimeoutQueue[T]) HasNext() bool {
	_, key, ok := q.heap.Peek()
	return ok && key <= q.time
}

// Next pops the earliest entry. Callers check HasNext first; Next does not look at
// the clock.
func (q *TimeoutQueue[T]) Next() (T, bool) {
	return q.heap.Pop()
}

// Iter drains every ready entry in deadline order.
func (q *TimeoutQueue[T]) Iter(fn func(data T)) {
	for q.HasNext() {
		data, _ := q.Next()
		fn(data)
	}
}

// Ready returns an iterator draining ready entries in deadline order. Entries not
// consumed when the loop breaks stay queued.
func (q *TimeoutQueue[T]) Ready() func(yield func(T) bool) {
	return func(yield func(T) bool) {
		for q.HasNext() {
			data, _ := q.Next()
			if !yield(data) {
				return
			}
		}
	}
}
