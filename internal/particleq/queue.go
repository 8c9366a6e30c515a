// Package particleq implements a fixed-capacity recycler of particle slots keyed by
// the absolute time each slot dies. Every slot is always present in the heap; slots
// are only ever re-keyed, so the queue never allocates after New.
package particleq

import "math"

type slot struct {
	time float64
	id   int
}

// Queue is not thread-safe.
type Queue struct {
	slots     []slot
	time      float64
	lastDeath float64
	wasForced bool
}

// New returns a queue with slot ids 0..capacity-1, all of them dead.
func New(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	q := &Queue{slots: make([]slot, capacity)}
	for i := range q.slots {
		q.slots[i].id = i
	}
	return q
}

func (q *Queue) Capacity() int {
	return len(q.slots)
}

// Time is the sum of all Update deltas since New or Clear.
func (q *Queue) Time() float64 {
	return q.time
}

// WasForced reports whether the last successful Create evicted a slot that was
// still alive. Callers holding that id must treat it as reassigned.
func (q *Queue) WasForced() bool {
	return q.wasForced
}

// Clear kills every slot and resets the clock.
func (q *Queue) Clear() {
	for i := range q.slots {
		q.slots[i].time = 0
	}
	q.time = 0
	q.lastDeath = 0
	q.wasForced = false
}

// Create claims the slot closest to death and gives it timeTillDeath more life.
// Without force it fails when every slot is still alive. With force the
// earliest-dying live slot is evicted instead.
func (q *Queue) Create(timeTillDeath float64, force bool) (int, bool) {
	if len(q.slots) == 0 {
		return 0, false
	}
	root := q.slots[0]
	if !force && root.time > q.time {
		return 0, false
	}
	q.wasForced = root.time > q.time
	q.noteDeath(q.time + timeTillDeath)
	q.replace(0, q.time+timeTillDeath)
	return root.id, true
}

// RemoveParticle kills a slot by moving its deadline to zero, sending it to the root
// where the next Create picks it up.
func (q *Queue) RemoveParticle(id int) bool {
	i := q.find(id)
	if i < 0 {
		return false
	}
	q.replace(i, 0)
	return true
}

// UpdateParticle shifts a slot's deadline by lifeDelta. The result never falls
// below the current time, so a dead slot cannot be pushed further into the past.
func (q *Queue) UpdateParticle(id int, lifeDelta float64) bool {
	i := q.find(id)
	if i < 0 {
		return false
	}
	deathTime := math.Max(q.slots[i].time+lifeDelta, q.time)
	q.noteDeath(deathTime)
	q.replace(i, deathTime)
	return true
}

// Update advances the clock and reports whether any slot may still be alive.
func (q *Queue) Update(dt float64) bool {
	q.time += dt
	return q.time < q.lastDeath
}

func (q *Queue) noteDeath(t float64) {
	if t > q.lastDeath {
		q.lastDeath = t
	}
}

func (q *Queue) find(id int) int {
	for i := range q.slots {
		if q.slots[i].id == id {
			return i
		}
	}
	return -1
}

// replace takes the slot at index i out of the heap, re-keys it with time and puts
// it back. It returns the id of the re-keyed slot.
func (q *Queue) replace(i int, time float64) int {
	last := len(q.slots) - 1
	if i != last {
		q.slots[i], q.slots[last] = q.slots[last], q.slots[i]
		// the heap is slots[:last] while the re-keyed slot waits at the end
		if i > 0 && q.slots[i].time < q.slots[(i-1)/2].time {
			q.up(i)
		} else {
			q.down(i, last)
		}
	}
	q.slots[last].time = time
	id := q.slots[last].id
	q.up(last)
	return id
}

func (q *Queue) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if q.slots[i].time >= q.slots[parent].time {
			return
		}
		q.slots[i], q.slots[parent] = q.slots[parent], q.slots[i]
		i = parent
	}
}

func (q *Queue) down(i, n int) {
	for {
		small := i
		left, right := 2*i+1, 2*i+2
		if left < n && q.slots[left].time < q.slots[small].time {
			small = left
		}
		if right < n && q.slots[right].time < q.slots[small].time {
			small = right
		}
		if small == i {
			return
		}
		q.slots[i], q.slots[small] = q.slots[small], q.slots[i]
		i = small
	}
}
