package timeq

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutQueue_DrainsOnlyExpired(t *testing.T) {
	q := NewTimeoutQueue[int]()
	deadlines := []float64{5, 1, 9, 3, 3, 7, 0.5, 10}
	for i, d := range deadlines {
		q.Insert(i, d)
	}

	q.Update(5)
	var got []float64
	q.Iter(func(i int) {
		got = append(got, deadlines[i])
	})
	assert.Equal(t, []float64{0.5, 1, 3, 3, 5}, got)
	assert.Equal(t, 3, q.Len())
	assert.False(t, q.HasNext())

	q.Update(4.5)
	got = got[:0]
	for i := range q.Ready() {
		got = append(got, deadlines[i])
	}
	assert.Equal(t, []float64{7}, got)
}

func TestTimeoutQueue_RelativeToCurrentTime(t *testing.T) {
	q := NewTimeoutQueue[string]()
	q.Update(10)
	q.Insert("late", 2)
	q.Update(1.5)
	assert.False(t, q.HasNext())
	q.Update(0.5)
	require.True(t, q.HasNext())
	v, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, "late", v)
	assert.Equal(t, 12.0, q.Time())
}

func TestTimeoutQueue_Remove(t *testing.T) {
	q := NewTimeoutQueue[string]()
	q.Insert("a", 1)
	q.Insert("b", 2)
	assert.True(t, q.Remove("a"))
	assert.False(t, q.Remove("a"))
	q.Update(3)
	var got []string
	q.Iter(func(s string) { got = append(got, s) })
	assert.Equal(t, []string{"b"}, got)
}

func TestTimeoutQueue_ReadyBreakKeepsRest(t *testing.T) {
	q := NewTimeoutQueue[int]()
	for i := 0; i < 5; i++ {
		q.Insert(i, float64(i))
	}
	q.Update(10)
	for i := range q.Ready() {
		if i == 1 {
			break
		}
	}
	assert.Equal(t, 3, q.Len())
	assert.True(t, q.HasNext())
}

func TestTimeoutQueue_Clear(t *testing.T) {
	q := NewTimeoutQueue[int]()
	q.Insert(1, 1)
	q.Update(5)
	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0.0, q.Time())
	assert.False(t, q.HasNext())
}

func FuzzTimeoutQueue(f *testing.F) {
	f.Add(int64(1), 50, 0.5)
	f.Add(int64(2), 500, 7.25)
	f.Add(int64(3), 1, 100.0)

	f.Fuzz(func(t *testing.T, seed int64, count int, horizon float64) {
		if count <= 0 || count > 5000 || !(horizon >= 0 && horizon < 1e6) {
			t.Skip()
		}
		rng := rand.New(rand.NewSource(seed))
		q := NewTimeoutQueue[int]()
		deadlines := make([]float64, count)
		for i := range deadlines {
			deadlines[i] = rng.Float64() * 2 * horizon
			q.Insert(i, deadlines[i])
		}

		q.Update(horizon)
		var drained []float64
		for i := range q.Ready() {
			drained = append(drained, deadlines[i])
		}

		var want []float64
		for _, d := range deadlines {
			if d <= horizon {
				want = append(want, d)
			}
		}
		sort.Float64s(want)
		assert.Equal(t, want, drained)
		assert.Equal(t, count-len(want), q.Len())
	})
}
