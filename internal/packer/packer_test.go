package packer

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkLayout verifies that live allocations and free space tile every bin exactly.
func checkLayout(t testing.TB, p *Packer, live []Rect) {
	t.Helper()
	var free []Rect
	for r := range p.FreeIter() {
		free = append(free, r)
	}
	all := append(append([]Rect(nil), live...), free...)

	binArea := 0
	for _, b := range p.Bins() {
		assert.LessOrEqual(t, b.W, p.maxWidth)
		assert.LessOrEqual(t, b.H, p.maxHeight)
		binArea += b.Area()
	}
	usedArea := 0
	for i, r := range all {
		require.Less(t, r.Bin, len(p.bins), "rect %v in unknown bin", r)
		require.True(t, p.bins[r.Bin].Contains(r), "rect %v outside bin extent %v", r, p.bins[r.Bin])
		usedArea += r.Area()
		for j := i + 1; j < len(all); j++ {
			require.False(t, r.Overlaps(all[j]), "rects %v and %v overlap", r, all[j])
		}
	}
	assert.Equal(t, binArea, usedArea, "live and free space must tile the bins")
}

func TestRect(t *testing.T) {
	t.Run("Overlaps", func(t *testing.T) {
		testCases := []struct {
			name     string
			a, b     Rect
			expected bool
		}{
			{"identical", Rect{X: 0, Y: 0, W: 4, H: 4}, Rect{X: 0, Y: 0, W: 4, H: 4}, true},
			{"adjacent right", Rect{X: 0, Y: 0, W: 4, H: 4}, Rect{X: 4, Y: 0, W: 4, H: 4}, false},
			{"adjacent below", Rect{X: 0, Y: 0, W: 4, H: 4}, Rect{X: 0, Y: 4, W: 4, H: 4}, false},
			{"corner overlap", Rect{X: 0, Y: 0, W: 4, H: 4}, Rect{X: 3, Y: 3, W: 4, H: 4}, true},
			{"different bins", Rect{X: 0, Y: 0, W: 4, H: 4}, Rect{X: 0, Y: 0, W: 4, H: 4, Bin: 1}, false},
			{"empty", Rect{X: 0, Y: 0, W: 4, H: 4}, Rect{X: 1, Y: 1, W: 0, H: 2}, false},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				assert.Equal(t, tc.expected, tc.a.Overlaps(tc.b))
				assert.Equal(t, tc.expected, tc.b.Overlaps(tc.a))
			})
		}
	})

	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "bin 2 [1,3 4x5]", Rect{X: 1, Y: 3, W: 4, H: 5, Bin: 2}.String())
	})
}

func TestNearPow2Geq(t *testing.T) {
	testCases := map[int]int{-3: 1, 0: 1, 1: 1, 2: 2, 3: 4, 64: 64, 65: 128, 1000: 1024}
	for in, want := range testCases {
		assert.Equal(t, want, NearPow2Geq(in), "NearPow2Geq(%d)", in)
	}
}

func TestCostFit(t *testing.T) {
	c, exact := CostFit(10, 10, Rect{W: 10, H: 10})
	assert.True(t, exact)
	assert.Equal(t, 0.0, c)

	c, exact = CostFit(10, 10, Rect{W: 9, H: 20})
	assert.False(t, exact)
	assert.True(t, math.IsInf(c, 1))

	near, _ := CostFit(100, 100, Rect{W: 101, H: 100})
	ridge, _ := CostFit(100, 100, Rect{W: 158, H: 100})
	assert.Less(t, near, ridge, "a sliver should be cheaper than a ridge fit")
}

func TestSplitPolicies(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 30, H: 40, Bin: 1}

	below, right := SplitHorizontal(r, 10, 10)
	assert.Equal(t, Rect{X: 10, Y: 30, W: 30, H: 30, Bin: 1}, below)
	assert.Equal(t, Rect{X: 20, Y: 20, W: 20, H: 10, Bin: 1}, right)

	below, right = SplitVertical(r, 10, 10)
	assert.Equal(t, Rect{X: 10, Y: 30, W: 10, H: 30, Bin: 1}, below)
	assert.Equal(t, Rect{X: 20, Y: 20, W: 20, H: 40, Bin: 1}, right)

	// less width than height left over: full-width strip below
	below, _ = SplitByLeftover(r, 25, 10)
	assert.Equal(t, 30, below.W)
	// more width left over: full-height strip right
	_, right = SplitByLeftover(r, 5, 35)
	assert.Equal(t, 40, right.H)
}

func TestPacker_RejectsInvalid(t *testing.T) {
	p := New(256, 128)

	_, err := p.Pack(257, 1)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = p.Pack(1, 129)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = p.Pack(0, 5)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = p.Pack(5, -1)
	assert.ErrorIs(t, err, ErrInvalidSize)
	assert.NotErrorIs(t, ErrTooLarge, ErrInvalidSize)

	assert.Empty(t, p.Bins())
	assert.Equal(t, 4, p.Stats().Rejected)

	r, err := p.Pack(256, 128)
	require.NoError(t, err)
	assert.Equal(t, Rect{W: 256, H: 128}, r)
}

func TestPacker_FirstPackGrowsEmptyBin(t *testing.T) {
	p := New(256, 256)
	r, err := p.Pack(64, 64)
	require.NoError(t, err)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 64, H: 64, Bin: 0}, r)
	assert.Equal(t, []Rect{{W: 64, H: 64}}, p.Bins())
	assert.Equal(t, 0, p.FreeCount())
}

func TestPacker_ReleaseRoundTrip(t *testing.T) {
	p := New(256, 256)
	r, err := p.Pack(64, 64)
	require.NoError(t, err)
	binsBefore := p.Bins()

	p.Release(r)
	assert.Equal(t, 1, p.FreeCount())

	again, err := p.Pack(64, 64)
	require.NoError(t, err)
	assert.Equal(t, r, again)
	assert.Equal(t, binsBefore, p.Bins(), "exact reuse must not grow any bin")
	assert.Equal(t, 0, p.FreeCount())

	stats := p.Stats()
	assert.Equal(t, 2, stats.Packs)
	assert.Equal(t, 1, stats.Reused)
	assert.Equal(t, 1, stats.Grown)
}

func TestPacker_ReleaseIgnoresEmpty(t *testing.T) {
	p := New(64, 64)
	p.Release(Rect{W: 0, H: 10})
	p.Release(Rect{W: 10, H: 0})
	assert.Equal(t, 0, p.FreeCount())
	assert.Equal(t, 0, p.Stats().Releases)
}

func TestPacker_GrowthAvoidsPow2Boundary(t *testing.T) {
	p := New(1024, 1024)
	_, err := p.Pack(64, 64)
	require.NoError(t, err)

	// Growing right to 64+32 crosses 64 -> 128, growing down does too, so the tie is
	// broken by the axis mismatch: |64-16| > |64-32| grows right.
	r, err := p.Pack(32, 16)
	require.NoError(t, err)
	assert.Equal(t, Rect{X: 64, Y: 0, W: 32, H: 16}, r)
	assert.Equal(t, Rect{W: 96, H: 64}, p.Bin(0))

	// the strip under the new column is free
	var free []Rect
	for fr := range p.FreeIter() {
		free = append(free, fr)
	}
	assert.Equal(t, []Rect{{X: 64, Y: 16, W: 32, H: 48}}, free)
}

func TestPacker_SpillsIntoNewBin(t *testing.T) {
	p := New(100, 100)
	a, err := p.Pack(100, 60)
	require.NoError(t, err)
	b, err := p.Pack(100, 60)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Bin)
	assert.Equal(t, 1, b.Bin)
	assert.Len(t, p.Bins(), 2)

	// bin 0 can still grow down, so it is preferred over bin 1
	c, err := p.Pack(50, 40)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Bin)
	checkLayout(t, p, []Rect{a, b, c})
}

func TestPacker_BinsNeverShrink(t *testing.T) {
	p := New(512, 512)
	rng := rand.New(rand.NewSource(3))
	var live []Rect
	prev := p.Bins()
	for i := 0; i < 500; i++ {
		if len(live) > 0 && rng.Intn(2) == 0 {
			k := rng.Intn(len(live))
			p.Release(live[k])
			live = append(live[:k], live[k+1:]...)
		} else {
			r, err := p.Pack(rng.Intn(48)+1, rng.Intn(48)+1)
			require.NoError(t, err)
			live = append(live, r)
		}
		cur := p.Bins()
		require.GreaterOrEqual(t, len(cur), len(prev))
		for j := range prev {
			require.GreaterOrEqual(t, cur[j].W, prev[j].W)
			require.GreaterOrEqual(t, cur[j].H, prev[j].H)
		}
		prev = cur
	}
	checkLayout(t, p, live)
}

func TestPacker_CustomSplitPolicy(t *testing.T) {
	calls := 0
	policy := func(r Rect, w, h int) (Rect, Rect) {
		calls++
		return SplitVertical(r, w, h)
	}
	p := New(256, 256, WithSplitPolicy(policy))
	r, err := p.Pack(128, 128)
	require.NoError(t, err)
	p.Release(r)
	small, err := p.Pack(32, 32)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	checkLayout(t, p, []Rect{small})

	// nil keeps the default
	p = New(16, 16, WithSplitPolicy(nil))
	assert.NotNil(t, p.split)
}

func FuzzPacker(f *testing.F) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	f.Add(int64(256), int64(64), int64(1))
	f.Add(int64(1024), int64(200), int64(7))
	f.Add(int64(97), int64(97), rng.Int63())

	f.Fuzz(func(t *testing.T, maxSize int64, maxReq int64, seed int64) {
		if maxSize <= 0 || maxSize > 4096 || maxReq <= 0 || maxReq > maxSize {
			t.Skip("Invalid sizes")
		}
		rng := rand.New(rand.NewSource(seed))
		p := New(int(maxSize), int(maxSize))

		var live []Rect
		for i := 0; i < 400; i++ {
			switch rng.Intn(3) {
			case 0, 1:
				w := rng.Int63n(maxReq) + 1
				h := rng.Int63n(maxReq) + 1
				r, err := p.Pack(int(w), int(h))
				require.NoError(t, err)
				require.Equal(t, int(w), r.W)
				require.Equal(t, int(h), r.H)
				live = append(live, r)
			case 2:
				if len(live) == 0 {
					continue
				}
				k := rng.Intn(len(live))
				p.Release(live[k])
				live = append(live[:k], live[k+1:]...)
			}
		}
		checkLayout(t, p, live)
	})
}

func BenchmarkPacker_PackRelease(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	p := New(2048, 2048)
	live := make([]Rect, 0, 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if len(live) == cap(live) {
			k := rng.Intn(len(live))
			p.Release(live[k])
			live[k] = live[len(live)-1]
			live = live[:len(live)-1]
		}
		r, err := p.Pack(rng.Intn(64)+1, rng.Intn(64)+1)
		if err != nil {
			b.Fatal(err)
		}
		live = append(live, r)
	}
}
