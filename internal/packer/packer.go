package packer

import (
	"math"
	"math/bits"

	"github.com/garethgeorge/atlaspack/internal/sizetree"
	"github.com/joeycumines/logiface"
)

// Stats counts packer activity since construction.
type Stats struct {
	Packs    int // successful Pack calls
	Reused   int // packs served from released or leftover space
	Grown    int // packs served by extending a bin
	Rejected int // packs refused as too large or invalid
	Releases int // non-empty rectangles returned to the free tree
}

type Option func(*Packer)

// WithSplitPolicy replaces the leftover split rule, see SplitByLeftover.
func WithSplitPolicy(policy SplitPolicy) Option {
	return func(p *Packer) {
		if policy != nil {
			p.split = policy
		}
	}
}

func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(p *Packer) {
		p.logger = logger
	}
}

// Packer is an online rectangle packer over a growing set of bins, each bounded by
// (maxWidth, maxHeight). Released space is kept in a size tree and reused on a best
// fit basis; nothing is ever moved, so no defragmentation is needed or possible.
//
// Bins only grow. A new bin is started once no existing bin can be extended to fit
// a request.
//
// It is not thread-safe.
type Packer struct {
	maxWidth  int
	maxHeight int

	free *sizetree.Tree[Rect]
	// bins holds the occupied extent of every bin, always anchored at (0, 0)
	bins []Rect

	split  SplitPolicy
	logger *logiface.Logger[logiface.Event]
	stats  Stats
}

func New(maxWidth, maxHeight int, opts ...Option) *Packer {
	p := &Packer{
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		free:      sizetree.New[Rect](),
		split:     SplitByLeftover,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Packer) MaxSize() (w, h int) {
	return p.maxWidth, p.maxHeight
}

// Bins returns a copy of the occupied extent of every bin.
func (p *Packer) Bins() []Rect {
	return append([]Rect(nil), p.bins...)
}

// Bin returns the occupied extent of bin i, or an empty rect if it does not exist yet.
func (p *Packer) Bin(i int) Rect {
	if i < 0 || i >= len(p.bins) {
		return Rect{Bin: i}
	}
	return p.bins[i]
}

// FreeCount is the number of free rectangles held for reuse.
func (p *Packer) FreeCount() int {
	return p.free.Len()
}

func (p *Packer) Stats() Stats {
	return p.stats
}

// FreeIter returns an iterator over the free rectangles, in no particular order.
func (p *Packer) FreeIter() func(yield func(Rect) bool) {
	return func(yield func(Rect) bool) {
		more := true
		p.free.Traverse(func(id sizetree.NodeID) bool {
			if !more {
				return false
			}
			if p.free.IsLeaf(id) {
				more = yield(p.free.Data(id))
			}
			return more
		})
	}
}

// Release returns a rectangle to the free tree. Zero-area rectangles are ignored.
// The rectangle must not overlap live allocations or other free space.
func (p *Packer) Release(r Rect) {
	if r.IsEmpty() {
		return
	}
	p.free.Insert(r, r.W, r.H)
	p.stats.Releases++
}

// CostFit scores placing (w, h) into r. An exact fit ends the search. Otherwise near
// exact fits and fits into much larger space are cheap, with a ridge in between so
// that awkward slivers are not left behind.
func CostFit(w, h int, r Rect) (float64, bool) {
	if r.W < w || r.H < h {
		return math.Inf(1), false
	}
	if r.W == w && r.H == h {
		return 0, true
	}
	fw := float64(r.W) / float64(w)
	fh := float64(r.H) / float64(h)
	cw := math.Sin((1 - fw*fw) * math.Pi)
	ch := math.Sin((1 - fh*fh) * math.Pi)
	return cw*ch + cw + ch, false
}

// Pack allocates a (w, h) rectangle. It fails with ErrTooLarge when the request can
// never fit in a bin, and with ErrInvalidSize for non-positive dimensions.
func (p *Packer) Pack(w, h int) (Rect, error) {
	if w <= 0 || h <= 0 {
		p.stats.Rejected++
		return Rect{}, ErrInvalidSize
	}
	if w > p.maxWidth || h > p.maxHeight {
		p.stats.Rejected++
		return Rect{}, ErrTooLarge
	}

	p.stats.Packs++
	if id, ok := p.free.SearchBestFit(w, h, CostFit); ok {
		r := p.free.Data(id)
		p.free.Remove(id)
		p.stats.Reused++
		return p.place(r, w, h), nil
	}
	p.stats.Grown++
	return p.grow(w, h), nil
}

func (p *Packer) place(r Rect, w, h int) Rect {
	a, b := p.split(r, w, h)
	p.Release(a)
	p.Release(b)
	return Rect{X: r.X, Y: r.Y, W: w, H: h, Bin: r.Bin}
}

func (p *Packer) grow(w, h int) Rect {
	for bin := 0; ; bin++ {
		if bin >= len(p.bins) {
			p.bins = append(p.bins, Rect{Bin: bin})
			p.logger.Debug().
				Int("bin", bin).
				Int("max_width", p.maxWidth).
				Int("max_height", p.maxHeight).
				Log("packer started a new bin")
		}
		ext := &p.bins[bin]

		canGrowRight := ext.X+ext.W+w <= p.maxWidth
		canGrowDown := ext.Y+ext.H+h <= p.maxHeight

		// Prefer the direction that does not cross a power of two boundary, else the
		// one that leaves the less narrow region behind.
		wExpand := NearPow2Geq(ext.W) != NearPow2Geq(ext.W+w)
		hExpand := NearPow2Geq(ext.H) != NearPow2Geq(ext.H+h)
		var growRight bool
		if wExpand == hExpand {
			growRight = absInt(ext.H-h) > absInt(ext.W-w)
		} else {
			growRight = !wExpand
		}

		if canGrowRight && growRight {
			return p.growRight(ext, w, h)
		}
		if canGrowDown {
			return p.growDown(ext, w, h)
		}
	}
}

func (p *Packer) growRight(ext *Rect, w, h int) Rect {
	fit := Rect{X: ext.X + ext.W, Y: ext.Y, W: w, H: h, Bin: ext.Bin}
	if h < ext.H {
		p.Release(Rect{X: ext.X + ext.W, Y: ext.Y + h, W: w, H: ext.H - h, Bin: ext.Bin})
	} else {
		p.Release(Rect{X: ext.X, Y: ext.Y + ext.H, W: ext.W, H: h - ext.H, Bin: ext.Bin})
		ext.H = h
	}
	ext.W += w
	return fit
}

func (p *Packer) growDown(ext *Rect, w, h int) Rect {
	fit := Rect{X: ext.X, Y: ext.Y + ext.H, W: w, H: h, Bin: ext.Bin}
	if w < ext.W {
		p.Release(Rect{X: ext.X + w, Y: ext.Y + ext.H, W: ext.W - w, H: h, Bin: ext.Bin})
	} else {
		p.Release(Rect{X: ext.X + ext.W, Y: ext.Y, W: w - ext.W, H: ext.H, Bin: ext.Bin})
		ext.W = w
	}
	ext.H += h
	return fit
}

// NearPow2Geq returns the smallest power of two that is >= x, and 1 for x <= 1.
func NearPow2Geq(x int) int {
	if x <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(x-1))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
