// Package atlas shares growable, double-buffered texture atlases between many
// consumers. Space is handed out by a packer; when an atlas has to grow, its content
// is copied into larger targets and every live allocation is told its new
// coordinates in place.
package atlas

import (
	"errors"
	"fmt"
	"math"

	"github.com/garethgeorge/atlaspack/internal/packer"
	"github.com/google/btree"
	"github.com/joeycumines/logiface"
)

// Stats counts render context activity since construction.
type Stats struct {
	Allocs     int
	Releases   int
	Failures   int // allocations refused or failed on the device
	Resizes    int
	Migrations int // allocation handles updated by resizes
}

// AllocateRequest describes the space to allocate. Set, when non-nil, is called once
// with the new allocation and again every time a resize moves it. It must not call
// Allocate or Release.
type AllocateRequest struct {
	Width  int
	Height int
	Set    func(ctx *AllocatedContext)
}

// binContext is the pair of targets backing one packer bin.
type binContext struct {
	bin     int
	targets [2]Target
	width   int
	height  int
	handles *btree.BTreeG[*AllocatedContext]
}

// SharedRenderContext hands out atlas space backed by one double-buffered context
// per packer bin. Contexts start at the configured initial size and grow by the
// growth factor whenever their bin's occupied extent outgrows them.
//
// It is not thread-safe; all calls are expected from a single frame loop.
type SharedRenderContext struct {
	dev    Device
	cfg    Config
	packer *packer.Packer
	logger *logiface.Logger[logiface.Event]

	contexts []*binContext
	nextID   uint64
	// migrating is set while Set callbacks and observers run
	migrating bool
	closed    bool
	stats     Stats
}

func New(dev Device, cfg Config) (*SharedRenderContext, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrBadConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []packer.Option{packer.WithLogger(cfg.Logger)}
	if cfg.SplitPolicy != nil {
		opts = append(opts, packer.WithSplitPolicy(cfg.SplitPolicy))
	}
	return &SharedRenderContext{
		dev:    dev,
		cfg:    cfg,
		packer: packer.New(cfg.MaxWidth, cfg.MaxHeight, opts...),
		logger: cfg.Logger,
	}, nil
}

// Allocate reserves (Width, Height) pixels in some atlas. Requests larger than the
// maximum size fail with ErrTooLarge.
func (s *SharedRenderContext) Allocate(req AllocateRequest) (*AllocatedContext, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.migrating {
		return nil, ErrReentrant
	}

	r, err := s.packer.Pack(req.Width, req.Height)
	if err != nil {
		s.stats.Failures++
		if errors.Is(err, packer.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %dx%d over %dx%d: %w",
				ErrTooLarge, req.Width, req.Height, s.cfg.MaxWidth, s.cfg.MaxHeight, err)
		}
		return nil, fmt.Errorf("allocate %dx%d: %w", req.Width, req.Height, err)
	}

	bc, err := s.fit(r.Bin)
	if err != nil {
		s.packer.Release(r)
		s.stats.Failures++
		return nil, err
	}

	s.nextID++
	h := &AllocatedContext{
		id:      s.nextID,
		owner:   s,
		rect:    r,
		set:     req.Set,
		targets: bc.targets,
		uv:      bc.uvOf(r),
	}
	bc.handles.ReplaceOrInsert(h)
	s.stats.Allocs++

	if h.set != nil {
		s.migrating = true
		defer func() { s.migrating = false }()
		h.set(h)
	}
	return h, nil
}

// Release returns the allocation's pixels to the packer. The handle keeps its last
// coordinates but is no longer updated.
func (s *SharedRenderContext) Release(h *AllocatedContext) error {
	if s.migrating {
		return ErrReentrant
	}
	if h.owner != s {
		return ErrForeignCtx
	}
	if h.released {
		return ErrReleased
	}
	h.released = true
	if s.closed {
		return nil
	}
	s.contexts[h.rect.Bin].handles.Delete(h)
	s.packer.Release(h.rect)
	s.stats.Releases++
	return nil
}

// Close destroys every target. Live allocations are marked released.
func (s *SharedRenderContext) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for _, bc := range s.contexts {
		bc.handles.Ascend(func(h *AllocatedContext) bool {
			h.released = true
			return true
		})
		bc.handles.Clear(false)
		errs = append(errs, s.destroy(bc.targets[:])...)
	}
	return errors.Join(errs...)
}

// Contexts is the number of atlases created so far, one per packer bin in use.
func (s *SharedRenderContext) Contexts() int {
	return len(s.contexts)
}

// ContextSize is the current size of the atlas backing bin.
func (s *SharedRenderContext) ContextSize(bin int) (w, h int, ok bool) {
	if bin < 0 || bin >= len(s.contexts) {
		return 0, 0, false
	}
	return s.contexts[bin].width, s.contexts[bin].height, true
}

// Targets returns the current target pair of the atlas backing bin.
func (s *SharedRenderContext) Targets(bin int) ([2]Target, bool) {
	if bin < 0 || bin >= len(s.contexts) {
		return [2]Target{}, false
	}
	return s.contexts[bin].targets, true
}

// Live is the number of unreleased allocations.
func (s *SharedRenderContext) Live() int {
	n := 0
	for _, bc := range s.contexts {
		n += bc.handles.Len()
	}
	return n
}

func (s *SharedRenderContext) Stats() Stats {
	return s.stats
}

func (s *SharedRenderContext) PackerStats() packer.Stats {
	return s.packer.Stats()
}

// fit returns the context for bin, creating it or growing it to cover the bin's
// occupied extent.
func (s *SharedRenderContext) fit(bin int) (*binContext, error) {
	for len(s.contexts) <= bin {
		next := len(s.contexts)
		ext := s.packer.Bin(next)
		bc, err := s.newContext(next,
			min(max(s.cfg.InitialWidth, ext.W), s.cfg.MaxWidth),
			min(max(s.cfg.InitialHeight, ext.H), s.cfg.MaxHeight))
		if err != nil {
			return nil, err
		}
		s.contexts = append(s.contexts, bc)
	}

	bc := s.contexts[bin]
	ext := s.packer.Bin(bin)
	if ext.W > bc.width || ext.H > bc.height {
		if err := s.resize(bc, ext.W, ext.H); err != nil {
			return nil, err
		}
	}
	return bc, nil
}

func (s *SharedRenderContext) newContext(bin, w, h int) (*binContext, error) {
	targets, err := s.createPair(w, h)
	if err != nil {
		return nil, fmt.Errorf("create context for bin %d: %w", bin, err)
	}
	s.logger.Info().
		Int("bin", bin).
		Int("width", w).
		Int("height", h).
		Log("created render context")
	return &binContext{
		bin:     bin,
		targets: targets,
		width:   w,
		height:  h,
		handles: btree.NewG(32, func(a, b *AllocatedContext) bool { return a.id < b.id }),
	}, nil
}

// resize grows bc geometrically until it covers (needW, needH), copies both targets
// into the new pair and moves every live allocation of the bin onto it.
func (s *SharedRenderContext) resize(bc *binContext, needW, needH int) error {
	w := grownSize(bc.width, needW, s.cfg.MaxWidth, s.cfg.GrowthFactor)
	h := grownSize(bc.height, needH, s.cfg.MaxHeight, s.cfg.GrowthFactor)

	next, err := s.createPair(w, h)
	if err != nil {
		return fmt.Errorf("resize bin %d to %dx%d: %w", bc.bin, w, h, err)
	}
	old := Region{W: bc.width, H: bc.height}
	for i := range next {
		if err := s.dev.CopyRegion(bc.targets[i], old, next[i], old); err != nil {
			s.destroy(next[:])
			return fmt.Errorf("resize bin %d: copy target %d: %w", bc.bin, i, err)
		}
	}
	for _, err := range s.destroy(bc.targets[:]) {
		s.logger.Warning().
			Err(err).
			Int("bin", bc.bin).
			Log("failed to destroy old render target")
	}

	s.logger.Info().
		Int("bin", bc.bin).
		Int("from_width", bc.width).
		Int("from_height", bc.height).
		Int("width", w).
		Int("height", h).
		Int("live", bc.handles.Len()).
		Log("resized render context")

	bc.targets = next
	bc.width, bc.height = w, h
	s.stats.Resizes++
	s.migrate(bc)
	return nil
}

// migrate points every live allocation of bc at its current targets, in allocation
// order, and notifies each one.
func (s *SharedRenderContext) migrate(bc *binContext) {
	s.migrating = true
	defer func() { s.migrating = false }()

	bc.handles.Ascend(func(h *AllocatedContext) bool {
		h.targets = bc.targets
		h.uv = bc.uvOf(h.rect)
		h.version++
		s.stats.Migrations++
		if h.set != nil {
			h.set(h)
		}
		h.notifyObservers()
		return true
	})
}

func (s *SharedRenderContext) createPair(w, h int) ([2]Target, error) {
	var pair [2]Target
	for i := range pair {
		t, err := s.dev.CreateTarget(w, h)
		if err != nil {
			s.destroy(pair[:i])
			return [2]Target{}, err
		}
		pair[i] = t
	}
	return pair, nil
}

func (s *SharedRenderContext) destroy(targets []Target) []error {
	var errs []error
	for _, t := range targets {
		if t == nil {
			continue
		}
		if err := s.dev.DestroyTarget(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (bc *binContext) uvOf(r packer.Rect) UVRect {
	w, h := float64(bc.width), float64(bc.height)
	return UVRect{
		U0: float64(r.X) / w,
		V0: float64(r.Y) / h,
		U1: float64(r.X+r.W) / w,
		V1: float64(r.Y+r.H) / h,
	}
}

// grownSize scales cur by factor until it reaches need, capped at limit.
func grownSize(cur, need, limit int, factor float64) int {
	for cur < need {
		cur = int(math.Ceil(float64(cur) * factor))
	}
	return min(cur, limit)
}
