package atlas

import (
	"slices"

	"github.com/garethgeorge/atlaspack/internal/packer"
)

type observer struct {
	id int
	fn func(*AllocatedContext)
}

// AllocatedContext is a live allocation. Its targets and UV rectangle are updated in
// place whenever its atlas is resized; Version counts those updates so consumers
// can also poll for changes instead of registering callbacks.
type AllocatedContext struct {
	id    uint64
	owner *SharedRenderContext
	rect  packer.Rect
	set   func(*AllocatedContext)

	targets [2]Target
	uv      UVRect
	version int

	observers    []observer
	nextObserver int
	released     bool
}

// RenderTargets is the double-buffered target pair currently holding this
// allocation.
func (h *AllocatedContext) RenderTargets() [2]Target {
	return h.targets
}

func (h *AllocatedContext) UV() UVRect {
	return h.uv
}

// Bin is the index of the atlas holding this allocation. It never changes.
func (h *AllocatedContext) Bin() int {
	return h.rect.Bin
}

// Pixels is the allocation's integer rectangle within its atlas. It never changes;
// resizes only grow the atlas around it.
func (h *AllocatedContext) Pixels() Region {
	return Region{X: h.rect.X, Y: h.rect.Y, W: h.rect.W, H: h.rect.H}
}

func (h *AllocatedContext) Version() int {
	return h.version
}

func (h *AllocatedContext) Released() bool {
	return h.released
}

// OnMigrate registers fn to run after every resize that moves this allocation,
// after the request's Set callback. The returned func unregisters it.
func (h *AllocatedContext) OnMigrate(fn func(*AllocatedContext)) (cancel func()) {
	h.nextObserver++
	id := h.nextObserver
	h.observers = append(h.observers, observer{id: id, fn: fn})
	return func() {
		h.observers = slices.DeleteFunc(h.observers, func(o observer) bool { return o.id == id })
	}
}

func (h *AllocatedContext) notifyObservers() {
	if len(h.observers) == 0 {
		return
	}
	for _, o := range slices.Clone(h.observers) {
		o.fn(h)
	}
}
