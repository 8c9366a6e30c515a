package atlas

import "fmt"

// Region is a pixel rectangle within a Target.
type Region struct {
	X, Y, W, H int
}

func (r Region) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", r.X, r.Y, r.W, r.H)
}

// Target is a renderable and sampleable texture owned by a Device.
type Target interface {
	Width() int
	Height() int
}

// Device is the graphics collaborator a SharedRenderContext draws on. CopyRegion
// copies srcRect of src into dstRect of dst, the equivalent of one full screen
// textured quad pass; both regions have the same size.
type Device interface {
	CreateTarget(w, h int) (Target, error)
	CopyRegion(src Target, srcRect Region, dst Target, dstRect Region) error
	DestroyTarget(t Target) error
}

// UVRect is a normalized rectangle within a target, (U0, V0) top left and (U1, V1)
// bottom right.
type UVRect struct {
	U0, V0, U1, V1 float64
}

func (uv UVRect) String() string {
	return fmt.Sprintf("uv(%.4f,%.4f)-(%.4f,%.4f)", uv.U0, uv.V0, uv.U1, uv.V1)
}
