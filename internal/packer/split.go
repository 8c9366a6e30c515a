package packer

// SplitPolicy decides how the space left over after placing a (w, h) rectangle at the
// top-left corner of free rectangle r is cut into at most two free rectangles.
// Empty results are discarded by the caller.
type SplitPolicy func(r Rect, w, h int) (Rect, Rect)

// SplitByLeftover is the default policy. When less width than height is left over
// the strip below spans the full width of r, otherwise the strip to the right spans
// its full height. The rule was tuned empirically and has no optimality argument.
func SplitByLeftover(r Rect, w, h int) (Rect, Rect) {
	if r.W-w < r.H-h {
		return SplitHorizontal(r, w, h)
	}
	return SplitVertical(r, w, h)
}

// SplitHorizontal always gives the full width of r to the strip below the placement.
func SplitHorizontal(r Rect, w, h int) (Rect, Rect) {
	below := Rect{X: r.X, Y: r.Y + h, W: r.W, H: r.H - h, Bin: r.Bin}
	right := Rect{X: r.X + w, Y: r.Y, W: r.W - w, H: h, Bin: r.Bin}
	return below, right
}

// SplitVertical always gives the full height of r to the strip right of the placement.
func SplitVertical(r Rect, w, h int) (Rect, Rect) {
	below := Rect{X: r.X, Y: r.Y + h, W: w, H: r.H - h, Bin: r.Bin}
	right := Rect{X: r.X + w, Y: r.Y, W: r.W - w, H: r.H, Bin: r.Bin}
	return below, right
}
