package packer

import "fmt"

// Rect is a rectangle within one bin. X and Y are relative to the bin origin.
type Rect struct {
	X, Y int
	W, H int
	// Bin is the index of the bin the rectangle lives in.
	Bin int
}

func (r Rect) Area() int {
	return r.W * r.H
}

func (r Rect) IsEmpty() bool {
	return r.W <= 0 || r.H <= 0
}

// Overlaps reports whether two non-empty rectangles in the same bin share any area.
func (r Rect) Overlaps(other Rect) bool {
	if r.Bin != other.Bin || r.IsEmpty() || other.IsEmpty() {
		return false
	}
	return r.X < other.X+other.W && other.X < r.X+r.W &&
		r.Y < other.Y+other.H && other.Y < r.Y+r.H
}

// Contains reports whether other lies entirely within r.
func (r Rect) Contains(other Rect) bool {
	return r.Bin == other.Bin &&
		r.X <= other.X && r.Y <= other.Y &&
		other.X+other.W <= r.X+r.W && other.Y+other.H <= r.Y+r.H
}

func (r Rect) String() string {
	return fmt.Sprintf("bin %d [%d,%d %dx%d]", r.Bin, r.X, r.Y, r.W, r.H)
}
