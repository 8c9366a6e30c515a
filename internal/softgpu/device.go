// Package softgpu is an in-memory atlas.Device. Targets are RGBA8 images and copies
// are exact, which makes it suitable for checking that content survives migration.
package softgpu

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/garethgeorge/atlaspack/internal/atlas"
)

var (
	ErrDestroyed   = errors.New("target was destroyed")
	ErrForeign     = errors.New("target belongs to another device")
	ErrBadRegion   = errors.New("copy region out of bounds")
	ErrSizeLimited = errors.New("target size exceeds device limit")
)

// Texture is a target created by a Device.
type Texture struct {
	dev       *Device
	id        int
	img       *image.RGBA
	destroyed bool
}

func (t *Texture) Width() int  { return t.img.Rect.Dx() }
func (t *Texture) Height() int { return t.img.Rect.Dy() }

// ID is unique per device, in creation order.
func (t *Texture) ID() int { return t.id }

// Pixels returns the raw RGBA bytes, row by row.
func (t *Texture) Pixels() []byte {
	return t.img.Pix
}

func (t *Texture) At(x, y int) color.RGBA {
	return t.img.RGBAAt(x, y)
}

func (t *Texture) Set(x, y int, c color.RGBA) {
	t.img.SetRGBA(x, y, c)
}

// Fill paints r with c, clipped to the texture.
func (t *Texture) Fill(r atlas.Region, c color.RGBA) {
	rect := image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
	draw.Draw(t.img, rect, image.NewUniform(c), image.Point{}, draw.Src)
}

func (t *Texture) String() string {
	return fmt.Sprintf("texture#%d(%dx%d)", t.id, t.Width(), t.Height())
}

// Device counts the work done on it so tests can assert on target lifetimes.
type Device struct {
	maxSize int
	nextID  int
	live    int
	created int
	copies  int
}

// New returns a device refusing targets larger than maxSize per axis; zero means
// no limit.
func New(maxSize int) *Device {
	return &Device{maxSize: maxSize}
}

func (d *Device) CreateTarget(w, h int) (atlas.Target, error) {
	return d.NewTexture(w, h)
}

// NewTexture is CreateTarget returning the concrete type.
func (d *Device) NewTexture(w, h int) (*Texture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("create %dx%d target: %w", w, h, ErrBadRegion)
	}
	if d.maxSize > 0 && (w > d.maxSize || h > d.maxSize) {
		return nil, fmt.Errorf("create %dx%d target: %w", w, h, ErrSizeLimited)
	}
	d.nextID++
	d.live++
	d.created++
	return &Texture{dev: d, id: d.nextID, img: image.NewRGBA(image.Rect(0, 0, w, h))}, nil
}

func (d *Device) CopyRegion(src atlas.Target, srcRect atlas.Region, dst atlas.Target, dstRect atlas.Region) error {
	s, err := d.own(src)
	if err != nil {
		return fmt.Errorf("copy source: %w", err)
	}
	t, err := d.own(dst)
	if err != nil {
		return fmt.Errorf("copy destination: %w", err)
	}
	if srcRect.W != dstRect.W || srcRect.H != dstRect.H {
		return fmt.Errorf("copy %v to %v: %w", srcRect, dstRect, ErrBadRegion)
	}
	if !inside(s, srcRect) || !inside(t, dstRect) {
		return fmt.Errorf("copy %v of %v to %v of %v: %w", srcRect, s, dstRect, t, ErrBadRegion)
	}
	dr := image.Rect(dstRect.X, dstRect.Y, dstRect.X+dstRect.W, dstRect.Y+dstRect.H)
	draw.Draw(t.img, dr, s.img, image.Pt(srcRect.X, srcRect.Y), draw.Src)
	d.copies++
	return nil
}

func (d *Device) DestroyTarget(target atlas.Target) error {
	t, err := d.own(target)
	if err != nil {
		return fmt.Errorf("destroy: %w", err)
	}
	t.destroyed = true
	d.live--
	return nil
}

// Live is the number of targets created and not yet destroyed.
func (d *Device) Live() int { return d.live }

func (d *Device) Created() int { return d.created }

func (d *Device) Copies() int { return d.copies }

func (d *Device) own(target atlas.Target) (*Texture, error) {
	t, ok := target.(*Texture)
	if !ok || t.dev != d {
		return nil, ErrForeign
	}
	if t.destroyed {
		return nil, ErrDestroyed
	}
	return t, nil
}

func inside(t *Texture, r atlas.Region) bool {
	return r.X >= 0 && r.Y >= 0 && r.W >= 0 && r.H >= 0 &&
		r.X+r.W <= t.Width() && r.Y+r.H <= t.Height()
}
