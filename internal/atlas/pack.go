package atlas

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/garethgeorge/atlaspack/internal/packer"
)

// PixelSource is implemented by targets whose content can be read back. PackTextures
// uses it to fold textures with identical pixels into one slot.
type PixelSource interface {
	Pixels() []byte
}

// Packed is the result of PackTextures. UVs[i] locates textures[i] in Target.
type Packed struct {
	Target Target
	UVs    []UVRect
}

type packRef struct {
	tex     Target
	mapping []int
	store   packer.Rect
}

// PackTextures copies textures into a single new target of at most maxSize x maxSize
// pixels, larger textures first. Duplicate textures share one slot. Each UV
// rectangle is shrunk by border texels, measured against the power of two size
// covering the packed target, to keep filtering from bleeding across slots.
// Targets must be comparable, as pointer types are.
func PackTextures(dev Device, textures []Target, maxSize int, border float64) (*Packed, error) {
	refs := dedupe(textures)
	slices.SortStableFunc(refs, func(a, b *packRef) int {
		return cmp.Compare(b.tex.Width()+b.tex.Height(), a.tex.Width()+a.tex.Height())
	})

	p := packer.New(maxSize, maxSize)
	for _, ref := range refs {
		r, err := p.Pack(ref.tex.Width(), ref.tex.Height())
		if err != nil {
			return nil, fmt.Errorf("pack %dx%d texture: %w", ref.tex.Width(), ref.tex.Height(), err)
		}
		if r.Bin != 0 {
			return nil, fmt.Errorf("%w: textures do not fit in %dx%d", ErrTooLarge, maxSize, maxSize)
		}
		ref.store = r
	}

	bin := p.Bin(0)
	if bin.IsEmpty() {
		return &Packed{UVs: make([]UVRect, len(textures))}, nil
	}
	dst, err := dev.CreateTarget(bin.W, bin.H)
	if err != nil {
		return nil, fmt.Errorf("create packed texture %dx%d: %w", bin.W, bin.H, err)
	}

	bw, bh := float64(bin.W), float64(bin.H)
	sw := border / float64(packer.NearPow2Geq(bin.W))
	sh := border / float64(packer.NearPow2Geq(bin.H))
	uvs := make([]UVRect, len(textures))
	for _, ref := range refs {
		r := ref.store
		src := Region{W: r.W, H: r.H}
		if err := dev.CopyRegion(ref.tex, src, dst, Region{X: r.X, Y: r.Y, W: r.W, H: r.H}); err != nil {
			_ = dev.DestroyTarget(dst)
			return nil, fmt.Errorf("copy texture into %v: %w", r, err)
		}
		uv := UVRect{
			U0: float64(r.X)/bw + sw,
			V0: float64(r.Y)/bh + sh,
			U1: float64(r.X+r.W)/bw - sw,
			V1: float64(r.Y+r.H)/bh - sh,
		}
		for _, i := range ref.mapping {
			uvs[i] = uv
		}
	}
	return &Packed{Target: dst, UVs: uvs}, nil
}

// dedupe groups textures by identity, then by pixel content where it can be read.
func dedupe(textures []Target) []*packRef {
	var refs []*packRef
	byTarget := make(map[Target]*packRef, len(textures))
	byHash := make(map[uint64][]*packRef)
	for i, tex := range textures {
		if ref, ok := byTarget[tex]; ok {
			ref.mapping = append(ref.mapping, i)
			continue
		}
		var sum uint64
		var pixels []byte
		if src, ok := tex.(PixelSource); ok {
			pixels = src.Pixels()
			sum = xxhash.Sum64(pixels)
			if ref := findSame(byHash[sum], tex, pixels); ref != nil {
				ref.mapping = append(ref.mapping, i)
				byTarget[tex] = ref
				continue
			}
		}
		ref := &packRef{tex: tex, mapping: []int{i}}
		refs = append(refs, ref)
		byTarget[tex] = ref
		if pixels != nil {
			byHash[sum] = append(byHash[sum], ref)
		}
	}
	return refs
}

func findSame(candidates []*packRef, tex Target, pixels []byte) *packRef {
	for _, ref := range candidates {
		if ref.tex.Width() == tex.Width() && ref.tex.Height() == tex.Height() &&
			bytes.Equal(ref.tex.(PixelSource).Pixels(), pixels) {
			return ref
		}
	}
	return nil
}
