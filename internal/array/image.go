package array

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/evilmagics/kitti/internal/utils"
)

// DepthScale is the factor KITTI uses to store metric depth in 16 bit PNGs.
const DepthScale = 256.0

// Range is the value span of one plane. Plane values are mapped affinely
// from [Min, Max] onto [0, 65535].
type Range struct {
	Min, Max float64
}

func (r Range) encode(v float32) uint16 {
	if r.Max == r.Min {
		return 0
	}
	return uint16(math.Round((float64(v) - r.Min) / (r.Max - r.Min) * math.MaxUint16))
}

func (r Range) decode(q uint16) float32 {
	return float32(r.Min + float64(q)/math.MaxUint16*(r.Max-r.Min))
}

// Planes splits an image-like array into one 16 bit plane per channel
// together with the range each plane encodes. Values at the ends of a range
// survive the round trip exactly, others within half a step of
// (Max-Min)/65535. Non finite values are rejected.
func (a *Array) Planes() ([]*image.Gray16, []Range, error) {
	h, w, c, err := a.HWC()
	if err != nil {
		return nil, nil, err
	}
	ranges := make([]Range, c)
	for ch := range ranges {
		r := Range{Min: math.Inf(1), Max: math.Inf(-1)}
		for i := 0; i < h*w; i++ {
			v := float64(a.Data[i*c+ch])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, errors.Wrapf(utils.ErrConsistency, "non finite value %v in channel %d", v, ch)
			}
			r.Min, r.Max = math.Min(r.Min, v), math.Max(r.Max, v)
		}
		if h*w == 0 {
			r = Range{}
		}
		ranges[ch] = r
	}

	planes := make([]*image.Gray16, c)
	for ch := range planes {
		p := image.NewGray16(image.Rect(0, 0, w, h))
		for i := 0; i < h*w; i++ {
			q := ranges[ch].encode(a.Data[i*c+ch])
			p.Pix[2*i] = uint8(q >> 8)
			p.Pix[2*i+1] = uint8(q)
		}
		planes[ch] = p
	}
	return planes, ranges, nil
}

// FromPlanes is the inverse of Planes. rank selects between an HW (2) and an
// HWC (3) result; rank 2 requires a single plane.
func FromPlanes(planes []*image.Gray16, ranges []Range, rank int) (*Array, error) {
	if len(planes) == 0 || len(planes) != len(ranges) {
		return nil, &ShapeMismatchError{Expected: []int{len(ranges)}, Actual: []int{len(planes)}}
	}
	b := planes[0].Bounds()
	h, w, c := b.Dy(), b.Dx(), len(planes)

	out := newImage(h, w, c, rank)
	for ch, p := range planes {
		if p.Bounds().Dx() != w || p.Bounds().Dy() != h {
			return nil, &ShapeMismatchError{Expected: []int{h, w}, Actual: []int{p.Bounds().Dy(), p.Bounds().Dx()}}
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Data[(y*w+x)*c+ch] = ranges[ch].decode(p.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	}
	return out, nil
}

// IndexImage encodes the pixel index y*w+x of every pixel of an image-like
// array into an opaque RGBA64 image. Geometric operations that only move
// pixels, such as nearest neighbour scaling, can run on it and Gather the
// original values afterwards without any loss.
func (a *Array) IndexImage() (*image.RGBA64, error) {
	h, w, _, err := a.HWC()
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA64(image.Rect(0, 0, w, h))
	for i := 0; i < h*w; i++ {
		idx := uint64(i)
		px := img.Pix[8*i : 8*i+8]
		px[0], px[1] = uint8(idx>>40), uint8(idx>>32)
		px[2], px[3] = uint8(idx>>24), uint8(idx>>16)
		px[4], px[5] = uint8(idx>>8), uint8(idx)
		px[6], px[7] = 0xff, 0xff
	}
	return img, nil
}

// Gather builds an array shaped like idx from the pixels of a whose indices
// idx holds, as produced by IndexImage.
func (a *Array) Gather(idx *image.RGBA64) (*Array, error) {
	_, _, c, err := a.HWC()
	if err != nil {
		return nil, err
	}
	b := idx.Bounds()
	h, w := b.Dy(), b.Dx()
	out := newImage(h, w, c, a.Rank())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := idx.Pix[idx.PixOffset(b.Min.X+x, b.Min.Y+y):]
			src := int(uint64(px[0])<<40 | uint64(px[1])<<32 | uint64(px[2])<<24 |
				uint64(px[3])<<16 | uint64(px[4])<<8 | uint64(px[5]))
			if (src+1)*c > len(a.Data) {
				return nil, errors.Wrapf(utils.ErrIndexOutOfRange, "pixel index %d", src)
			}
			copy(out.Data[(y*w+x)*c:(y*w+x+1)*c], a.Data[src*c:(src+1)*c])
		}
	}
	return out, nil
}

func newImage(h, w, c, rank int) *Array {
	if rank == 2 && c == 1 {
		return New(h, w)
	}
	return New(h, w, c)
}
