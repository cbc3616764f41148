package transforms

import (
	"image"
	"math/rand/v2"

	"golang.org/x/image/draw"

	"github.com/evilmagics/kitti/internal/array"
	"github.com/evilmagics/kitti/internal/sample"
)

// Resize scales every array of the sample to h x w with interp. Use
// draw.NearestNeighbor for sparse depth so that missing measurements are not
// blended with valid ones; it also keeps every value exactly. Other
// interpolators work on 16 bit planes spanning each channel's value range.
func Resize(h, w int, interp draw.Interpolator) sample.Transform {
	return Each(func(_ string, v any, _ *rand.Rand) (any, error) {
		a, ok := v.(*array.Array)
		if !ok {
			return v, nil
		}
		if interp == draw.NearestNeighbor {
			return resizeNearest(a, h, w)
		}
		return resize(a, h, w, interp)
	}, 0, Independent)
}

func resizeNearest(a *array.Array, h, w int) (*array.Array, error) {
	src, err := a.IndexImage()
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA64(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return a.Gather(dst)
}

func resize(a *array.Array, h, w int, interp draw.Interpolator) (*array.Array, error) {
	planes, ranges, err := a.Planes()
	if err != nil {
		return nil, err
	}
	scaled := make([]*image.Gray16, len(planes))
	for i, p := range planes {
		dst := image.NewGray16(image.Rect(0, 0, w, h))
		interp.Scale(dst, dst.Bounds(), p, p.Bounds(), draw.Src, nil)
		scaled[i] = dst
	}
	return array.FromPlanes(scaled, ranges, a.Rank())
}
