package transforms

import (
	"math/rand/v2"

	"github.com/evilmagics/kitti/internal/array"
	"github.com/evilmagics/kitti/internal/sample"
)

// RandomHorizontalFlip mirrors the arrays of a sample with probability p.
// The decision is drawn per key from generators in the same state, so either
// every field is flipped or none is.
func RandomHorizontalFlip(p float64, seed uint64) sample.Transform {
	return Each(func(_ string, v any, rng *rand.Rand) (any, error) {
		flip := rng.Float64() < p
		a, ok := v.(*array.Array)
		if !ok || !flip {
			return v, nil
		}
		return flipHorizontal(a)
	}, seed, SameRandState)
}

func flipHorizontal(a *array.Array) (*array.Array, error) {
	h, w, c, err := a.HWC()
	if err != nil {
		return nil, err
	}
	out := array.New(a.Shape...)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := (y*w + x) * c
			dst := (y*w + (w - 1 - x)) * c
			copy(out.Data[dst:dst+c], a.Data[src:src+c])
		}
	}
	return out, nil
}
