package transforms

import (
	"github.com/pkg/errors"

	"github.com/evilmagics/kitti/internal/array"
	"github.com/evilmagics/kitti/internal/sample"
	"github.com/evilmagics/kitti/internal/utils"
)

// Window is a crop rectangle in pixel coordinates.
type Window struct {
	Top, Left, Height, Width int
}

// spatialSize returns the common height and width of the arrays in s.
func spatialSize(s sample.Sample) (h, w int, err error) {
	first := ""
	for _, k := range s.Keys() {
		a, ok := s[k].(*array.Array)
		if !ok {
			continue
		}
		ah, aw, _, err := a.HWC()
		if err != nil {
			return 0, 0, errors.WithMessagef(err, "feature %s", k)
		}
		if first == "" {
			first, h, w = k, ah, aw
			continue
		}
		if ah != h || aw != w {
			return 0, 0, errors.Wrapf(utils.ErrConsistency, "feature %s is %dx%d but %s is %dx%d", k, ah, aw, first, h, w)
		}
	}
	if first == "" {
		return 0, 0, errors.Wrap(utils.ErrConsistency, "no array feature to crop")
	}
	return h, w, nil
}

func cropAll(s sample.Sample, win Window) (sample.Sample, error) {
	out := s.Clone()
	for k, v := range s {
		a, ok := v.(*array.Array)
		if !ok {
			continue
		}
		c, err := a.Crop(win.Top, win.Left, win.Height, win.Width)
		if err != nil {
			return nil, errors.WithMessagef(err, "feature %s", k)
		}
		out[k] = c
	}
	return out, nil
}

// RandomCrop crops every array of the sample with a single random window
// of size h x w. Non array values pass through. Arrays must share their
// spatial size.
func RandomCrop(h, w int, seed uint64) sample.Transform {
	src := newSource(seed)

	return func(s sample.Sample) (sample.Sample, error) {
		sh, sw, err := spatialSize(s)
		if err != nil {
			return nil, err
		}
		if h > sh || w > sw {
			return nil, errors.Wrapf(utils.ErrShapeMismatch, "crop %dx%d larger than %dx%d", h, w, sh, sw)
		}
		win := Window{Top: src.intN(sh - h + 1), Left: src.intN(sw - w + 1), Height: h, Width: w}
		return cropAll(s, win)
	}
}

// CenterCrop crops every array of the sample around its center.
func CenterCrop(h, w int) sample.Transform {
	return func(s sample.Sample) (sample.Sample, error) {
		sh, sw, err := spatialSize(s)
		if err != nil {
			return nil, err
		}
		if h > sh || w > sw {
			return nil, errors.Wrapf(utils.ErrShapeMismatch, "crop %dx%d larger than %dx%d", h, w, sh, sw)
		}
		return cropAll(s, Window{Top: (sh - h) / 2, Left: (sw - w) / 2, Height: h, Width: w})
	}
}

// BottomCrop keeps the lowest h rows, horizontally centered. KITTI depth
// ground truth is empty in the upper part of the frame, so evaluation
// protocols commonly crop this way.
func BottomCrop(h, w int) sample.Transform {
	return func(s sample.Sample) (sample.Sample, error) {
		sh, sw, err := spatialSize(s)
		if err != nil {
			return nil, err
		}
		if h > sh || w > sw {
			return nil, errors.Wrapf(utils.ErrShapeMismatch, "crop %dx%d larger than %dx%d", h, w, sh, sw)
		}
		return cropAll(s, Window{Top: sh - h, Left: (sw - w) / 2, Height: h, Width: w})
	}
}
