// Package array holds the dense float32 arrays and boolean masks that
// samples and metrics operate on. Images and depth maps are stored row major
// in height, width, channel order.
package array

import (
	"fmt"
	"slices"

	"github.com/evilmagics/kitti/internal/utils"
)

// Array is a dense, row major float32 n-d array.
type Array struct {
	Shape []int
	Data  []float32
}

// ShapeMismatchError reports two operands whose shapes differ.
type ShapeMismatchError struct {
	Expected []int
	Actual   []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: expected %v, got %v", e.Expected, e.Actual)
}

func (e *ShapeMismatchError) Unwrap() error { return utils.ErrShapeMismatch }

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// New allocates a zero filled array.
func New(shape ...int) *Array {
	return &Array{Shape: slices.Clone(shape), Data: make([]float32, numel(shape))}
}

// FromSlice wraps data with the given shape.
func FromSlice(data []float32, shape ...int) (*Array, error) {
	if numel(shape) != len(data) {
		return nil, &ShapeMismatchError{Expected: shape, Actual: []int{len(data)}}
	}
	return &Array{Shape: slices.Clone(shape), Data: data}, nil
}

func (a *Array) Len() int { return len(a.Data) }

func (a *Array) Rank() int { return len(a.Shape) }

// SameShape reports whether b has exactly the shape of a.
func (a *Array) SameShape(b *Array) bool {
	return slices.Equal(a.Shape, b.Shape)
}

// CheckShape returns a ShapeMismatchError when shape differs from a's.
func (a *Array) CheckShape(shape []int) error {
	if !slices.Equal(a.Shape, shape) {
		return &ShapeMismatchError{Expected: a.Shape, Actual: shape}
	}
	return nil
}

func (a *Array) Clone() *Array {
	return &Array{Shape: slices.Clone(a.Shape), Data: slices.Clone(a.Data)}
}

// HWC returns height, width and channels of an image-like array. Rank 2
// arrays are treated as single channel.
func (a *Array) HWC() (h, w, c int, err error) {
	switch len(a.Shape) {
	case 2:
		return a.Shape[0], a.Shape[1], 1, nil
	case 3:
		return a.Shape[0], a.Shape[1], a.Shape[2], nil
	}
	return 0, 0, 0, fmt.Errorf("%w: expected rank 2 or 3 array, got shape %v", utils.ErrShapeMismatch, a.Shape)
}

// At returns the element at the given index.
func (a *Array) At(idx ...int) float32 {
	return a.Data[a.offset(idx)]
}

func (a *Array) Set(v float32, idx ...int) {
	a.Data[a.offset(idx)] = v
}

func (a *Array) offset(idx []int) int {
	off, stride := 0, 1
	for i := len(a.Shape) - 1; i >= 0; i-- {
		off += idx[i] * stride
		stride *= a.Shape[i]
	}
	return off
}

// Crop returns the spatial window [top, top+h) x [left, left+w) of an
// image-like array as a new array.
func (a *Array) Crop(top, left, h, w int) (*Array, error) {
	ah, aw, c, err := a.HWC()
	if err != nil {
		return nil, err
	}
	if top < 0 || left < 0 || top+h > ah || left+w > aw {
		return nil, fmt.Errorf("%w: crop %dx%d at (%d,%d) outside %dx%d", utils.ErrShapeMismatch, h, w, top, left, ah, aw)
	}

	shape := slices.Clone(a.Shape)
	shape[0], shape[1] = h, w
	out := New(shape...)
	for y := 0; y < h; y++ {
		src := ((top+y)*aw + left) * c
		copy(out.Data[y*w*c:(y+1)*w*c], a.Data[src:src+w*c])
	}
	return out, nil
}

func (a *Array) String() string {
	return fmt.Sprintf("Array%v", a.Shape)
}
