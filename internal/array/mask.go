package array

import "slices"

// Mask selects the valid elements of an array of the same shape.
type Mask struct {
	Shape []int
	Data  []bool
}

// NewMask builds a mask where every element is valid.
func NewMask(shape ...int) *Mask {
	m := &Mask{Shape: slices.Clone(shape), Data: make([]bool, numel(shape))}
	for i := range m.Data {
		m.Data[i] = true
	}
	return m
}

// Where builds a mask from a predicate over the elements of a.
func Where(a *Array, pred func(float32) bool) *Mask {
	m := &Mask{Shape: slices.Clone(a.Shape), Data: make([]bool, len(a.Data))}
	for i, v := range a.Data {
		m.Data[i] = pred(v)
	}
	return m
}

// And combines two masks of the same shape.
func (m *Mask) And(o *Mask) (*Mask, error) {
	if !slices.Equal(m.Shape, o.Shape) {
		return nil, &ShapeMismatchError{Expected: m.Shape, Actual: o.Shape}
	}
	out := &Mask{Shape: slices.Clone(m.Shape), Data: make([]bool, len(m.Data))}
	for i := range m.Data {
		out.Data[i] = m.Data[i] && o.Data[i]
	}
	return out, nil
}

// Count returns the number of valid elements.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}
