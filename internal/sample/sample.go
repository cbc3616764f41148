// Package sample defines the dictionary shaped unit produced by every
// dataset and the transform function type applied to it.
package sample

import (
	"maps"
	"slices"
)

// Sample maps a field name (img, gt, lidar, img_right, cam_02_calib, ...)
// to its decoded value. Which keys are present is a function of the dataset
// configuration only.
type Sample map[string]any

// Keys returns the sample keys in lexical order.
func (s Sample) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns a shallow copy of s.
func (s Sample) Clone() Sample {
	return maps.Clone(s)
}

// Merge returns a copy of s updated with the entries of o.
func (s Sample) Merge(o Sample) Sample {
	out := make(Sample, len(s)+len(o))
	maps.Copy(out, s)
	maps.Copy(out, o)
	return out
}

// Subset returns the entries of s at keys and the keys that were not found.
func (s Sample) Subset(keys ...string) (Sample, []string) {
	var (
		out     = make(Sample, len(keys))
		missing []string
	)
	for _, k := range keys {
		v, ok := s[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		out[k] = v
	}
	return out, missing
}

// Suffixed returns a copy of s with suffix appended to every key.
func (s Sample) Suffixed(suffix string) Sample {
	out := make(Sample, len(s))
	for k, v := range s {
		out[k+suffix] = v
	}
	return out
}

// Transform maps a sample to a new one.
type Transform func(Sample) (Sample, error)

// Identity returns its input unchanged.
func Identity(s Sample) (Sample, error) { return s, nil }

// Compose chains transforms left to right. Nil transforms are skipped.
func Compose(ts ...Transform) Transform {
	return func(s Sample) (Sample, error) {
		var err error
		for _, t := range ts {
			if t == nil {
				continue
			}
			if s, err = t(s); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
}
