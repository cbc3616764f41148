// Package transforms provides sample transforms that act on a selection of
// keys, so that one random draw (a crop offset, a flip) is shared by every
// field of a sample.
package transforms

import (
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"

	"github.com/evilmagics/kitti/internal/sample"
	"github.com/evilmagics/kitti/internal/utils"
)

// ApplyToFeatures runs t once on the sub-sample made of keys (every key
// when none is given) and merges the result back into the sample. Keys not
// selected are left untouched. Because t receives all the selected fields
// in one call, any random choice it makes applies to all of them.
func ApplyToFeatures(t sample.Transform, keys ...string) sample.Transform {
	return func(s sample.Sample) (sample.Sample, error) {
		selected := keys
		if len(selected) == 0 {
			selected = s.Keys()
		}

		sub, missing := s.Subset(selected...)
		if len(missing) > 0 {
			return nil, errors.Wrapf(utils.ErrConsistency, "sample has no features %v", missing)
		}

		out, err := t(sub)
		if err != nil {
			return nil, err
		}
		return s.Merge(out), nil
	}
}

// AddFeatures runs t on the sample and adds the fields it returns, keeping
// the original ones. Fields returned by t replace originals with the same
// key.
func AddFeatures(t sample.Transform) sample.Transform {
	return func(s sample.Sample) (sample.Sample, error) {
		added, err := t(s.Clone())
		if err != nil {
			return nil, err
		}
		return s.Merge(added), nil
	}
}

// ValueFunc transforms a single field value.
type ValueFunc func(key string, v any, rng *rand.Rand) (any, error)

// RandState selects how Each seeds fn across the keys of one call.
type RandState int

const (
	// SameRandState gives every key a generator in the same state, so
	// random decisions repeat identically for each field.
	SameRandState RandState = iota
	// Independent shares one generator across keys.
	Independent
)

// Each adapts a per-value function into a transform. Keys are visited in
// lexical order. Every call draws a fresh seed from a generator seeded with
// seed; the generator is safe for concurrent use.
func Each(fn ValueFunc, seed uint64, state RandState) sample.Transform {
	src := newSource(seed)

	return func(s sample.Sample) (sample.Sample, error) {
		callSeed := src.next()
		shared := rand.New(rand.NewPCG(callSeed, callSeed))

		out := make(sample.Sample, len(s))
		for _, k := range s.Keys() {
			rng := shared
			if state == SameRandState {
				rng = rand.New(rand.NewPCG(callSeed, callSeed))
			}
			v, err := fn(k, s[k], rng)
			if err != nil {
				return nil, errors.WithMessagef(err, "feature %s", k)
			}
			out[k] = v
		}
		return out, nil
	}
}

type source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSource(seed uint64) *source {
	return &source{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *source) next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Uint64()
}

func (s *source) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
