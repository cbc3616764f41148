// Package scaffold describes the on-disk layouts of the KITTI datasets and
// the archives that produce them.
package scaffold

import (
	"path"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/evilmagics/kitti/internal/utils"
)

// Name identifies a scaffoldable dataset.
type Name string

const (
	SyncRectified   Name = "sync_rectified"
	DepthCompletion Name = "depth_completion"
	DepthPrediction Name = "depth_prediction"
)

var nameAliases = map[string]Name{
	"sync_rectified":   SyncRectified,
	"raw":              SyncRectified,
	"raw_data":         SyncRectified,
	"depth_completion": DepthCompletion,
	"completion":       DepthCompletion,
	"depth_prediction": DepthPrediction,
	"prediction":       DepthPrediction,
}

// ParseName resolves a dataset name or one of its aliases.
func ParseName(s string) (Name, error) {
	if n, ok := nameAliases[s]; ok {
		return n, nil
	}
	return "", errors.Wrapf(utils.ErrConfiguration, "unknown dataset %q", s)
}

// Move renames a path, relative to the dataset root, after extraction.
type Move struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Archive is one downloadable zip and the root relative paths it leaves
// behind once its moves are applied.
type Archive struct {
	URL      string   `yaml:"url" json:"url"`
	Provides []string `yaml:"provides" json:"provides"`
	Moves    []Move   `yaml:"moves,omitempty" json:"moves,omitempty"`
}

// File is the local name of the downloaded archive.
func (a Archive) File() string {
	return path.Base(a.URL)
}

// Sources returns the top level folders the archive's moves start from,
// which extraction creates and a completed move leaves empty.
func (a Archive) Sources() []string {
	var out []string
	for _, m := range a.Moves {
		top, _, _ := strings.Cut(path.Clean(m.From), "/")
		if !slices.Contains(out, top) {
			out = append(out, top)
		}
	}
	return out
}

type Descriptor struct {
	Name     Name      `yaml:"name" json:"name"`
	Archives []Archive `yaml:"archives" json:"archives"`
}

// Expected lists every root relative path a complete layout holds, in
// archive order and without duplicates.
func (d *Descriptor) Expected() []string {
	var out []string
	seen := map[string]bool{}
	for _, a := range d.Archives {
		for _, p := range a.Provides {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Registry maps dataset names to descriptors. It is not modified after
// construction.
type Registry struct {
	descriptors map[Name]*Descriptor
}

func NewRegistry(ds ...*Descriptor) *Registry {
	r := &Registry{descriptors: make(map[Name]*Descriptor, len(ds))}
	for _, d := range ds {
		r.descriptors[d.Name] = d
	}
	return r
}

// Get returns the descriptor of name; unknown names are configuration
// errors.
func (r *Registry) Get(name Name) (*Descriptor, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return nil, errors.Wrapf(utils.ErrConfiguration, "no scaffold descriptor for %q", name)
	}
	return d, nil
}

func (r *Registry) Names() []Name {
	names := make([]Name, 0, len(r.descriptors))
	for n := range r.descriptors {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
