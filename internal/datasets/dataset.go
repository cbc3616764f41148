// Package datasets indexes the KITTI layouts and decodes one sample per
// access. Datasets are immutable after construction and safe for
// concurrent Get calls.
package datasets

import (
	"math/rand/v2"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/afero"

	"github.com/evilmagics/kitti/internal/readers"
	"github.com/evilmagics/kitti/internal/sample"
	"github.com/evilmagics/kitti/internal/services"
	"github.com/evilmagics/kitti/internal/utils"
)

// Key suffixes of the optional sample fields.
const (
	PreviousSuffix = "_previous"
	RightSuffix    = "_right"
)

type Dataset interface {
	Len() int
	Get(i int) (sample.Sample, error)
	// Fields lists the keys of every sample, before the transform.
	Fields() []string
}

// Previous selects an earlier frame of the same drive. Min == Max > 0 is a
// fixed offset, Min < Max draws an offset in [Min, Max] on each access and
// the zero value disables it.
type Previous struct {
	Min int
	Max int
}

// PreviousFrame is a fixed offset of n frames.
func PreviousFrame(n int) Previous { return Previous{Min: n, Max: n} }

func (p Previous) Enabled() bool { return p.Max > 0 }

func (p Previous) validate() error {
	if p.Min < 0 || p.Max < 0 || p.Min > p.Max {
		return errors.Wrapf(utils.ErrConfiguration, "previous frame range [%d, %d]", p.Min, p.Max)
	}
	return nil
}

func (p Previous) offset() int {
	if p.Min == p.Max {
		return p.Min
	}
	return p.Min + rand.IntN(p.Max-p.Min+1)
}

type kind int

const (
	kindImage kind = iota
	kindDepth
	kindCamCalib
	kindCamIntrinsics
	kindIntrinsicsFile
	kindRigid
	kindIMU
	kindPointCloud
)

// field is one file of an indexed frame and the way to decode it.
type field struct {
	key   string
	kind  kind
	path  string
	cam   int
	lidar readers.LidarMode
}

func (f field) load(fs afero.Fs) (any, error) {
	switch f.kind {
	case kindImage:
		return readers.LoadImage(fs, f.path)
	case kindDepth:
		return readers.LoadDepth(fs, f.path)
	case kindCamCalib:
		return readers.LoadCamCalib(fs, f.path, f.cam)
	case kindCamIntrinsics:
		c, err := readers.LoadCamCalib(fs, f.path, f.cam)
		if err != nil {
			return nil, err
		}
		return c.RectifiedIntrinsics(), nil
	case kindIntrinsicsFile:
		return readers.LoadIntrinsics(fs, f.path)
	case kindRigid:
		return readers.LoadRigid(fs, f.path)
	case kindIMU:
		return readers.LoadIMU(fs, f.path)
	case kindPointCloud:
		return readers.LoadPointCloud(fs, f.path, f.lidar)
	}
	return nil, errors.Errorf("field %s: unknown kind %d", f.key, f.kind)
}

// exists checks a field file at construction time; images may be stored
// under another extension.
func (f field) exists(fs afero.Fs) bool {
	if f.kind == kindImage {
		_, err := readers.ResolveImage(fs, f.path)
		return err == nil
	}
	ok, _ := afero.Exists(fs, f.path)
	return ok
}

// right returns the same field for the right color camera.
func (f field) right() field {
	f.key += RightSuffix
	f.path = utils.ReplaceCam(f.path, 3)
	if f.cam == 2 {
		f.cam = 3
	}
	return f
}

// entry is an indexed frame. anchor is the file whose presence decides
// whether a previous frame is available.
type entry struct {
	anchor string
	fields []field
}

func (e entry) check(fs afero.Fs) error {
	for _, f := range e.fields {
		if !f.exists(fs) {
			return errors.Wrapf(utils.ErrConsistency, "%s: %s not found for frame %s", f.key, f.path, e.anchor)
		}
	}
	return nil
}

func (e entry) keys() []string {
	keys := make([]string, len(e.fields))
	for i, f := range e.fields {
		keys[i] = f.key
	}
	return keys
}

// index is the Dataset shared by every KITTI layout.
type index struct {
	fs        afero.Fs
	entries   []entry
	keys      []string
	previous  Previous
	transform sample.Transform
}

func newIndex(fs afero.Fs, entries []entry, template entry, previous Previous, t sample.Transform) *index {
	keys := template.keys()
	if previous.Enabled() {
		for _, k := range template.keys() {
			keys = append(keys, k+PreviousSuffix)
		}
	}
	slices.Sort(keys)
	return &index{fs: fs, entries: entries, keys: keys, previous: previous, transform: t}
}

func (x *index) Len() int { return len(x.entries) }

func (x *index) Fields() []string { return slices.Clone(x.keys) }

func (x *index) Get(i int) (sample.Sample, error) {
	if i < 0 || i >= len(x.entries) {
		return nil, errors.Wrapf(utils.ErrIndexOutOfRange, "index %d, length %d", i, len(x.entries))
	}
	e := x.entries[i]

	s, err := x.read(e.fields)
	if err != nil {
		return nil, err
	}
	if x.previous.Enabled() {
		prev, err := x.read(x.previousFields(e))
		if err != nil {
			return nil, err
		}
		s = s.Merge(prev.Suffixed(PreviousSuffix))
	}

	if x.transform != nil {
		return x.transform(s)
	}
	return s, nil
}

func (x *index) read(fields []field) (sample.Sample, error) {
	s := make(sample.Sample, len(fields))
	for _, f := range fields {
		v, err := f.load(x.fs)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s", f.key)
		}
		s[f.key] = v
	}
	return s, nil
}

// previousFields moves every per frame file of e to an earlier frame, or
// keeps the current frame when the anchor of the earlier one is missing.
func (x *index) previousFields(e entry) []field {
	cur, err := utils.FrameID(e.anchor)
	if err != nil {
		return e.fields
	}
	prev := max(0, cur-x.previous.offset())
	if ok, _ := afero.Exists(x.fs, utils.ReplaceFrame(e.anchor, prev)); !ok {
		prev = cur
	}

	out := make([]field, len(e.fields))
	for i, f := range e.fields {
		f.path = utils.ReplaceFrame(f.path, prev)
		out[i] = f
	}
	return out
}

// Batch reads the samples at indices with at most workers concurrent
// reads, keeping the order of indices. workers <= 0 uses GOMAXPROCS.
func Batch(ds Dataset, indices []int, workers int) ([]sample.Sample, error) {
	mapper := iter.Mapper[int, sample.Sample]{MaxGoroutines: workers}
	return mapper.MapErr(indices, func(i *int) (sample.Sample, error) {
		return ds.Get(*i)
	})
}

// common holds the options every dataset accepts.
type common struct {
	fs         afero.Fs
	scaffolder *services.Scaffolder
}

func newCommon(fs afero.Fs, s *services.Scaffolder) common {
	if fs == nil {
		if s != nil {
			fs = s.Fs()
		} else {
			fs = afero.NewOsFs()
		}
	}
	if s == nil {
		s = services.NewScaffolder(services.WithFs(fs))
	}
	return common{fs: fs, scaffolder: s}
}

// walk lists the files under root accepted by keep, sorted.
func walk(fs afero.Fs, root string, keep func(string) bool) ([]string, error) {
	var out []string
	err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && keep(p) {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(utils.ErrConsistency, "list %s: %v", root, err)
	}
	slices.Sort(out)
	return out, nil
}

func isImageFile(p string) bool {
	return strings.HasSuffix(p, ".png") || strings.HasSuffix(p, ".jpg")
}
