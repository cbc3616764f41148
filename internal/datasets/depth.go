package datasets

import (
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/evilmagics/kitti/internal/readers"
	"github.com/evilmagics/kitti/internal/sample"
	"github.com/evilmagics/kitti/internal/scaffold"
	"github.com/evilmagics/kitti/internal/services"
	"github.com/evilmagics/kitti/internal/utils"
)

// Sample keys of the depth benchmarks.
const (
	KeyImage       = "img"
	KeyGroundTruth = "gt"
	KeyLidar       = "lidar"
	KeyIntrinsics  = "intrinsics"
)

// TestFolder holds the depth selection frames used as test subset.
const TestFolder = "val_selection_cropped"

// DepthOptions configures the depth completion and prediction datasets.
//
// Samples hold img (H x W x 3 camera frame), gt (H x W x 1 metres) and,
// for completion only, lidar (H x W x 1 projected velodyne metres). With
// LoadIntrinsics they also hold intrinsics (3 x 3). LoadStereo restricts
// the index to the left color camera and adds the same fields of the right
// camera with the _right suffix. An enabled Previous adds every field of
// the earlier frame with the _previous suffix.
type DepthOptions struct {
	// Subset is train, val, test or all (train and val); empty means train.
	Subset         utils.Split
	LoadStereo     bool
	LoadIntrinsics bool
	Previous       Previous
	Transform      sample.Transform
	// Download fetches missing archives during construction.
	Download   bool
	Fs         afero.Fs
	Scaffolder *services.Scaffolder
}

func (o *DepthOptions) validate() error {
	if o.Subset == "" {
		o.Subset = utils.SplitTrain
	}
	s := utils.FindSplit(string(o.Subset))
	if s == nil {
		return errors.Wrapf(utils.ErrConfiguration, "subset %q not in train, val, test, all", o.Subset)
	}
	o.Subset = *s
	if err := o.Previous.validate(); err != nil {
		return err
	}
	if o.Subset == utils.SplitTest && (o.LoadStereo || o.Previous.Enabled()) {
		return errors.Wrap(utils.ErrConfiguration, "stereo and previous frames are not available on the test subset")
	}
	return nil
}

// NewDepthCompletion indexes the depth completion benchmark: ground truth
// and projected velodyne maps under completionRoot, camera frames and
// calibrations under rawRoot.
func NewDepthCompletion(ctx context.Context, rawRoot, completionRoot string, opts DepthOptions) (Dataset, error) {
	return newDepth(ctx, scaffold.DepthCompletion, rawRoot, completionRoot, opts, true)
}

// NewDepthPrediction indexes the depth prediction benchmark, which shares
// the completion layout but has no lidar input.
func NewDepthPrediction(ctx context.Context, rawRoot, predictionRoot string, opts DepthOptions) (Dataset, error) {
	return newDepth(ctx, scaffold.DepthPrediction, rawRoot, predictionRoot, opts, false)
}

func newDepth(ctx context.Context, name scaffold.Name, rawRoot, root string, opts DepthOptions, withLidar bool) (Dataset, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	c := newCommon(opts.Fs, opts.Scaffolder)

	if err := c.scaffolder.Ensure(ctx, name, root, opts.Download); err != nil {
		return nil, err
	}
	if opts.Subset != utils.SplitTest {
		if err := c.scaffolder.Ensure(ctx, scaffold.SyncRectified, rawRoot, opts.Download); err != nil {
			return nil, err
		}
	}

	b := depthBuilder{rawRoot: rawRoot, root: root, opts: opts, withLidar: withLidar}
	var (
		entries []entry
		err     error
	)
	if opts.Subset == utils.SplitTest {
		entries, err = b.testEntries(c.fs)
	} else {
		entries, err = b.entries(c.fs)
	}
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := e.check(c.fs); err != nil {
			return nil, err
		}
	}

	log.Info().Str("dataset", string(name)).Str("subset", string(opts.Subset)).Int("samples", len(entries)).Msg("Dataset indexed")
	return newIndex(c.fs, entries, b.template(), opts.Previous, opts.Transform), nil
}

type depthBuilder struct {
	rawRoot   string
	root      string
	opts      DepthOptions
	withLidar bool
}

// frame builds the fields of the annotated frame gt.
func (b depthBuilder) frame(gt string) (entry, error) {
	drive := utils.FindDrive(gt)
	cam, ok := utils.FindCam(gt)
	idx, err := utils.FrameID(gt)
	if drive == "" || !ok || err != nil {
		return entry{}, errors.Wrapf(utils.ErrConsistency, "unexpected ground truth path %s", gt)
	}

	fields := []field{
		{key: KeyImage, kind: kindImage, path: utils.RawImagePath(b.rawRoot, drive, cam, idx)},
		{key: KeyGroundTruth, kind: kindDepth, path: gt},
	}
	if b.withLidar {
		fields = append(fields, field{
			key:  KeyLidar,
			kind: kindDepth,
			path: strings.Replace(gt, "/groundtruth/", "/velodyne_raw/", 1),
		})
	}
	if b.opts.LoadIntrinsics {
		fields = append(fields, field{
			key:  KeyIntrinsics,
			kind: kindCamIntrinsics,
			path: utils.CalibPath(b.rawRoot, utils.FindDate(drive), readers.CamToCamFile),
			cam:  cam,
		})
	}
	if b.opts.LoadStereo {
		for _, f := range fields {
			fields = append(fields, f.right())
		}
	}
	return entry{anchor: gt, fields: fields}, nil
}

func (b depthBuilder) entries(fs afero.Fs) ([]entry, error) {
	var out []entry
	for _, folder := range b.opts.Subset.Folders() {
		gts, err := walk(fs, path.Join(b.root, folder), func(p string) bool {
			if !strings.Contains(p, "/proj_depth/groundtruth/") || !strings.HasSuffix(p, ".png") {
				return false
			}
			cam, ok := utils.FindCam(p)
			return ok && (!b.opts.LoadStereo || cam == 2)
		})
		if err != nil {
			return nil, err
		}
		for _, gt := range gts {
			e, err := b.frame(gt)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// testEntries indexes the cropped selection, whose files are named
// <drive>_<folder>_<frame>_image_0X and live in one folder per field.
func (b depthBuilder) testEntries(fs afero.Fs) ([]entry, error) {
	dir := path.Join(b.root, TestFolder)
	gts, err := walk(fs, path.Join(dir, "groundtruth_depth"), func(p string) bool {
		return strings.HasSuffix(p, ".png")
	})
	if err != nil {
		return nil, err
	}

	out := make([]entry, 0, len(gts))
	for _, gt := range gts {
		name := path.Base(gt)
		sibling := func(folder string) string {
			return path.Join(dir, folder, strings.Replace(name, "groundtruth_depth", folder, 1))
		}

		fields := []field{
			{key: KeyImage, kind: kindImage, path: sibling("image")},
			{key: KeyGroundTruth, kind: kindDepth, path: gt},
		}
		if b.withLidar {
			fields = append(fields, field{key: KeyLidar, kind: kindDepth, path: sibling("velodyne_raw")})
		}
		if b.opts.LoadIntrinsics {
			p := path.Join(dir, "intrinsics", utils.ChangeFileExt(strings.Replace(name, "groundtruth_depth", "image", 1), ".txt"))
			fields = append(fields, field{key: KeyIntrinsics, kind: kindIntrinsicsFile, path: p})
		}
		out = append(out, entry{anchor: gt, fields: fields})
	}
	return out, nil
}

// template is the field layout of every entry, used for Fields on empty
// datasets too.
func (b depthBuilder) template() entry {
	gt := path.Join(b.root, "train", "2011_01_01_drive_0000_sync", "proj_depth", "groundtruth", "image_02", utils.FrameName(0)+".png")
	e, _ := b.frame(gt)
	return e
}
