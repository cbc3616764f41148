package datasets

import (
	"context"
	"fmt"
	"slices"
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

// Sample keys of the raw dataset besides cam_0X and cam_0X_calib.
const (
	KeyLidarData    = "lidar_data"
	KeyLidarToCam00 = "lidar_to_cam_00"
	KeyIMUData      = "imu_data"
	KeyIMUToLidar   = "imu_to_lidar"
)

// CamKey is the sample key of the frame of camera cam.
func CamKey(cam int) string { return fmt.Sprintf("cam_%02d", cam) }

// CalibKey is the sample key of the calibration of camera cam.
func CalibKey(cam int) string { return CamKey(cam) + "_calib" }

// RawOptions configures the raw sync+rect dataset.
//
// Samples hold cam_0X frames for Cams, cam_0X_calib (*readers.CamCalib)
// for Calibs, lidar_data (N x 4) with lidar_to_cam_00 (4 x 4) unless Lidar
// is none, and imu_data (*readers.IMUData) with imu_to_lidar (4 x 4) when
// IMU is set.
type RawOptions struct {
	// Cams defaults to the left color camera, 2.
	Cams []int
	// Calibs defaults to cameras 0 and 2; pass an empty slice for none.
	Calibs []int
	IMU    bool
	// Lidar defaults to projective.
	Lidar      readers.LidarMode
	Previous   Previous
	Transform  sample.Transform
	Download   bool
	Fs         afero.Fs
	Scaffolder *services.Scaffolder
}

func (o *RawOptions) validate() error {
	if o.Cams == nil {
		o.Cams = []int{2}
	}
	if o.Calibs == nil {
		o.Calibs = []int{0, 2}
	}
	if o.Lidar == "" {
		o.Lidar = readers.LidarProjective
	}
	if !o.Lidar.Valid() {
		return errors.Wrapf(utils.ErrConfiguration, "lidar mode %q not in none, projective, reflectance", o.Lidar)
	}
	for _, c := range slices.Concat(o.Cams, o.Calibs) {
		if c < 0 || c > 3 {
			return errors.Wrapf(utils.ErrConfiguration, "camera %d not in 0-3", c)
		}
	}
	return o.Previous.validate()
}

// NewRaw indexes the raw sync+rect dataset at root by the frames of camera
// 00.
func NewRaw(ctx context.Context, root string, opts RawOptions) (Dataset, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	c := newCommon(opts.Fs, opts.Scaffolder)

	if err := c.scaffolder.Ensure(ctx, scaffold.SyncRectified, root, opts.Download); err != nil {
		return nil, err
	}

	frames, err := walk(c.fs, root, func(p string) bool {
		return strings.Contains(p, "/image_00/data/") && isImageFile(p)
	})
	if err != nil {
		return nil, err
	}

	b := rawBuilder{root: root, opts: opts}
	entries := make([]entry, 0, len(frames))
	for _, f := range frames {
		e, err := b.frame(f)
		if err != nil {
			return nil, err
		}
		if err := e.check(c.fs); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	log.Info().Str("dataset", string(scaffold.SyncRectified)).Int("samples", len(entries)).Msg("Dataset indexed")
	return newIndex(c.fs, entries, b.template(), opts.Previous, opts.Transform), nil
}

type rawBuilder struct {
	root string
	opts RawOptions
}

func (b rawBuilder) frame(cam00 string) (entry, error) {
	drive := utils.FindDrive(cam00)
	idx, err := utils.FrameID(cam00)
	if drive == "" || err != nil {
		return entry{}, errors.Wrapf(utils.ErrConsistency, "unexpected frame path %s", cam00)
	}
	date := utils.FindDate(drive)

	var fields []field
	for _, cam := range b.opts.Cams {
		fields = append(fields, field{key: CamKey(cam), kind: kindImage, path: utils.RawImagePath(b.root, drive, cam, idx)})
	}
	for _, cam := range b.opts.Calibs {
		fields = append(fields, field{
			key:  CalibKey(cam),
			kind: kindCamCalib,
			path: utils.CalibPath(b.root, date, readers.CamToCamFile),
			cam:  cam,
		})
	}
	if b.opts.Lidar != readers.LidarNone {
		fields = append(fields,
			field{
				key:   KeyLidarData,
				kind:  kindPointCloud,
				path:  utils.RawDataPath(b.root, drive, "velodyne_points", ".bin", idx),
				lidar: b.opts.Lidar,
			},
			field{key: KeyLidarToCam00, kind: kindRigid, path: utils.CalibPath(b.root, date, readers.VeloToCamFile)},
		)
	}
	if b.opts.IMU {
		fields = append(fields,
			field{key: KeyIMUData, kind: kindIMU, path: utils.RawDataPath(b.root, drive, "oxts", ".txt", idx)},
			field{key: KeyIMUToLidar, kind: kindRigid, path: utils.CalibPath(b.root, date, readers.ImuToVeloFile)},
		)
	}
	return entry{anchor: cam00, fields: fields}, nil
}

func (b rawBuilder) template() entry {
	e, _ := b.frame(utils.RawImagePath(b.root, "2011_01_01_drive_0000_sync", 0, 0))
	return e
}
