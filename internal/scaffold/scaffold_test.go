package scaffold

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evilmagics/kitti/internal/utils"
)

func TestDefaultDrives(t *testing.T) {
	dl := DefaultDrives()
	assert.Len(t, dl.Validation, 13)
	assert.Contains(t, dl.Names(), "2011_09_26_drive_0001_sync")

	val := dl.Split(utils.SplitVal)
	assert.Equal(t, dl.Validation, val)
	train := dl.Split(utils.SplitTrain)
	assert.Len(t, train, 138)
	assert.Len(t, dl.Names(), len(train)+len(val)+len(dl.RawOnly))
	assert.NotContains(t, train, "2011_09_26_drive_0002_sync")
	assert.NotContains(t, train, "2011_09_28_drive_0225_sync")
	assert.Contains(t, dl.Names(), "2011_09_28_drive_0225_sync")
}

func TestSplitSkipsRawOnlyDrives(t *testing.T) {
	dl := &DriveList{
		Drives:     map[string][]int{"2011_09_26": {1, 2, 3}},
		Validation: []string{"2011_09_26_drive_0002_sync"},
		RawOnly:    []string{"2011_09_26_drive_0003_sync"},
	}
	assert.Equal(t, []string{"2011_09_26_drive_0001_sync"}, dl.Split(utils.SplitTrain))
	assert.Equal(t, []string{"2011_09_26_drive_0002_sync"}, dl.Split(utils.SplitVal))

	d := DepthDescriptor(DepthCompletion, dl)
	assert.NotContains(t, d.Expected(), "train/2011_09_26_drive_0003_sync/proj_depth/groundtruth")
	assert.Len(t, RawDescriptor(dl).Archives, 1+3)
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	assert.Same(t, r, Default())
	assert.Equal(t, []Name{DepthCompletion, DepthPrediction, SyncRectified}, r.Names())

	raw, err := r.Get(SyncRectified)
	require.NoError(t, err)
	dl := DefaultDrives()
	assert.Len(t, raw.Archives, len(dl.Dates())+len(dl.Names()))
	assert.Equal(t, BaseURL+"raw_data/2011_09_26_calib.zip", raw.Archives[0].URL)
	assert.Contains(t, raw.Expected(), "2011_09_26/calib_cam_to_cam.txt")
	assert.Contains(t, raw.Expected(), "2011_09_26/2011_09_26_drive_0001_sync")

	var driveURL string
	for _, a := range raw.Archives {
		if a.File() == "2011_09_26_drive_0001_sync.zip" {
			driveURL = a.URL
		}
	}
	assert.Equal(t, BaseURL+"raw_data/2011_09_26_drive_0001/2011_09_26_drive_0001_sync.zip", driveURL)

	_, err = r.Get("kitti_odometry")
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestDepthDescriptor(t *testing.T) {
	dl := &DriveList{
		Drives:     map[string][]int{"2011_09_26": {1, 2}},
		Validation: []string{"2011_09_26_drive_0002_sync"},
	}
	d := DepthDescriptor(DepthCompletion, dl)
	require.Len(t, d.Archives, 3)

	sel := d.Archives[0]
	assert.Equal(t, "data_depth_selection.zip", sel.File())
	assert.Equal(t, SelectionFolders, sel.Provides)
	assert.Equal(t, Move{From: "depth_selection/val_selection_cropped", To: "val_selection_cropped"}, sel.Moves[2])

	assert.Equal(t, []string{
		"test_depth_completion_anonymous",
		"test_depth_prediction_anonymous",
		"val_selection_cropped",
		"train/2011_09_26_drive_0001_sync/proj_depth/velodyne_raw",
		"val/2011_09_26_drive_0002_sync/proj_depth/velodyne_raw",
		"train/2011_09_26_drive_0001_sync/proj_depth/groundtruth",
		"val/2011_09_26_drive_0002_sync/proj_depth/groundtruth",
	}, d.Expected())
}

func TestParseName(t *testing.T) {
	n, err := ParseName("raw")
	require.NoError(t, err)
	assert.Equal(t, SyncRectified, n)

	_, err = ParseName("odometry")
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestRegistryFileRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	dl := &DriveList{Drives: map[string][]int{"2011_09_28": {1}}}
	require.NoError(t, Build(dl).Save(fs, "/registry.yaml"))

	r, err := Load(fs, "/registry.yaml")
	require.NoError(t, err)
	d, err := r.Get(SyncRectified)
	require.NoError(t, err)
	assert.Equal(t, RawDescriptor(dl), d)

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("datasets:\n  - name: x\n"), 0o644))
	_, err = Load(fs, "/bad.yaml")
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := DepthDescriptor(DepthPrediction, &DriveList{})
	m := NewManifest(d)
	require.NoError(t, m.Save(fs, "/kitti"))

	got, err := LoadManifest(fs, "/kitti")
	require.NoError(t, err)
	assert.Equal(t, DepthPrediction, got.Name)
	assert.Equal(t, []string{"data_depth_selection.zip", "data_depth_velodyne.zip", "data_depth_annotated.zip"}, got.Archives)
	assert.WithinDuration(t, m.Created, got.Created, time.Second)
}
