package scaffold

import (
	_ "embed"
	"path"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/evilmagics/kitti/internal/utils"
)

// BaseURL is the public bucket every KITTI archive is served from.
const BaseURL = "https://s3.eu-central-1.amazonaws.com/avg-kitti/"

// Folders the depth selection archive unpacks under depth_selection/.
var SelectionFolders = []string{
	"test_depth_completion_anonymous",
	"test_depth_prediction_anonymous",
	"val_selection_cropped",
}

//go:embed drives.yaml
var drivesYAML []byte

// DriveList holds the raw drives per recording date, the drives held out
// for validation and the raw drives without depth annotations, as
// "<date>_drive_<nnnn>_sync" names.
type DriveList struct {
	Drives     map[string][]int `yaml:"drives"`
	Validation []string         `yaml:"validation"`
	RawOnly    []string         `yaml:"raw_only"`
}

// ParseDriveList decodes a drive list in the format of the embedded one.
func ParseDriveList(b []byte) (*DriveList, error) {
	dl := new(DriveList)
	if err := yaml.Unmarshal(b, dl); err != nil {
		return nil, errors.Wrapf(utils.ErrConfiguration, "drive list: %v", err)
	}
	return dl, nil
}

// Dates returns the recording dates in order.
func (dl *DriveList) Dates() []string {
	dates := make([]string, 0, len(dl.Drives))
	for d := range dl.Drives {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	return dates
}

// Names returns every drive in date then drive order.
func (dl *DriveList) Names() []string {
	var out []string
	for _, date := range dl.Dates() {
		for _, n := range dl.Drives[date] {
			out = append(out, utils.DriveName(date, n))
		}
	}
	return out
}

func (dl *DriveList) IsValidation(drive string) bool {
	return slices.Contains(dl.Validation, drive)
}

func (dl *DriveList) IsRawOnly(drive string) bool {
	return slices.Contains(dl.RawOnly, drive)
}

// Split returns the drives of the depth benchmarks split: validation
// drives for val, every other annotated drive for train.
func (dl *DriveList) Split(split utils.Split) []string {
	var out []string
	for _, d := range dl.Names() {
		if dl.IsRawOnly(d) {
			continue
		}
		val := dl.IsValidation(d)
		if (split == utils.SplitVal && val) || (split == utils.SplitTrain && !val) {
			out = append(out, d)
		}
	}
	return out
}

// RawDescriptor describes the raw sync+rect layout: one calibration
// archive per date and one archive per drive.
func RawDescriptor(dl *DriveList) *Descriptor {
	d := &Descriptor{Name: SyncRectified}
	for _, date := range dl.Dates() {
		d.Archives = append(d.Archives, Archive{
			URL: BaseURL + "raw_data/" + date + "_calib.zip",
			Provides: []string{
				path.Join(date, "calib_cam_to_cam.txt"),
				path.Join(date, "calib_imu_to_velo.txt"),
				path.Join(date, "calib_velo_to_cam.txt"),
			},
		})
	}
	for _, drive := range dl.Names() {
		id := drive[:len(drive)-len("_sync")]
		d.Archives = append(d.Archives, Archive{
			URL:      BaseURL + "raw_data/" + id + "/" + drive + ".zip",
			Provides: []string{path.Join(utils.FindDate(drive), drive)},
		})
	}
	return d
}

func projDepth(dl *DriveList, kind string) []string {
	var out []string
	for _, split := range []utils.Split{utils.SplitTrain, utils.SplitVal} {
		for _, drive := range dl.Split(split) {
			out = append(out, path.Join(string(split), drive, "proj_depth", kind))
		}
	}
	return out
}

// DepthDescriptor describes the depth completion and prediction layout,
// which both benchmarks share.
func DepthDescriptor(name Name, dl *DriveList) *Descriptor {
	selection := Archive{URL: BaseURL + "data_depth_selection.zip"}
	for _, f := range SelectionFolders {
		selection.Provides = append(selection.Provides, f)
		selection.Moves = append(selection.Moves, Move{From: path.Join("depth_selection", f), To: f})
	}

	return &Descriptor{
		Name: name,
		Archives: []Archive{
			selection,
			{URL: BaseURL + "data_depth_velodyne.zip", Provides: projDepth(dl, "velodyne_raw")},
			{URL: BaseURL + "data_depth_annotated.zip", Provides: projDepth(dl, "groundtruth")},
		},
	}
}

// Build returns the registry of every KITTI layout for a drive list.
func Build(dl *DriveList) *Registry {
	return NewRegistry(
		RawDescriptor(dl),
		DepthDescriptor(DepthCompletion, dl),
		DepthDescriptor(DepthPrediction, dl),
	)
}

var defaultDrives = sync.OnceValue(func() *DriveList {
	dl, err := ParseDriveList(drivesYAML)
	if err != nil {
		panic(err)
	}
	return dl
})

var defaultRegistry = sync.OnceValue(func() *Registry { return Build(defaultDrives()) })

// DefaultDrives returns the embedded drive list.
func DefaultDrives() *DriveList { return defaultDrives() }

// Default returns the process wide registry built from the embedded drive
// list.
func Default() *Registry { return defaultRegistry() }
