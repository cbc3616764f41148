package readers

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gonum.org/v1/gonum/mat"

	"github.com/evilmagics/kitti/internal/array"
	"github.com/evilmagics/kitti/internal/utils"
)

// Calibration file names of a raw sync+rect date folder.
const (
	CamToCamFile  = "calib_cam_to_cam.txt"
	ImuToVeloFile = "calib_imu_to_velo.txt"
	VeloToCamFile = "calib_velo_to_cam.txt"
)

// CamCalib holds the calibration of a single camera as found in
// calib_cam_to_cam.txt.
type CamCalib struct {
	Cam int
	// ImageSize is width, height before rectification.
	ImageSize [2]int
	// Intrinsics is the 3x3 camera matrix K.
	Intrinsics *mat.Dense
	// Distortion holds k1, k2, p1, p2, k3.
	Distortion []float64
	// Extrinsics is the 4x4 [R|T] from the reference camera.
	Extrinsics *mat.Dense
	// RectImageSize is width, height after rectification.
	RectImageSize [2]int
	// RectRotation is the 4x4 homogeneous rectifying rotation.
	RectRotation *mat.Dense
	// Projection is the 3x4 projection matrix after rectification.
	Projection *mat.Dense
}

type calibValues map[string][]float64

func (v calibValues) get(key string, n int) ([]float64, error) {
	vals, ok := v[key]
	if !ok {
		return nil, errors.Wrapf(utils.ErrConsistency, "calibration key %s not found", key)
	}
	if len(vals) != n {
		return nil, errors.Wrapf(utils.ErrConsistency, "calibration key %s has %d values, expected %d", key, len(vals), n)
	}
	return vals, nil
}

func readCalibValues(fs afero.Fs, src string) (calibValues, error) {
	f, err := fs.Open(src)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", src)
	}
	defer f.Close()

	values := calibValues{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name, vector, ok := strings.Cut(scanner.Text(), ":")
		if !ok || name == "calib_time" {
			continue
		}
		fields := strings.Fields(vector)
		vals := make([]float64, len(fields))
		for i, s := range fields {
			if vals[i], err = strconv.ParseFloat(s, 64); err != nil {
				return nil, errors.Wrapf(utils.ErrConsistency, "%s: key %s: %v", src, name, err)
			}
		}
		values[name] = vals
	}
	return values, errors.Wrapf(scanner.Err(), "read %s", src)
}

func homogeneous(r, t []float64) *mat.Dense {
	rt := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rt.Set(i, j, r[i*3+j])
		}
		if t != nil {
			rt.Set(i, 3, t[i])
		}
	}
	rt.Set(3, 3, 1)
	return rt
}

func size(v []float64) [2]int {
	return [2]int{int(v[0]), int(v[1])}
}

// LoadCamCalib reads the calibration of camera cam (0..3) from a
// calib_cam_to_cam.txt file.
func LoadCamCalib(fs afero.Fs, src string, cam int) (*CamCalib, error) {
	if cam < 0 || cam > 3 {
		return nil, errors.Wrapf(utils.ErrConfiguration, "camera %d not in 0-3", cam)
	}
	values, err := readCalibValues(fs, src)
	if err != nil {
		return nil, err
	}

	suffix := fmt.Sprintf("_%02d", cam)
	get := func(key string, n int) []float64 {
		if err != nil {
			return nil
		}
		var v []float64
		v, err = values.get(key+suffix, n)
		return v
	}
	var (
		s     = get("S", 2)
		k     = get("K", 9)
		d     = get("D", 5)
		r     = get("R", 9)
		t     = get("T", 3)
		sRect = get("S_rect", 2)
		rRect = get("R_rect", 9)
		pRect = get("P_rect", 12)
	)
	if err != nil {
		return nil, errors.WithMessage(err, src)
	}

	return &CamCalib{
		Cam:           cam,
		ImageSize:     size(s),
		Intrinsics:    mat.NewDense(3, 3, k),
		Distortion:    d,
		Extrinsics:    homogeneous(r, t),
		RectImageSize: size(sRect),
		RectRotation:  homogeneous(rRect, nil),
		Projection:    mat.NewDense(3, 4, pRect),
	}, nil
}

// RectifiedIntrinsics returns the 3x3 left block of the rectified
// projection matrix, the intrinsics of the rectified images.
func (c *CamCalib) RectifiedIntrinsics() *array.Array {
	out := array.New(3, 3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(float32(c.Projection.At(i, j)), i, j)
		}
	}
	return out
}

// LoadRigid reads the [R|T] transform of calib_imu_to_velo.txt or
// calib_velo_to_cam.txt as a 4x4 homogeneous matrix.
func LoadRigid(fs afero.Fs, src string) (*mat.Dense, error) {
	values, err := readCalibValues(fs, src)
	if err != nil {
		return nil, err
	}
	r, err := values.get("R", 9)
	if err != nil {
		return nil, errors.WithMessage(err, src)
	}
	t, err := values.get("T", 3)
	if err != nil {
		return nil, errors.WithMessage(err, src)
	}
	return homogeneous(r, t), nil
}

// LoadIntrinsics reads the single line, nine value intrinsics files of the
// depth selection folders.
func LoadIntrinsics(fs afero.Fs, src string) (*array.Array, error) {
	b, err := afero.ReadFile(fs, src)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", src)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(b)), "\n")
	fields := strings.Fields(line)
	if len(fields) != 9 {
		return nil, errors.Wrapf(utils.ErrConsistency, "%s: %d intrinsics values, expected 9", src, len(fields))
	}
	out := array.New(3, 3)
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, errors.Wrapf(utils.ErrConsistency, "%s: %v", src, err)
		}
		out.Data[i] = float32(v)
	}
	return out, nil
}
