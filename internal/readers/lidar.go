package readers

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/evilmagics/kitti/internal/array"
	"github.com/evilmagics/kitti/internal/utils"
)

// LidarMode selects whether and how velodyne points are loaded.
type LidarMode string

const (
	LidarNone LidarMode = "none"
	// LidarProjective replaces reflectance with 1, giving homogeneous
	// coordinates.
	LidarProjective LidarMode = "projective"
	// LidarReflectance keeps the reflectance in the fourth column.
	LidarReflectance LidarMode = "reflectance"
)

func (m LidarMode) Valid() bool {
	switch m {
	case LidarNone, LidarProjective, LidarReflectance:
		return true
	}
	return false
}

const pointSize = 4 * 4

// LoadPointCloud reads a velodyne_points .bin file, a flat sequence of
// little endian float32 x, y, z, reflectance, into an N x 4 array.
func LoadPointCloud(fs afero.Fs, src string, mode LidarMode) (*array.Array, error) {
	b, err := afero.ReadFile(fs, src)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", src)
	}
	if len(b)%pointSize != 0 {
		return nil, errors.Wrapf(utils.ErrConsistency, "%s: %d bytes is not a multiple of %d", src, len(b), pointSize)
	}

	n := len(b) / pointSize
	out := array.New(n, 4)
	for i := range out.Data {
		out.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	if mode == LidarProjective {
		for i := 0; i < n; i++ {
			out.Data[i*4+3] = 1
		}
	}
	return out, nil
}
