package readers

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/evilmagics/kitti/internal/utils"
)

// IMUData is one OXTS record of the raw dataset (oxts/data/<frame>.txt).
type IMUData struct {
	Lat         float64
	Lon         float64
	Alt         float64
	Roll        float64
	Pitch       float64
	Yaw         float64
	VN          float64
	VE          float64
	VF          float64
	VL          float64
	VU          float64
	AX          float64
	AY          float64
	AZ          float64
	AF          float64
	AL          float64
	AU          float64
	WX          float64
	WY          float64
	WZ          float64
	WF          float64
	WL          float64
	WU          float64
	PosAccuracy float64
	VelAccuracy float64
	NavStat     int
	NumSats     int
	PosMode     int
	VelMode     int
	OriMode     int
}

// IMUFields is the number of values of an OXTS record.
const IMUFields = 30

// LoadIMU parses the first line of an OXTS record.
func LoadIMU(fs afero.Fs, src string) (*IMUData, error) {
	f, err := fs.Open(src)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", src)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, errors.Wrapf(utils.ErrConsistency, "%s is empty", src)
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) != IMUFields {
		return nil, errors.Wrapf(utils.ErrConsistency, "%s: %d oxts values, expected %d", src, len(fields), IMUFields)
	}

	v := make([]float64, IMUFields)
	for i, s := range fields {
		if v[i], err = strconv.ParseFloat(s, 64); err != nil {
			return nil, errors.Wrapf(utils.ErrConsistency, "%s: %v", src, err)
		}
	}

	return &IMUData{
		Lat:         v[0],
		Lon:         v[1],
		Alt:         v[2],
		Roll:        v[3],
		Pitch:       v[4],
		Yaw:         v[5],
		VN:          v[6],
		VE:          v[7],
		VF:          v[8],
		VL:          v[9],
		VU:          v[10],
		AX:          v[11],
		AY:          v[12],
		AZ:          v[13],
		AF:          v[14],
		AL:          v[15],
		AU:          v[16],
		WX:          v[17],
		WY:          v[18],
		WZ:          v[19],
		WF:          v[20],
		WL:          v[21],
		WU:          v[22],
		PosAccuracy: v[23],
		VelAccuracy: v[24],
		NavStat:     int(v[25]),
		NumSats:     int(v[26]),
		PosMode:     int(v[27]),
		VelMode:     int(v[28]),
		OriMode:     int(v[29]),
	}, nil
}
