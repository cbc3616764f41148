package datasets

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"path"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/evilmagics/kitti/internal/scaffold"
	"github.com/evilmagics/kitti/internal/services"
	"github.com/evilmagics/kitti/internal/utils"
)

const (
	rawRoot   = "/kitti/raw"
	depthRoot = "/kitti/depth"
	date      = "2011_09_26"
	height    = 4
	width     = 6
)

var (
	fixtureDrives = &scaffold.DriveList{
		Drives:     map[string][]int{date: {1, 2}},
		Validation: []string{"2011_09_26_drive_0002_sync"},
	}
	fixtureFrames = []int{5, 6}
)

type fixture struct {
	t  *testing.T
	fs afero.Fs
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{t: t, fs: afero.NewMemMapFs()}
	f.raw()
	f.depth()
	return f
}

func (f *fixture) scaffolder() *services.Scaffolder {
	return services.NewScaffolder(
		services.WithFs(f.fs),
		services.WithRegistry(scaffold.Build(fixtureDrives)),
	)
}

func (f *fixture) write(p string, b []byte) {
	f.t.Helper()
	require.NoError(f.t, afero.WriteFile(f.fs, p, b, 0o644))
}

func (f *fixture) png(p string, img image.Image) {
	f.t.Helper()
	var buf bytes.Buffer
	require.NoError(f.t, png.Encode(&buf, img))
	f.write(p, buf.Bytes())
}

// depthMap writes a constant depth map of v metres.
func (f *fixture) depthMap(p string, v float64) {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(v * 256)})
		}
	}
	f.png(p, img)
}

// camera writes a frame whose red channel is v.
func (f *fixture) camera(p string, v uint8) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: v, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	f.png(p, img)
}

func camToCam() string {
	var sb strings.Builder
	sb.WriteString("calib_time: 09-Jan-2012 13:57:47\ncorner_dist: 9.950000e-02\n")
	for cam := 0; cam < 4; cam++ {
		fmt.Fprintf(&sb, "S_%02d: 1.392000e+03 5.120000e+02\n", cam)
		fmt.Fprintf(&sb, "K_%02d: 9.8e+02 0 6.9e+02 0 9.7e+02 2.4e+02 0 0 1\n", cam)
		fmt.Fprintf(&sb, "D_%02d: -0.37 0.2 0.001 0.0005 -0.07\n", cam)
		fmt.Fprintf(&sb, "R_%02d: 1 0 0 0 1 0 0 0 1\n", cam)
		fmt.Fprintf(&sb, "T_%02d: %d 0 0\n", cam, cam)
		fmt.Fprintf(&sb, "S_rect_%02d: 1.242000e+03 3.750000e+02\n", cam)
		fmt.Fprintf(&sb, "R_rect_%02d: 1 0 0 0 1 0 0 0 1\n", cam)
		fmt.Fprintf(&sb, "P_rect_%02d: 721.5377 0 609.5593 %d 0 721.5377 172.854 0 0 0 1 0\n", cam, cam)
	}
	return sb.String()
}

func pointCloud(n int) []byte {
	b := make([]byte, n*16)
	for i := 0; i < n*4; i++ {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(i)))
	}
	return b
}

func oxts() string {
	vals := make([]string, 30)
	for i := range vals {
		vals[i] = fmt.Sprint(i)
	}
	return strings.Join(vals, " ") + "\n"
}

func (f *fixture) raw() {
	dir := path.Join(rawRoot, date)
	f.write(path.Join(dir, "calib_cam_to_cam.txt"), []byte(camToCam()))
	f.write(path.Join(dir, "calib_velo_to_cam.txt"), []byte("R: 1 0 0 0 1 0 0 0 1\nT: 0.1 0.2 0.3\n"))
	f.write(path.Join(dir, "calib_imu_to_velo.txt"), []byte("R: 1 0 0 0 1 0 0 0 1\nT: -0.8 0.3 -0.8\n"))

	for _, n := range fixtureDrives.Drives[date] {
		drive := utils.DriveName(date, n)
		for _, idx := range fixtureFrames {
			for cam := 0; cam < 4; cam++ {
				f.camera(utils.RawImagePath(rawRoot, drive, cam, idx), uint8(10*cam+idx))
			}
			f.write(utils.RawDataPath(rawRoot, drive, "velodyne_points", ".bin", idx), pointCloud(3))
			f.write(utils.RawDataPath(rawRoot, drive, "oxts", ".txt", idx), []byte(oxts()))
		}
	}
}

func (f *fixture) depth() {
	for _, folder := range scaffold.SelectionFolders {
		require.NoError(f.t, f.fs.MkdirAll(path.Join(depthRoot, folder), 0o755))
	}

	for _, n := range fixtureDrives.Drives[date] {
		drive := utils.DriveName(date, n)
		split := "train"
		if fixtureDrives.IsValidation(drive) {
			split = "val"
		}
		for _, idx := range fixtureFrames {
			for _, cam := range []int{2, 3} {
				base := path.Join(depthRoot, split, drive, "proj_depth")
				name := path.Join(fmt.Sprintf("image_%02d", cam), utils.FrameName(idx)+".png")
				f.depthMap(path.Join(base, "groundtruth", name), float64(idx))
				f.depthMap(path.Join(base, "velodyne_raw", name), float64(100+idx))
			}
		}
	}

	dir := path.Join(depthRoot, TestFolder)
	name := func(folder string) string {
		return fmt.Sprintf("2011_09_26_drive_0002_sync_%s_0000000005_image_02", folder)
	}
	f.depthMap(path.Join(dir, "groundtruth_depth", name("groundtruth_depth")+".png"), 7)
	f.depthMap(path.Join(dir, "velodyne_raw", name("velodyne_raw")+".png"), 8)
	f.camera(path.Join(dir, "image", name("image")+".png"), 9)
	f.write(path.Join(dir, "intrinsics", name("image")+".txt"), []byte("721.5377 0 596.5593 0 721.5377 149.854 0 0 1\n"))
}
