package utils

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var (
	driveRegex = regexp.MustCompile(`[0-9]+_[0-9]+_[0-9]+_drive_[0-9]+_sync`)
	dateRegex  = regexp.MustCompile(`[0-9]+_[0-9]+_[0-9]+`)
	camRegex   = regexp.MustCompile(`image_0([0-3])`)
	frameRegex = regexp.MustCompile(`[0-9]{10}`)
)

func ChangeFileExt(src, ext string) string {
	return strings.TrimSuffix(src, path.Ext(src)) + ext
}

// Filename return filename (without extension) from path
func Filename(src string) string {
	return strings.TrimSuffix(path.Base(src), path.Ext(src))
}

// FindDrive returns the first "<date>_drive_<n>_sync" component of a path.
func FindDrive(src string) string {
	return driveRegex.FindString(src)
}

// FindDate returns the first "<yyyy>_<mm>_<dd>" component of a path.
func FindDate(src string) string {
	return dateRegex.FindString(src)
}

// FindCam returns the camera number of the first "image_0X" component.
func FindCam(src string) (int, bool) {
	m := camRegex.FindStringSubmatch(src)
	if m == nil {
		return 0, false
	}
	cam, _ := strconv.Atoi(m[1])
	return cam, true
}

// FrameID parses the ten digit frame index of a KITTI file name.
func FrameID(src string) (int, error) {
	m := frameRegex.FindAllString(path.Base(src), -1)
	if len(m) == 0 {
		return 0, fmt.Errorf("no frame id in %q", src)
	}
	return strconv.Atoi(m[len(m)-1])
}

// FrameName zero pads a frame index the way KITTI names its files.
func FrameName(idx int) string {
	return fmt.Sprintf("%010d", idx)
}

// ReplaceFrame swaps the frame index in the base name of src.
func ReplaceFrame(src string, idx int) string {
	dir, base := path.Split(src)
	loc := frameRegex.FindAllStringIndex(base, -1)
	if len(loc) == 0 {
		return src
	}
	last := loc[len(loc)-1]
	return dir + base[:last[0]] + FrameName(idx) + base[last[1]:]
}

// ReplaceCam swaps the "image_0X" components of src for another camera.
func ReplaceCam(src string, cam int) string {
	return camRegex.ReplaceAllString(src, "image_0"+strconv.Itoa(cam))
}

// DriveName builds "<date>_drive_<nnnn>_sync".
func DriveName(date string, drive int) string {
	return fmt.Sprintf("%s_drive_%04d_sync", date, drive)
}

// RawImagePath is the path of a camera frame in a raw sync+rect root.
func RawImagePath(root, drive string, cam, idx int) string {
	return path.Join(root, FindDate(drive), drive, fmt.Sprintf("image_%02d", cam), "data", FrameName(idx)+".png")
}

// RawDataPath is the path of a non image sensor record (oxts,
// velodyne_points) of a frame in a raw sync+rect root.
func RawDataPath(root, drive, sensor, ext string, idx int) string {
	return path.Join(root, FindDate(drive), drive, sensor, "data", FrameName(idx)+ext)
}

// CalibPath is the path of a per date calibration file in a raw root.
func CalibPath(root, date, name string) string {
	return path.Join(root, date, name)
}
