// Package readers decodes the files of the KITTI layouts: camera frames,
// 16 bit depth maps, calibration text files, oxts records and velodyne
// point clouds.
package readers

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/evilmagics/kitti/internal/array"
	"github.com/evilmagics/kitti/internal/utils"
)

// imageExtensions are tried in order when a frame is missing; some KITTI
// mirrors ship camera frames re-encoded as jpg.
var imageExtensions = []string{".png", ".jpg"}

// ResolveImage returns the path of an existing frame for src, falling back
// to the other known image extensions.
func ResolveImage(fs afero.Fs, src string) (string, error) {
	for _, ext := range imageExtensions {
		p := utils.ChangeFileExt(src, ext)
		if ok, _ := afero.Exists(fs, p); ok {
			return p, nil
		}
	}
	return "", errors.Wrapf(os.ErrNotExist, "image %s", src)
}

func decode(fs afero.Fs, src string) (image.Image, error) {
	p, err := ResolveImage(fs, src)
	if err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(fs, p)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", p)
	}

	mime := mimetype.Detect(b)
	if !mime.Is("image/png") && !mime.Is("image/jpeg") {
		return nil, errors.Errorf("%s: unsupported content type %s", p, mime.String())
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", p)
	}
	return img, nil
}

// LoadImage decodes a camera frame into an H x W x C array of 8 bit
// intensities (C is 1 for the grayscale cameras 00 and 01, 3 otherwise).
func LoadImage(fs afero.Fs, src string) (*array.Array, error) {
	img, err := decode(fs, src)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	switch m := img.(type) {
	case *image.Gray:
		out := array.New(h, w, 1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Data[y*w+x] = float32(m.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return out, nil
	default:
		out := array.New(h, w, 3)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				i := (y*w + x) * 3
				out.Data[i] = float32(r >> 8)
				out.Data[i+1] = float32(g >> 8)
				out.Data[i+2] = float32(bl >> 8)
			}
		}
		return out, nil
	}
}

// LoadDepth decodes a KITTI 16 bit depth PNG (ground truth or projected
// velodyne) into an H x W x 1 array of metres. Zero marks a missing
// measurement.
func LoadDepth(fs afero.Fs, src string) (*array.Array, error) {
	img, err := decode(fs, src)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	out := array.New(h, w, 1)
	switch m := img.(type) {
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Data[y*w+x] = float32(m.Gray16At(b.Min.X+x, b.Min.Y+y).Y) / array.DepthScale
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Data[y*w+x] = float32(m.GrayAt(b.Min.X+x, b.Min.Y+y).Y) / array.DepthScale
			}
		}
	default:
		return nil, errors.Wrapf(utils.ErrConsistency, "%s is not a single channel depth map", src)
	}
	return out, nil
}
