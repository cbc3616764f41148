package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/evilmagics/kitti/internal/array"
	"github.com/evilmagics/kitti/internal/metrics"
	"github.com/evilmagics/kitti/internal/readers"
	"github.com/evilmagics/kitti/internal/scaffold"
	"github.com/evilmagics/kitti/internal/utils"
)

func writeDepth(t *testing.T, fs afero.Fs, p string, values ...float64) {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, len(values), 1))
	for x, v := range values {
		img.SetGray16(x, 0, color.Gray16{Y: uint16(v * 256)})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, afero.WriteFile(fs, p, buf.Bytes(), 0o644))
}

func TestEvaluateFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDepth(t, fs, "/pred/a.png", 2, 4, 9)
	writeDepth(t, fs, "/gt/a.png", 2, 4, 0)

	r, err := evaluateFile(fs, "/pred/a.png", "/gt/a.png")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Count)
	assert.Equal(t, 0.0, r.RMSE)

	_, err = evaluateFile(fs, "/pred/a.png", "/gt/b.png")
	assert.Error(t, err)
}

func TestEvaluateFileWithZeroPrediction(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDepth(t, fs, "/pred/a.png", 0, 2, 3, 4)
	writeDepth(t, fs, "/gt/a.png", 1, 2, 3, 4)

	r, err := evaluateFile(fs, "/pred/a.png", "/gt/a.png")
	require.NoError(t, err)
	assert.Equal(t, 4, r.Count)

	b, err := json.MarshalIndent(metrics.Mean([]*metrics.Report{r}), "", "  ")
	require.NoError(t, err)
	assert.NotContains(t, string(b), "null")
}

func TestCheckRoots(t *testing.T) {
	for name, tc := range map[string]struct {
		name              scaffold.Name
		raw, root, subset string
		ok                bool
	}{
		"raw dataset":          {scaffold.SyncRectified, "/raw", "", "train", true},
		"raw dataset no raw":   {scaffold.SyncRectified, "", "", "train", false},
		"depth train":          {scaffold.DepthCompletion, "/raw", "/depth", "train", true},
		"depth train no raw":   {scaffold.DepthCompletion, "", "/depth", "train", false},
		"depth test no raw":    {scaffold.DepthCompletion, "", "/depth", "test", true},
		"depth testing alias":  {scaffold.DepthPrediction, "", "/depth", "testing", true},
		"depth no root":        {scaffold.DepthPrediction, "/raw", "", "val", false},
		"depth unknown subset": {scaffold.DepthCompletion, "/raw", "/depth", "holdout", false},
	} {
		t.Run(name, func(t *testing.T) {
			err := checkRoots(tc.name, tc.raw, tc.root, tc.subset)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, utils.ErrConfiguration))
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, fieldInfo{Type: "array", Shape: []int{2, 3, 1}}, describe(array.New(2, 3, 1)))
	assert.Equal(t, fieldInfo{Type: "matrix", Shape: []int{4, 4}}, describe(mat.NewDense(4, 4, nil)))
	assert.Equal(t, fieldInfo{Type: "imu"}, describe(&readers.IMUData{}))
	assert.Equal(t, fieldInfo{Type: "string"}, describe("x"))
}
