package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evilmagics/kitti/internal/utils"
)

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestHTTPFetcher(t *testing.T) {
	payload := []byte("velodyne archive bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/avg-kitti/data_depth_velodyne.zip" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0, false)
	var buf bytes.Buffer
	n, err := f.Fetch(context.Background(), srv.URL+"/avg-kitti/data_depth_velodyne.zip", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())

	_, err = f.Fetch(context.Background(), srv.URL+"/avg-kitti/missing.zip", &buf)
	assert.True(t, errors.Is(err, utils.ErrDownload))
}

func TestToFileRemovesPartialDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	_, err := ToFile(context.Background(), NewHTTPFetcher(0, false), fs, srv.URL+"/a.zip", "/root/a.zip")
	assert.True(t, errors.Is(err, utils.ErrDownload))
	exists, _ := afero.Exists(fs, "/root/a.zip")
	assert.False(t, exists)
}

func TestSplitObjectURL(t *testing.T) {
	bucket, key, err := SplitObjectURL("https://s3.eu-central-1.amazonaws.com/avg-kitti/raw_data/2011_09_26_calib.zip")
	require.NoError(t, err)
	assert.Equal(t, "avg-kitti", bucket)
	assert.Equal(t, "raw_data/2011_09_26_calib.zip", key)

	_, _, err = SplitObjectURL("https://example.com/only-bucket")
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestNewObjectFetcher(t *testing.T) {
	f, err := NewObjectFetcher(DefaultEndpoint, "eu-central-1", true, false)
	require.NoError(t, err)
	assert.NotNil(t, f.client)
}

// s3Stub serves objects of the avg-kitti bucket path style, answering HEAD
// and GET like an S3 endpoint does.
func s3Stub(t *testing.T, objects map[string][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := objects[strings.TrimPrefix(r.URL.Path, "/avg-kitti/")]
		if !ok || !strings.HasPrefix(r.URL.Path, "/avg-kitti/") {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
					`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
			}
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Date(2017, 7, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	}))
}

func TestObjectFetcher(t *testing.T) {
	payload := []byte("annotated archive bytes")
	srv := s3Stub(t, map[string][]byte{"data_depth_annotated.zip": payload})
	defer srv.Close()

	f, err := NewObjectFetcher(strings.TrimPrefix(srv.URL, "http://"), "eu-central-1", false, false)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := f.Fetch(context.Background(), "https://s3.eu-central-1.amazonaws.com/avg-kitti/data_depth_annotated.zip", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())

	buf.Reset()
	_, err = f.Fetch(context.Background(), "https://s3.eu-central-1.amazonaws.com/avg-kitti/missing.zip", &buf)
	assert.True(t, errors.Is(err, utils.ErrDownload))
	assert.Zero(t, buf.Len())

	_, err = f.Fetch(context.Background(), "https://s3.eu-central-1.amazonaws.com/avg-kitti", &buf)
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestObjectFetcherToFile(t *testing.T) {
	data := zipOf(t, map[string]string{"2011_09_26/calib_cam_to_cam.txt": "cam"})
	srv := s3Stub(t, map[string][]byte{"raw_data/2011_09_26_calib.zip": data})
	defer srv.Close()

	f, err := NewObjectFetcher(strings.TrimPrefix(srv.URL, "http://"), "eu-central-1", false, false)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	_, err = ToFile(context.Background(), f, fs, "https://s3.eu-central-1.amazonaws.com/avg-kitti/raw_data/2011_09_26_calib.zip", "/kitti/calib.zip")
	require.NoError(t, err)
	got, err := afero.ReadFile(fs, "/kitti/calib.zip")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = ToFile(context.Background(), f, fs, "https://s3.eu-central-1.amazonaws.com/avg-kitti/raw_data/2011_09_28_calib.zip", "/kitti/missing.zip")
	assert.True(t, errors.Is(err, utils.ErrDownload))
	exists, _ := afero.Exists(fs, "/kitti/missing.zip")
	assert.False(t, exists)
}

func TestExtract(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := zipOf(t, map[string]string{
		"2011_09_26/calib_cam_to_cam.txt":  "cam",
		"2011_09_26/calib_velo_to_cam.txt": "velo",
		"__MACOSX/._calib_cam_to_cam.txt":  "junk",
	})
	require.NoError(t, afero.WriteFile(fs, "/root/calib.zip", data, 0o644))

	n, err := Extract(fs, "/root/calib.zip", "/root")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	b, err := afero.ReadFile(fs, "/root/2011_09_26/calib_velo_to_cam.txt")
	require.NoError(t, err)
	assert.Equal(t, "velo", string(b))
	exists, _ := afero.DirExists(fs, "/root/__MACOSX")
	assert.False(t, exists)
}

func TestExtractRejectsTraversal(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/root/evil.zip", zipOf(t, map[string]string{"../evil.txt": "x"}), 0o644))

	_, err := Extract(fs, "/root/evil.zip", "/root")
	assert.True(t, errors.Is(err, utils.ErrDownload))
	exists, _ := afero.Exists(fs, "/evil.txt")
	assert.False(t, exists)
}

func TestExtractRejectsNonZip(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/root/page.zip", []byte("<html><body>Access denied</body></html>"), 0o644))

	_, err := Extract(fs, "/root/page.zip", "/root")
	assert.True(t, errors.Is(err, utils.ErrDownload))
	assert.ErrorContains(t, err, "not a zip archive")
}
