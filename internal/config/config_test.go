package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evilmagics/kitti/internal/fetch"
	"github.com/evilmagics/kitti/internal/utils"
)

func TestLoadConfigDefaults(t *testing.T) {
	conf, err := LoadConfig(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, 6, conf.Workers)
	assert.Equal(t, SourceHTTP, conf.Source)
	assert.Equal(t, fetch.DefaultEndpoint, conf.S3.Endpoint)
	assert.Equal(t, time.Duration(0), conf.Timeout)
	assert.Equal(t, "info", conf.LogLevel)

	f, err := conf.Fetcher()
	require.NoError(t, err)
	assert.IsType(t, &fetch.HTTPFetcher{}, f)
}

func TestLoadConfigFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	body := "workers: 2\ntimeout: 90s\nsource: s3\ns3:\n  endpoint: mirror.local:9000\n  secure: false\n"
	require.NoError(t, afero.WriteFile(fs, "/etc/kitti.yaml", []byte(body), 0o644))

	conf, err := LoadConfig(fs, "/etc/kitti.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, conf.Workers)
	assert.Equal(t, 90*time.Second, conf.Timeout)
	assert.Equal(t, "mirror.local:9000", conf.S3.Endpoint)
	assert.False(t, conf.S3.Secure)
	assert.Equal(t, "eu-central-1", conf.S3.Region)

	f, err := conf.Fetcher()
	require.NoError(t, err)
	assert.IsType(t, &fetch.ObjectFetcher{}, f)
	assert.Contains(t, conf.String(), `"workers":2`)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("KITTI_WORKERS", "12")
	t.Setenv("KITTI_S3_REGION", "us-east-1")

	conf, err := LoadConfig(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, 12, conf.Workers)
	assert.Equal(t, "us-east-1", conf.S3.Region)
}

func TestLoadConfigErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := LoadConfig(fs, "/missing.yaml")
	assert.True(t, errors.Is(err, utils.ErrConfiguration))

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("source: ftp\n"), 0o644))
	_, err = LoadConfig(fs, "/bad.yaml")
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestScaffolderRegistry(t *testing.T) {
	fs := afero.NewMemMapFs()
	conf, err := LoadConfig(fs, "")
	require.NoError(t, err)

	s, err := conf.Scaffolder(fs)
	require.NoError(t, err)
	assert.False(t, s.Verify("depth_completion", "/nowhere"))

	conf.Registry = "/missing-registry.yaml"
	_, err = conf.Scaffolder(fs)
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}
