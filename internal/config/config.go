package config

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/evilmagics/kitti/internal/fetch"
	"github.com/evilmagics/kitti/internal/scaffold"
	"github.com/evilmagics/kitti/internal/services"
	"github.com/evilmagics/kitti/internal/utils"
)

// EnvPrefix prefixes the environment variables overriding settings, e.g.
// KITTI_WORKERS or KITTI_S3_ENDPOINT.
const EnvPrefix = "KITTI"

// Archive sources.
const (
	SourceHTTP = "http"
	SourceS3   = "s3"
)

type S3 struct {
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	Region   string `mapstructure:"region" json:"region"`
	Secure   bool   `mapstructure:"secure" json:"secure"`
}

type Config struct {
	Workers int `mapstructure:"workers" json:"workers"`
	// Timeout bounds a whole archive request; zero is no limit.
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
	Source   string        `mapstructure:"source" json:"source"`
	S3       S3            `mapstructure:"s3" json:"s3"`
	Progress bool          `mapstructure:"progress" json:"progress"`
	LogLevel string        `mapstructure:"log_level" json:"log_level"`
	// Registry optionally replaces the built in archive descriptors.
	Registry string `mapstructure:"registry" json:"registry"`
}

func (c Config) String() string {
	j, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(j)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", services.DefaultWorkers)
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("source", SourceHTTP)
	v.SetDefault("s3.endpoint", fetch.DefaultEndpoint)
	v.SetDefault("s3.region", "eu-central-1")
	v.SetDefault("s3.secure", true)
	v.SetDefault("progress", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("registry", "")
}

// LoadConfig reads the optional YAML file at src, then applies KITTI_*
// environment overrides on top of the defaults.
func LoadConfig(fs afero.Fs, src string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if src != "" {
		v.SetConfigFile(src)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(utils.ErrConfiguration, "config %s: %v", src, err)
		}
	}

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrapf(utils.ErrConfiguration, "config: %v", err)
	}
	return conf, conf.validate()
}

func (c *Config) validate() error {
	if c.Workers <= 0 {
		return errors.Wrapf(utils.ErrConfiguration, "workers must be positive, got %d", c.Workers)
	}
	if c.Source != SourceHTTP && c.Source != SourceS3 {
		return errors.Wrapf(utils.ErrConfiguration, "source %q not in http, s3", c.Source)
	}
	return nil
}

// Fetcher builds the archive fetcher of the configured source.
func (c *Config) Fetcher() (fetch.Fetcher, error) {
	if c.Source == SourceS3 {
		return fetch.NewObjectFetcher(c.S3.Endpoint, c.S3.Region, c.S3.Secure, c.Progress)
	}
	return fetch.NewHTTPFetcher(c.Timeout, c.Progress), nil
}

// Scaffolder builds a scaffolder on fs with the configured fetcher, worker
// count and registry.
func (c *Config) Scaffolder(fs afero.Fs) (*services.Scaffolder, error) {
	f, err := c.Fetcher()
	if err != nil {
		return nil, err
	}

	registry := scaffold.Default()
	if c.Registry != "" {
		if registry, err = scaffold.Load(fs, c.Registry); err != nil {
			return nil, err
		}
	}

	return services.NewScaffolder(
		services.WithFs(fs),
		services.WithRegistry(registry),
		services.WithFetcher(f),
		services.WithWorkers(c.Workers),
	), nil
}
