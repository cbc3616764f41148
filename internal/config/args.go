package config

import "github.com/urfave/cli/v2"

// Global flag names.
const (
	FlagConfig   = "config"
	FlagLogLevel = "log-level"
	FlagLogFile  = "log-file"
)

// GlobalFlags are accepted before any command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagConfig,
			Aliases: []string{"c"},
			Usage:   "YAML config `FILE`",
			EnvVars: []string{EnvPrefix + "_CONFIG"},
		},
		&cli.StringFlag{
			Name:  FlagLogLevel,
			Usage: "log `LEVEL` (debug, info, warn, error), overrides the config",
		},
		&cli.StringFlag{
			Name:  FlagLogFile,
			Usage: "also write logs to `FILE`",
		},
	}
}

// DatasetFlags select and configure the dataset of inspect.
func DatasetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "raw",
			Usage: "raw sync+rect `ROOT`, not needed for the depth test subset",
		},
		&cli.StringFlag{
			Name:  "root",
			Usage: "depth completion or prediction `ROOT`",
		},
		&cli.StringFlag{
			Name:  "subset",
			Usage: "`SUBSET` of the depth benchmarks: train, val, test, all",
			Value: "train",
		},
		&cli.BoolFlag{
			Name:  "stereo",
			Usage: "add the right camera fields",
		},
		&cli.BoolFlag{
			Name:  "intrinsics",
			Usage: "add the camera intrinsics",
		},
		&cli.IntFlag{
			Name:  "previous",
			Usage: "add the fields of the `N`th previous frame",
		},
		&cli.IntFlag{
			Name:  "index",
			Usage: "sample `INDEX` to decode",
		},
		&cli.BoolFlag{
			Name:  "download",
			Usage: "download missing archives",
		},
	}
}
