package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/evilmagics/kitti/internal/config"
	"github.com/evilmagics/kitti/internal/utils"
)

const confKey = "config"

func setup(c *cli.Context) error {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if p := c.String(config.FlagLogFile); p != "" {
		logFile, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		out = zerolog.MultiLevelWriter(out, logFile)
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	conf, err := config.LoadConfig(afero.NewOsFs(), c.String(config.FlagConfig))
	if err != nil {
		return err
	}
	if l := c.String(config.FlagLogLevel); l != "" {
		conf.LogLevel = l
	}
	level, err := zerolog.ParseLevel(conf.LogLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	log.Debug().Str("config", utils.Wrap(conf.String(), 200)).Msg("Config loaded")
	c.App.Metadata[confKey] = conf
	return nil
}

func conf(c *cli.Context) *config.Config {
	return c.App.Metadata[confKey].(*config.Config)
}

func main() {
	app := &cli.App{
		Name:     "kitti",
		Usage:    "download, verify and read the KITTI depth and raw datasets",
		Flags:    config.GlobalFlags(),
		Before:   setup,
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			downloadCommand(),
			verifyCommand(),
			inspectCommand(),
			evalCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
