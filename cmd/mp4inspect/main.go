package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/lz9168/shaka-packager/internal/logger"
	"github.com/lz9168/shaka-packager/internal/version"
)

func main() {
	app := &cli.Command{
		Name:    "mp4inspect",
		Usage:   "ISO-BMFF box structure inspection CLI",
		Version: version.String(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			probeCmd(),
			treeCmd(),
			serveCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() logger.Logger {
	cfg := LoadConfig()
	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	format := logFormat
	if format == "" {
		format = cfg.LogFormat
	}
	if format == "json" {
		return logger.JSON(os.Stderr, logger.ParseLevel(level))
	}
	return logger.Text(os.Stderr, logger.ParseLevel(level))
}
