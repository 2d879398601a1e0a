package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/lz9168/shaka-packager/internal/inspect"
	"github.com/lz9168/shaka-packager/internal/mediafile"
)

func probeCmd() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     "List the top-level boxes of a media file",
		ArgsUsage: "FILE",
		Flags:     loggingFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("probe expects exactly one file argument")
			}
			path := cmd.Args().First()

			f, err := mediafile.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			nodes, err := inspect.TopLevel(f.Data)
			// Boxes walked before the failure are still worth printing.
			inspect.WriteText(os.Stdout, nodes)
			if err != nil {
				return fmt.Errorf("probe %s: %w", path, err)
			}
			return nil
		},
	}
}
