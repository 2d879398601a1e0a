package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/lz9168/shaka-packager/internal/inspect"
	"github.com/lz9168/shaka-packager/internal/mediafile"
)

func treeCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "tree",
		Usage:     "Print the full box tree of one or more media files",
		ArgsUsage: "FILE...",
		Flags: append(loggingFlags(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit the tree as JSON",
				Destination: &asJSON,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("tree expects at least one file argument")
			}
			log := newLogger()

			paths := cmd.Args().Slice()
			results := make([][]*inspect.Node, len(paths))

			// Parse files concurrently, print in argument order.
			g, ctx := errgroup.WithContext(ctx)
			for i, path := range paths {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					f, err := mediafile.Open(path)
					if err != nil {
						return fmt.Errorf("open %s: %w", path, err)
					}
					defer f.Close()

					nodes, err := inspect.Tree(f.Data)
					if err != nil {
						return fmt.Errorf("tree %s: %w", path, err)
					}
					results[i] = nodes
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for i, path := range paths {
				log.Debug("inspected file", "path", path, "top_level_boxes", len(results[i]))
				if asJSON {
					out, err := inspect.EncodeJSON(results[i])
					if err != nil {
						return fmt.Errorf("encode %s: %w", path, err)
					}
					fmt.Printf("%s\n", out)
					continue
				}
				if len(paths) > 1 {
					fmt.Printf("%s:\n", path)
				}
				inspect.WriteText(os.Stdout, results[i])
			}
			return nil
		},
	}
}
