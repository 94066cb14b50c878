package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/rvbcrs/unifi-firmware-tool/internal/logger"
)

func splitCmd() *cli.Command {
	var output string

	return &cli.Command{
		Name:      "split",
		Usage:     "Extract every segment of an image, plus a rebuildable descriptor",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output prefix for payload files and descriptor (default: image path without extension)",
				Destination: &output,
			},
			keyFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("split: exactly one image argument required", 1)
			}
			applyConfig(cmd, loadConfig())
			ctx = logger.WithContext(ctx, newLogger())
			return doSplit(ctx, cmd.Args().First(), output)
		},
	}
}
