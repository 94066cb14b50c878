package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/rvbcrs/unifi-firmware-tool/internal/logger"
)

func buildCmd() *cli.Command {
	var (
		output  string
		version string
	)

	return &cli.Command{
		Name:      "build",
		Usage:     "Encode an image from a descriptor, YAML plan, or split prefix",
		ArgsUsage: "<layout|prefix>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output image path",
				Value:       "firmware.bin",
				Destination: &output,
			},
			&cli.StringFlag{
				Name:        "version",
				Usage:       "override the container version string",
				Destination: &version,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("build: exactly one layout argument required", 1)
			}
			applyConfig(cmd, loadConfig())
			ctx = logger.WithContext(ctx, newLogger())
			return doBuild(ctx, cmd.Args().First(), output, version)
		},
	}
}
