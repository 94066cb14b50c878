package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/rvbcrs/unifi-firmware-tool/internal/logger"
)

func listCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "list",
		Usage:     "Show the structure and validity of an image",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit a JSON report instead of the table",
				Destination: &asJSON,
			},
			keyFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("list: exactly one image argument required", 1)
			}
			applyConfig(cmd, loadConfig())
			ctx = logger.WithContext(ctx, newLogger())
			return doList(ctx, cmd.Args().First(), asJSON)
		},
	}
}
