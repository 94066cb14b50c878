package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rvbcrs/unifi-firmware-tool/internal/logger"
)

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Exit 0 when every checksum and the signature hold, 1 otherwise",
		ArgsUsage: "<image>",
		Flags:     []cli.Flag{keyFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("verify: exactly one image argument required", 1)
			}
			applyConfig(cmd, loadConfig())
			ctx = logger.WithContext(ctx, newLogger())

			ok, err := doVerify(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			if !ok {
				return cli.Exit("verify: FAILED", 1)
			}
			fmt.Println("verify: OK")
			return nil
		},
	}
}
