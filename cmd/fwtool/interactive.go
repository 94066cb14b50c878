package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rvbcrs/unifi-firmware-tool/internal/logger"
)

func interactiveCmd() *cli.Command {
	return &cli.Command{
		Name:  "interactive",
		Usage: "Menu-driven split/build/list/verify",
		Flags: []cli.Flag{keyFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyConfig(cmd, loadConfig())
			ctx = logger.WithContext(ctx, newLogger())
			return runInteractive(ctx, bufio.NewScanner(os.Stdin))
		},
	}
}

func runInteractive(ctx context.Context, in *bufio.Scanner) error {
	for {
		fmt.Println()
		fmt.Println("  1) list    show image structure")
		fmt.Println("  2) verify  check all checksums and signature")
		fmt.Println("  3) split   extract segments")
		fmt.Println("  4) build   encode from a layout")
		fmt.Println("  q) quit")

		choice := prompt(in, "> ")
		switch choice {
		case "1":
			image := prompt(in, "image path: ")
			if err := doList(ctx, image, false); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case "2":
			image := prompt(in, "image path: ")
			ok, err := doVerify(ctx, image)
			switch {
			case err != nil:
				fmt.Fprintln(os.Stderr, err)
			case ok:
				fmt.Println("verify: OK")
			default:
				fmt.Println("verify: FAILED")
			}
		case "3":
			image := prompt(in, "image path: ")
			prefix := prompt(in, "output prefix (empty for default): ")
			if err := doSplit(ctx, image, prefix); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case "4":
			plan := prompt(in, "layout path or split prefix: ")
			out := prompt(in, "output image (empty for firmware.bin): ")
			if out == "" {
				out = "firmware.bin"
			}
			if err := doBuild(ctx, plan, out, ""); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case "q", "quit", "exit", "":
			return nil
		default:
			fmt.Println("unknown choice:", choice)
		}
	}
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}
