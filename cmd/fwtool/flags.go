package main

import (
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rvbcrs/unifi-firmware-tool/internal/logger"
)

var (
	logLevel  string
	logFormat string
	keyPath   string
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
	}
}

func keyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "key",
		Aliases:     []string{"k"},
		Usage:       "PEM public key for verifying the optional RSA signature block",
		Destination: &keyPath,
	}
}

func newLogger() logger.Logger {
	return newLoggerTo(os.Stderr)
}

func newLoggerTo(w io.Writer) logger.Logger {
	level := logger.ParseLevel(logLevel)
	if logFormat == "json" {
		return logger.JSON(w, level)
	}
	return logger.Text(w, level)
}
