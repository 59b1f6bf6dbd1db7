package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const version = "v0.1.0"

func main() {
	app := &cli.Command{
		Name:        "cogsamples",
		Usage:       "Azure Cognitive Services long-running job samples",
		Description: "pick a sample from the menu and watch its job until it finishes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file, built-in defaults when empty",
			},
		},
		Action:  run,
		Version: version,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		stop()
		logrus.Fatalln(err)
	}
}
