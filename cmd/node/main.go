package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/parityfleet/paritynode/core/config"
	"github.com/parityfleet/paritynode/core/lifecycle"
	"github.com/parityfleet/paritynode/lib/logger"
)

var log, _ = logger.New("node-main")

func main() {
	app := &cli.App{
		Name:      "paritynode",
		Usage:     "peer-to-peer redundant byte-storage node",
		ArgsUsage: "<directoryHost> <directoryPort> <nodePort> [dataFile]",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalw("startup", "error", err)
	}
}

func run(ctx *cli.Context) error {
	args, err := config.ParseArgs(ctx.Args().Slice())
	if err != nil {
		return err
	}

	tunables, err := config.LoadTunables()
	if err != nil {
		return err
	}

	node, err := lifecycle.New(args, tunables, os.Stdin)
	if err != nil {
		return err
	}

	return node.Run()
}
