package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"commune.social/core/log"
	"commune.social/core/server"
)

func main() {
	cmd := &cli.Command{
		Name:  "commune",
		Usage: "federated link aggregator",
		Commands: []*cli.Command{
			server.Command(),
		},
	}

	ctx := context.Background()
	logger := log.New("commune")
	ctx = log.IntoContext(ctx, logger.With("command", cmd.Name))

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(-1)
	}
}
