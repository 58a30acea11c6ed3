package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/andrebq/lostminer/cmd/lostminer/migrate"
	"github.com/andrebq/lostminer/cmd/lostminer/serve"
	"github.com/andrebq/lostminer/cmd/lostminer/users"
	"github.com/andrebq/lostminer/internal/cmdflags"
	"github.com/andrebq/lostminer/internal/logutil"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	var logLevel string
	var logPretty bool
	app := &cli.App{
		Name:  "lostminer",
		Usage: "Backend of the LostMiner community, share textures, worlds and skins!",
		Flags: []cli.Flag{
			cmdflags.LogLevel(&logLevel),
			cmdflags.LogPretty(&logPretty),
		},
		Before: func(ctx *cli.Context) error {
			logger, err := logutil.New(os.Stderr, logLevel, logPretty)
			if err != nil {
				return err
			}
			log.Logger = logger
			ctx.Context = logutil.WithLogger(ctx.Context, logger)
			return nil
		},
		Commands: []*cli.Command{
			serve.Cmd(),
			migrate.Cmd(),
			users.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
