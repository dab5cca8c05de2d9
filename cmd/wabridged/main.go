package main

import (
	"fmt"
	"os"

	"github.com/matheus3301/wabridge/internal/daemon"
	"github.com/matheus3301/wabridge/internal/session"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

func main() {
	app := &cli.App{
		Name:  "wabridged",
		Usage: "Run the WhatsApp bridge daemon for one session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "session",
				Aliases: []string{"s"},
				Usage:   "session name (overrides default_session in the config)",
				EnvVars: []string{"WABRIDGE_SESSION"},
			},
			&cli.StringFlag{
				Name:    "base-dir",
				Usage:   "state directory",
				Value:   session.BaseDir(),
				EnvVars: []string{"WABRIDGE_HOME"},
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	layout, _, err := session.Locate(ctx.String("base-dir"), ctx.String("session"))
	if err != nil {
		return err
	}

	app := fx.New(daemon.Module(daemon.Params{SessionName: layout.Name, BaseDir: layout.Base}))
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}
