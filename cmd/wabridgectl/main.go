package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/wabridge/internal/api"
	"github.com/matheus3301/wabridge/internal/session"
	"github.com/urfave/cli/v2"
)

type contextKey int

const contextKeyClient contextKey = iota

const callTimeout = 30 * time.Second

func getClient(ctx *cli.Context) *api.Client {
	return ctx.Context.Value(contextKeyClient).(*api.Client)
}

// connect dials the daemon of the selected session.
func connect(ctx *cli.Context) error {
	layout, _, err := session.Locate(ctx.String("base-dir"), ctx.String("session"))
	if err != nil {
		return err
	}
	if _, err := os.Stat(layout.SocketPath()); err != nil {
		return fmt.Errorf("daemon for session %q is not running (no socket at %s); start it with 'wabridged --session %s'",
			layout.Name, layout.SocketPath(), layout.Name)
	}
	c, err := api.Dial(layout.SocketPath())
	if err != nil {
		return fmt.Errorf("connect to daemon for session %q: %w", layout.Name, err)
	}
	ctx.Context = context.WithValue(ctx.Context, contextKeyClient, c)
	return nil
}

func disconnect(ctx *cli.Context) error {
	if c, ok := ctx.Context.Value(contextKeyClient).(*api.Client); ok {
		return c.Close()
	}
	return nil
}

// rpcContext bounds one daemon call.
func rpcContext(ctx *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Context, callTimeout)
}

func main() {
	app := &cli.App{
		Name:  "wabridgectl",
		Usage: "Control a running WhatsApp bridge daemon",
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
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print responses as JSON",
			},
		},
		Commands: []*cli.Command{
			statusCommand,
			startCommand,
			logoutCommand,
			qrCommand,
			sendCommand,
			messagesCommand,
			contactsCommand,
			chatsCommand,
			chatCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
