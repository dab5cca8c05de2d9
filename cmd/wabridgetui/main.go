package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/wabridge/internal/api"
	"github.com/matheus3301/wabridge/internal/session"
	"github.com/matheus3301/wabridge/internal/tui"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "wabridgetui",
		Usage: "Terminal client for the WhatsApp bridge",
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
				Name:  "no-spawn",
				Usage: "fail instead of starting a daemon when none is running",
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
	socketPath := layout.SocketPath()

	if !probeDaemon(socketPath) {
		if ctx.Bool("no-spawn") {
			return fmt.Errorf("daemon for session %q is not running", layout.Name)
		}
		fmt.Fprintf(os.Stderr, "daemon not running for session %q, starting...\n", layout.Name)
		if err := startDaemon(layout); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}
		if !waitForDaemon(socketPath, 15*time.Second) {
			return errors.New("daemon did not become ready; see " + layout.LogPath())
		}
	}

	c, err := api.Dial(socketPath)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = c.Close() }()

	return tui.NewApp(c, layout.Name).Run()
}

// probeDaemon reports whether a daemon answers GetStatus on the socket.
func probeDaemon(socketPath string) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}
	c, err := api.Dial(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.GetStatus(ctx)
	return err == nil
}

// startDaemon launches wabridged next to this binary, or from PATH.
func startDaemon(layout session.Layout) error {
	bin := "wabridged"
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), bin)
		if _, err := os.Stat(sibling); err == nil {
			bin = sibling
		}
	}

	cmd := exec.Command(bin, "--session", layout.Name, "--base-dir", layout.Base)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
