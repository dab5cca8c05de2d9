package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/matheus3301/wabridge/internal/api"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/urfave/cli/v2"
)

var statusCommand = &cli.Command{
	Name:   "status",
	Usage:  "Show connection state, account and store counts",
	Before: connect,
	After:  disconnect,
	Action: cmdStatus,
}

var startCommand = &cli.Command{
	Name:   "start",
	Usage:  "Connect the session (pairs a new device when unlinked)",
	Before: connect,
	After:  disconnect,
	Action: cmdStart,
}

var logoutCommand = &cli.Command{
	Name:   "logout",
	Usage:  "Unlink this device and delete its credentials",
	Before: connect,
	After:  disconnect,
	Action: cmdLogout,
}

var qrCommand = &cli.Command{
	Name:   "qr",
	Usage:  "Print the pairing QR code, waiting for one if needed",
	Before: connect,
	After:  disconnect,
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "wait",
			Usage: "how long to wait for a pairing code",
			Value: 30 * time.Second,
		},
	},
	Action: cmdQR,
}

func cmdStatus(ctx *cli.Context) error {
	rctx, cancel := rpcContext(ctx)
	defer cancel()
	st, err := getClient(ctx).GetStatus(rctx)
	if err != nil {
		return err
	}
	return emit(ctx, st, func(w io.Writer) {
		status := st.Status
		if st.SyncInProgress {
			status += " (history sync running)"
		}
		printf(w, "Session:\t%s\n", st.Session)
		printf(w, "Status:\t%s\n", status)
		if st.Error != "" {
			printf(w, "Error:\t%s\n", st.Error)
		}
		if st.PairingChallenge != "" {
			printf(w, "Pairing:\twaiting for scan (run 'wabridgectl qr')\n")
		}
		printf(w, "Phone:\t%s\n", orDash(st.Phone))
		printf(w, "Last sync:\t%s\n", orDash(st.LastSync))
		printf(w, "Contacts:\t%d\n", st.Counts.Contacts)
		printf(w, "Chats:\t%d\n", st.Counts.Chats)
		printf(w, "Messages:\t%d\n", st.Counts.Messages)
		printf(w, "Uptime:\t%s\n", (time.Duration(st.UptimeMs) * time.Millisecond).Truncate(time.Second))
	})
}

func cmdStart(ctx *cli.Context) error {
	rctx, cancel := rpcContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).Start(rctx)
	if err != nil {
		return err
	}
	return emit(ctx, resp, func(w io.Writer) {
		printf(w, "Status:\t%s\n", resp.Status)
		if resp.Message != "" {
			printf(w, "%s; run 'wabridgectl qr'\n", resp.Message)
		}
	})
}

func cmdLogout(ctx *cli.Context) error {
	rctx, cancel := rpcContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).Logout(rctx)
	if err != nil {
		return err
	}
	return emit(ctx, resp, func(w io.Writer) {
		printf(w, "%s\n", resp.Message)
	})
}

var errAlreadyLinked = errors.New("session is already connected")

// cmdQR polls the status until a pairing code shows up. A disconnected
// session is started first.
func cmdQR(ctx *cli.Context) error {
	c := getClient(ctx)
	deadline := time.Now().Add(ctx.Duration("wait"))
	started := false

	for {
		rctx, cancel := rpcContext(ctx)
		st, err := c.GetStatus(rctx)
		if err == nil && st.Status == "disconnected" && !started {
			started = true
			_, err = c.Start(rctx)
		}
		cancel()
		if err != nil {
			return err
		}

		switch {
		case st.Status == "connected":
			return errAlreadyLinked
		case st.PairingChallenge != "":
			return printQR(ctx, st)
		case time.Now().After(deadline):
			return fmt.Errorf("no pairing code after %s (status %s)", ctx.Duration("wait"), st.Status)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func printQR(ctx *cli.Context, st *api.GetStatusResponse) error {
	if ctx.Bool("json") {
		return emit(ctx, map[string]string{"pairingChallenge": st.PairingChallenge}, nil)
	}
	qr, err := qrcode.New(st.PairingChallenge, qrcode.Low)
	if err != nil {
		return fmt.Errorf("render QR code: %w", err)
	}
	fmt.Println(qr.ToSmallString(false))
	fmt.Println("Scan with WhatsApp > Linked devices > Link a device.")
	return nil
}
