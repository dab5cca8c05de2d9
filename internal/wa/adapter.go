// Package wa connects the session to WhatsApp through whatsmeow and turns
// its events into the bridge's event stream.
package wa

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/matheus3301/wabridge/internal/bus"
	"github.com/matheus3301/wabridge/internal/lifecycle"
	"github.com/matheus3301/wabridge/internal/logging"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	_ "github.com/mattn/go-sqlite3"
)

// Adapter owns the whatsmeow credential store and opens connections on it.
type Adapter struct {
	container *sqlstore.Container
	queue     *bus.Queue
	logger    *zap.Logger
	waLog     waLog.Logger
}

// Options configures a new Adapter.
type Options struct {
	// DBPath is the whatsmeow credential database.
	DBPath string
	// DeviceName is shown in the phone's linked devices list.
	DeviceName string
}

// NewAdapter opens the credential store and returns an adapter publishing
// onto q.
func NewAdapter(ctx context.Context, opts Options, q *bus.Queue, logger *zap.Logger) (*Adapter, error) {
	if opts.DeviceName != "" {
		wastore.SetOSInfo(opts.DeviceName, [3]uint32{0, 1, 0})
	}

	wl := logging.WA(logger, "whatsmeow")
	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", opts.DBPath),
		wl.Sub("Database"),
	)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	return &Adapter{
		container: container,
		queue:     q,
		logger:    logger,
		waLog:     wl,
	}, nil
}

// HasCredentials reports whether a paired device is stored.
func (a *Adapter) HasCredentials(ctx context.Context) bool {
	device, err := a.container.GetFirstDevice(ctx)
	return err == nil && device.ID != nil
}

// PhoneNumber returns the paired account's phone number, or empty string.
func (a *Adapter) PhoneNumber(ctx context.Context) string {
	device, err := a.container.GetFirstDevice(ctx)
	if err != nil || device.ID == nil {
		return ""
	}
	return device.ID.User
}

// Open creates a fresh client and connects it. Without stored credentials
// the connection first emits pairing challenges.
func (a *Adapter) Open(ctx context.Context, gen uint64) (lifecycle.Conn, error) {
	device, err := a.container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device store: %w", err)
	}

	client := whatsmeow.NewClient(device, a.waLog.Sub("Client"))
	client.EnableAutoReconnect = false
	client.DisableLoginAutoReconnect = true

	c := &connection{
		client: client,
		gen:    gen,
		queue:  a.queue,
		logger: a.logger.With(zap.Uint64("gen", gen)),
	}
	client.AddEventHandler(c.handle)

	if device.ID == nil {
		qrCtx, cancel := context.WithCancel(context.Background())
		qrChan, err := client.GetQRChannel(qrCtx)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("get QR channel: %w", err)
		}
		c.cancelQR = cancel
		go c.watchQR(qrChan)
	}

	a.logger.Info("connecting to WhatsApp", zap.Uint64("gen", gen), zap.Bool("paired", device.ID != nil))
	if err := client.Connect(); err != nil {
		c.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := ctx.Err(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// ClearAuth deletes every stored device, forcing a fresh pairing.
func (a *Adapter) ClearAuth(ctx context.Context) error {
	devices, err := a.container.GetAllDevices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	var errs []error
	for _, d := range devices {
		if d.ID == nil {
			continue
		}
		if err := d.Delete(ctx); err != nil {
			errs = append(errs, fmt.Errorf("delete device %s: %w", d.ID, err))
		}
	}
	if len(errs) == 0 {
		a.logger.Info("credentials cleared", zap.Int("devices", len(devices)))
	}
	return errors.Join(errs...)
}

// Close releases the credential store.
func (a *Adapter) Close() error {
	return a.container.Close()
}

// connection is one whatsmeow client and the events it emits.
type connection struct {
	client   *whatsmeow.Client
	gen      uint64
	queue    *bus.Queue
	logger   *zap.Logger
	cancelQR context.CancelFunc

	closeOnce sync.Once
}

// Send sends a text message and returns the server-assigned message id.
func (c *connection) Send(ctx context.Context, to, text string) (string, error) {
	jid, err := types.ParseJID(to)
	if err != nil {
		return "", fmt.Errorf("parse JID: %w", err)
	}
	resp, err := c.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.ID, nil
}

// Logout unlinks this device on the server and removes local credentials.
func (c *connection) Logout(ctx context.Context) error {
	return c.client.Logout(ctx)
}

// SaveCredentials writes the device's current credentials to the store.
func (c *connection) SaveCredentials(ctx context.Context) error {
	if c.client.Store.ID == nil {
		return nil
	}
	return c.client.Store.Save(ctx)
}

// Close disconnects the client. Safe to call more than once.
func (c *connection) Close() {
	c.closeOnce.Do(func() {
		if c.cancelQR != nil {
			c.cancelQR()
		}
		c.client.Disconnect()
	})
}
