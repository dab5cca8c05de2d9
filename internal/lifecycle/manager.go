// Package lifecycle drives the session's connection to the network: start,
// pairing, reconnects, logout and outbound sends.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/wabridge/internal/bus"
	"github.com/matheus3301/wabridge/internal/jid"
	"github.com/matheus3301/wabridge/internal/status"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned by Start when a logout or a newer start replaced
// the connection it was opening.
var ErrSuperseded = errors.New("start superseded")

// Conn is one live connection to the network.
type Conn interface {
	Send(ctx context.Context, to, text string) (string, error)
	Logout(ctx context.Context) error
	SaveCredentials(ctx context.Context) error
	Close()
}

// Network opens connections and owns the on-disk credentials.
type Network interface {
	// Open starts a connection whose events carry gen.
	Open(ctx context.Context, gen uint64) (Conn, error)
	ClearAuth(ctx context.Context) error
}

// Recorder stores messages this session sent.
type Recorder interface {
	RecordOutgoing(ctx context.Context, chatJID, msgID, text string) error
}

// Config holds the retry delays.
type Config struct {
	RestartDelay   time.Duration
	ReconnectDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.RestartDelay <= 0 {
		c.RestartDelay = DefaultRestartDelay
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	return c
}

// SendResult is the outcome of Send. Exactly one of MessageID and Error is set.
type SendResult struct {
	Success   bool
	MessageID string
	To        string
	Error     string
}

// Manager owns the active connection handle and applies the reconnect policy.
type Manager struct {
	net      Network
	session  *status.Session
	recorder Recorder
	cfg      Config
	logger   *zap.Logger

	group singleflight.Group

	mu         sync.Mutex
	conn       Conn
	gen        uint64
	retry      *time.Timer
	initCancel context.CancelFunc

	afterFunc func(time.Duration, func()) *time.Timer
}

// NewManager creates a lifecycle manager. recorder may be nil.
func NewManager(net Network, session *status.Session, recorder Recorder, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		net:       net,
		session:   session,
		recorder:  recorder,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		afterFunc: time.AfterFunc,
	}
}

// Status returns the current session snapshot.
func (m *Manager) Status() status.Snapshot {
	return m.session.Snapshot()
}

// Start connects the session. Concurrent callers share one initialization
// and its result. Start is a no-op while connected.
func (m *Manager) Start(ctx context.Context) error {
	return m.startFrom(ctx, 0)
}

// startFrom runs Start on behalf of the connection generation that scheduled
// it. A non-zero from that is no longer current yields ErrSuperseded.
func (m *Manager) startFrom(ctx context.Context, from uint64) error {
	ch := m.group.DoChan("start", func() (any, error) {
		return nil, m.start(from)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) start(from uint64) error {
	m.mu.Lock()
	if from != 0 && from != m.gen {
		m.mu.Unlock()
		return ErrSuperseded
	}
	if m.conn != nil && m.session.Current() == status.Connected {
		m.mu.Unlock()
		return nil
	}
	m.stopRetryLocked()
	old := m.conn
	m.conn = nil
	m.gen++
	gen := m.gen
	initCtx, cancel := context.WithCancel(context.Background())
	m.initCancel = cancel
	m.session.SetError("")
	m.transition(status.Connecting)
	m.mu.Unlock()
	defer cancel()

	if old != nil {
		old.Close()
	}
	m.logger.Info("opening connection", zap.Uint64("gen", gen))

	conn, err := m.net.Open(initCtx, gen)

	m.mu.Lock()
	superseded := m.gen != gen
	if !superseded {
		m.initCancel = nil
		if err == nil {
			m.conn = conn
		}
	}
	m.mu.Unlock()

	if superseded {
		if conn != nil {
			conn.Close()
		}
		return ErrSuperseded
	}
	if err != nil {
		m.logger.Error("open connection failed", zap.Error(err))
		m.session.SetError("failed to start: " + err.Error())
		m.transition(status.Disconnected)
		return fmt.Errorf("open connection: %w", err)
	}
	return nil
}

// HandleConnectionUpdate applies a connection event. Events from a
// connection other than the current one are ignored. The generation check
// and the state change share m.mu, so a concurrent Logout either precedes
// the event or resets after it.
func (m *Manager) HandleConnectionUpdate(ctx context.Context, evt bus.ConnectionUpdate) {
	if evt.Connection == bus.Close {
		reason := bus.Reason{Kind: bus.ReasonOther}
		if evt.Reason != nil {
			reason = *evt.Reason
		}
		m.handleClose(ctx, evt.Gen, reason)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(evt) {
		return
	}
	switch evt.Connection {
	case bus.Connecting:
		if evt.PairingChallenge != "" {
			m.logger.Info("pairing challenge received")
			m.session.SetPairingChallenge(evt.PairingChallenge)
		}
		m.transition(status.Connecting)
	case bus.Open:
		m.logger.Info("connection open")
		m.session.SetPairingChallenge("")
		m.session.SetError("")
		m.transition(status.Connected)
	}
}

func (m *Manager) currentLocked(evt bus.ConnectionUpdate) bool {
	if evt.Gen == m.gen {
		return true
	}
	m.logger.Debug("ignoring stale connection event",
		zap.Uint64("gen", evt.Gen), zap.Uint64("current", m.gen), zap.String("connection", string(evt.Connection)))
	return false
}

func (m *Manager) handleClose(ctx context.Context, gen uint64, reason bus.Reason) {
	d := Decide(reason, m.cfg)
	m.logger.Warn("connection closed",
		zap.Uint64("gen", gen),
		zap.Stringer("reason", reason),
		zap.String("next_status", string(d.Status)),
		zap.Duration("retry_after", d.RetryAfter),
		zap.Bool("clear_auth", d.ClearAuth),
	)

	m.mu.Lock()
	if !m.currentLocked(bus.ConnectionUpdate{Gen: gen, Connection: bus.Close}) {
		m.mu.Unlock()
		return
	}
	old := m.conn
	m.conn = nil
	m.stopRetryLocked()
	if d.RetryAfter > 0 {
		m.retry = m.afterFunc(d.RetryAfter, func() { m.retryStart(gen) })
	}
	if d.ClearChallenge {
		m.session.SetPairingChallenge("")
	}
	if d.ClearAuth {
		if err := m.net.ClearAuth(ctx); err != nil {
			m.logger.Error("failed to clear credentials", zap.Error(err))
		}
	}
	m.session.SetError(d.Error)
	m.transition(d.Status)
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// retryStart reconnects on behalf of gen. It does nothing once a logout, stop
// or newer start has moved past gen.
func (m *Manager) retryStart(gen uint64) {
	err := m.startFrom(context.Background(), gen)
	switch {
	case errors.Is(err, ErrSuperseded):
		m.logger.Debug("scheduled reconnect superseded", zap.Uint64("gen", gen))
	case err != nil:
		m.logger.Warn("scheduled reconnect failed", zap.Error(err))
	}
}

// HandleCredentialsUpdate persists fresh credentials through the connection.
func (m *Manager) HandleCredentialsUpdate(ctx context.Context, evt bus.CredentialsUpdate) {
	m.mu.Lock()
	conn := m.conn
	current := m.gen
	m.mu.Unlock()
	if conn == nil || evt.Gen != current {
		return
	}
	if err := conn.SaveCredentials(ctx); err != nil {
		m.logger.Error("failed to save credentials", zap.Error(err))
	}
}

// Logout signs the session out, drops credentials and resets to
// Disconnected. The network logout is best effort.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.gen++
	m.stopRetryLocked()
	if m.initCancel != nil {
		m.initCancel()
		m.initCancel = nil
	}
	m.session.Reset()
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Logout(ctx); err != nil {
			m.logger.Warn("network logout failed", zap.Error(err))
		}
		conn.Close()
	}

	err := m.net.ClearAuth(ctx)
	m.logger.Info("logged out")
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// Stop closes the connection without touching credentials.
func (m *Manager) Stop() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.gen++
	m.stopRetryLocked()
	if m.initCancel != nil {
		m.initCancel()
		m.initCancel = nil
	}
	m.session.Reset()
	m.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Send delivers a text message. It never returns an error; failures are
// reported in the result.
func (m *Manager) Send(ctx context.Context, to, text string) SendResult {
	addr := jid.Normalize(to)
	res := SendResult{To: addr}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	switch {
	case m.session.Current() != status.Connected || conn == nil:
		res.Error = "not connected"
		return res
	case addr == "":
		res.Error = "recipient is required"
		return res
	case strings.TrimSpace(text) == "":
		res.Error = "message text is required"
		return res
	}

	id, err := conn.Send(ctx, addr, text)
	if err != nil {
		m.logger.Warn("send failed", zap.String("to", addr), zap.Error(err))
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.MessageID = id

	if m.recorder != nil {
		if err := m.recorder.RecordOutgoing(ctx, addr, id, text); err != nil {
			m.logger.Warn("failed to record sent message", zap.String("msg_id", id), zap.Error(err))
		}
	}
	return res
}

func (m *Manager) transition(to status.State) {
	if err := m.session.Transition(to); err != nil {
		m.logger.Warn("state transition rejected", zap.Error(err))
	}
}

func (m *Manager) stopRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}
