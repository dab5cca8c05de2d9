package lifecycle

import (
	"time"

	"github.com/matheus3301/wabridge/internal/bus"
	"github.com/matheus3301/wabridge/internal/status"
)

// Default retry delays.
const (
	DefaultRestartDelay   = 1500 * time.Millisecond
	DefaultReconnectDelay = 2 * time.Second
)

// Decision is what the manager does after a connection closes.
type Decision struct {
	Status         status.State
	ClearChallenge bool
	ClearAuth      bool
	RetryAfter     time.Duration // zero means no retry
	Error          string
}

// Decide maps a disconnect reason to a Decision. Pairing restarts and
// transient network faults retry; logout and conflict drop credentials;
// anything else stops in a visible error state.
func Decide(r bus.Reason, cfg Config) Decision {
	switch r.Kind {
	case bus.ReasonRestartRequired:
		return Decision{
			Status:         status.Connecting,
			ClearChallenge: true,
			RetryAfter:     cfg.RestartDelay,
			Error:          "reconnecting after pairing",
		}
	case bus.ReasonLoggedOut:
		return Decision{
			Status:         status.Disconnected,
			ClearChallenge: true,
			ClearAuth:      true,
			Error:          "logged out, start the session again to pair",
		}
	case bus.ReasonConflict:
		return Decision{
			Status:         status.Disconnected,
			ClearChallenge: true,
			ClearAuth:      true,
			Error:          "session conflict: another client replaced this one, start the session again to pair",
		}
	case bus.ReasonConnectionLost, bus.ReasonConnectionClosed, bus.ReasonTimedOut:
		return Decision{
			Status:     status.Connecting,
			RetryAfter: cfg.ReconnectDelay,
			Error:      "reconnecting",
		}
	default:
		msg := r.Message
		if msg == "" {
			msg = r.Kind.String()
		}
		return Decision{
			Status:         status.Disconnected,
			ClearChallenge: true,
			Error:          "disconnected: " + msg,
		}
	}
}
