package bus

import (
	"fmt"

	"github.com/matheus3301/wabridge/internal/store"
	"go.mau.fi/whatsmeow/proto/waWeb"
)

// Event is one item of the protocol event stream. The set of variants is
// closed: only types in this package implement it.
type Event interface {
	event()
}

// Connection is the connection phase carried by a ConnectionUpdate.
type Connection string

const (
	Open       Connection = "open"
	Close      Connection = "close"
	Connecting Connection = "connecting"
)

// ReasonKind classifies why a connection closed.
type ReasonKind int

const (
	ReasonOther ReasonKind = iota
	ReasonRestartRequired
	ReasonLoggedOut
	ReasonConflict
	ReasonConnectionLost
	ReasonConnectionClosed
	ReasonTimedOut
)

var reasonNames = map[ReasonKind]string{
	ReasonOther:            "other",
	ReasonRestartRequired:  "restart-required",
	ReasonLoggedOut:        "logged-out",
	ReasonConflict:         "conflict",
	ReasonConnectionLost:   "connection-lost",
	ReasonConnectionClosed: "connection-closed",
	ReasonTimedOut:         "timed-out",
}

func (k ReasonKind) String() string {
	if name, ok := reasonNames[k]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", int(k))
}

// Reason describes a disconnect. Message carries the raw text reported by
// the network, if any.
type Reason struct {
	Kind    ReasonKind
	Message string
}

func (r Reason) String() string {
	if r.Message == "" {
		return r.Kind.String()
	}
	return r.Kind.String() + ": " + r.Message
}

// ConnectionUpdate reports a change of the connection identified by Gen.
type ConnectionUpdate struct {
	Gen              uint64
	Connection       Connection
	PairingChallenge string
	Reason           *Reason
}

// CredentialsUpdate signals that pairing produced new credentials that must
// be persisted.
type CredentialsUpdate struct {
	Gen uint64
}

// ContactsChanged carries contact records from explicit contact events.
type ContactsChanged struct {
	Contacts []store.Contact
}

// ChatsChanged carries authoritative chat records.
type ChatsChanged struct {
	Chats []store.Chat
}

// MessageKind tells live deliveries apart from appended backlog.
type MessageKind string

const (
	Notify MessageKind = "notify"
	Append MessageKind = "append"
)

// MessagesReceived carries an ordered batch of message envelopes.
type MessagesReceived struct {
	Messages []*waWeb.WebMessageInfo
	Kind     MessageKind
}

// HistoryBatch is one page of bulk history.
type HistoryBatch struct {
	Contacts    []store.Contact
	Chats       []store.Chat
	Messages    []*waWeb.WebMessageInfo
	IsFinalPage bool
}

func (ConnectionUpdate) event()  {}
func (CredentialsUpdate) event() {}
func (ContactsChanged) event()   {}
func (ChatsChanged) event()      {}
func (MessagesReceived) event()  {}
func (HistoryBatch) event()      {}
