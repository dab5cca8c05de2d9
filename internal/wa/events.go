package wa

import (
	"fmt"

	"github.com/matheus3301/wabridge/internal/bus"
	"github.com/matheus3301/wabridge/internal/store"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

// handle is registered as the client's event handler. It only translates
// and enqueues; all state changes happen on the dispatch loop.
func (c *connection) handle(raw any) {
	for _, evt := range translate(raw, c.gen) {
		if !c.queue.Publish(evt) {
			c.logger.Debug("queue closed, dropping event", zap.String("event", fmt.Sprintf("%T", evt)))
			return
		}
	}
}

// watchQR turns pairing channel items into connection updates.
func (c *connection) watchQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		evt, ok := translateQR(item, c.gen)
		if !ok {
			continue
		}
		if !c.queue.Publish(evt) {
			return
		}
	}
}

func translateQR(item whatsmeow.QRChannelItem, gen uint64) (bus.ConnectionUpdate, bool) {
	switch item.Event {
	case whatsmeow.QRChannelEventCode:
		return bus.ConnectionUpdate{Gen: gen, Connection: bus.Connecting, PairingChallenge: item.Code}, true
	case whatsmeow.QRChannelTimeout.Event:
		return closed(gen, bus.ReasonTimedOut, "pairing timed out"), true
	case whatsmeow.QRChannelSuccess.Event:
		// Connected and the login restart follow as regular events.
		return bus.ConnectionUpdate{}, false
	case whatsmeow.QRChannelEventError:
		msg := "pairing failed"
		if item.Error != nil {
			msg = item.Error.Error()
		}
		return closed(gen, bus.ReasonOther, msg), true
	default:
		return closed(gen, bus.ReasonOther, item.Event), true
	}
}

func closed(gen uint64, kind bus.ReasonKind, msg string) bus.ConnectionUpdate {
	return bus.ConnectionUpdate{
		Gen:        gen,
		Connection: bus.Close,
		Reason:     &bus.Reason{Kind: kind, Message: msg},
	}
}

// translate maps one whatsmeow event onto zero or more bus events.
func translate(raw any, gen uint64) []bus.Event {
	switch evt := raw.(type) {
	case *events.Connected:
		return []bus.Event{bus.ConnectionUpdate{Gen: gen, Connection: bus.Open}}
	case *events.PairSuccess:
		return []bus.Event{bus.CredentialsUpdate{Gen: gen}}
	case *events.ManualLoginReconnect:
		return []bus.Event{closed(gen, bus.ReasonRestartRequired, "")}
	case *events.LoggedOut:
		return []bus.Event{closed(gen, bus.ReasonLoggedOut, evt.Reason.String())}
	case *events.StreamReplaced:
		return []bus.Event{closed(gen, bus.ReasonConflict, "stream replaced by another client")}
	case *events.ConnectFailure:
		if evt.Reason.IsLoggedOut() {
			return []bus.Event{closed(gen, bus.ReasonLoggedOut, evt.Reason.String())}
		}
		msg := evt.Reason.String()
		if evt.Message != "" {
			msg += ": " + evt.Message
		}
		return []bus.Event{closed(gen, bus.ReasonOther, msg)}
	case *events.TemporaryBan:
		return []bus.Event{closed(gen, bus.ReasonOther, evt.String())}
	case *events.ClientOutdated:
		return []bus.Event{closed(gen, bus.ReasonOther, "client outdated")}
	case *events.Disconnected:
		return []bus.Event{closed(gen, bus.ReasonConnectionLost, "")}

	case *events.Message:
		env := messageEnvelope(evt)
		if env == nil {
			return nil
		}
		return []bus.Event{bus.MessagesReceived{Messages: []*waWeb.WebMessageInfo{env}, Kind: bus.Notify}}
	case *events.HistorySync:
		if evt.Data == nil {
			return nil
		}
		return []bus.Event{translateHistory(evt.Data)}

	case *events.PushName:
		if evt.NewPushName == "" {
			return nil
		}
		return contactsChanged(store.Contact{JID: evt.JID.ToNonAD().String(), Notify: evt.NewPushName})
	case *events.BusinessName:
		if evt.NewBusinessName == "" {
			return nil
		}
		return contactsChanged(store.Contact{JID: evt.JID.ToNonAD().String(), Notify: evt.NewBusinessName})
	case *events.Contact:
		name := evt.Action.GetFullName()
		if name == "" {
			name = evt.Action.GetFirstName()
		}
		if name == "" {
			return nil
		}
		return contactsChanged(store.Contact{JID: evt.JID.ToNonAD().String(), Name: name})

	case *events.GroupInfo:
		if evt.Name == nil || evt.Name.Name == "" {
			return nil
		}
		return chatsChanged(store.Chat{JID: evt.JID.String(), Name: evt.Name.Name})
	case *events.JoinedGroup:
		return chatsChanged(store.Chat{JID: evt.JID.String(), Name: evt.GroupInfo.Name})
	case *events.MarkChatAsRead:
		if !evt.Action.GetRead() {
			return nil
		}
		zero := 0
		return chatsChanged(store.Chat{JID: evt.JID.String(), UnreadCount: &zero})
	}
	return nil
}

func contactsChanged(c store.Contact) []bus.Event {
	return []bus.Event{bus.ContactsChanged{Contacts: []store.Contact{c}}}
}

func chatsChanged(c store.Chat) []bus.Event {
	return []bus.Event{bus.ChatsChanged{Chats: []store.Chat{c}}}
}
