package wa

import (
	"github.com/matheus3301/wabridge/internal/bus"
	"github.com/matheus3301/wabridge/internal/store"
	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waHistorySync"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

// finalProgress is the HistorySync progress value of the last page.
const finalProgress = 100

// messageEnvelope converts a live message into the envelope shape history
// sync uses, so both paths share one ingestion routine. It returns nil for
// messages without an id.
func messageEnvelope(evt *events.Message) *waWeb.WebMessageInfo {
	info := evt.Info
	if info.ID == "" {
		return nil
	}

	key := &waCommon.MessageKey{
		RemoteJID: proto.String(info.Chat.ToNonAD().String()),
		FromMe:    proto.Bool(info.IsFromMe),
		ID:        proto.String(info.ID),
	}
	if info.IsGroup && !info.IsFromMe {
		key.Participant = proto.String(phoneSender(info.MessageSource).String())
	}

	env := &waWeb.WebMessageInfo{
		Key:     key,
		Message: evt.Message,
	}
	if !info.Timestamp.IsZero() {
		env.MessageTimestamp = proto.Uint64(uint64(info.Timestamp.Unix()))
	}
	if info.PushName != "" {
		env.PushName = proto.String(info.PushName)
	}
	return env
}

// phoneSender prefers the phone-number address of a group sender over its
// hidden-user alias.
func phoneSender(src types.MessageSource) types.JID {
	if src.Sender.Server == types.HiddenUserServer && !src.SenderAlt.IsEmpty() {
		return src.SenderAlt.ToNonAD()
	}
	return src.Sender.ToNonAD()
}

// translateHistory maps one history sync page: push names become contacts,
// conversations become chats and their messages envelopes.
func translateHistory(data *waHistorySync.HistorySync) bus.HistoryBatch {
	batch := bus.HistoryBatch{IsFinalPage: data.GetProgress() >= finalProgress}

	for _, pn := range data.GetPushnames() {
		if pn.GetID() == "" || pn.GetPushname() == "" {
			continue
		}
		batch.Contacts = append(batch.Contacts, store.Contact{JID: pn.GetID(), Notify: pn.GetPushname()})
	}

	for _, conv := range data.GetConversations() {
		chatJID := conv.GetID()
		if chatJID == "" {
			continue
		}
		chat := store.Chat{
			JID:           chatJID,
			Name:          conv.GetName(),
			LastMessageAt: int64(conv.GetConversationTimestamp()) * 1000,
		}
		if conv.UnreadCount != nil {
			n := int(conv.GetUnreadCount())
			chat.UnreadCount = &n
		}
		batch.Chats = append(batch.Chats, chat)

		for _, hm := range conv.GetMessages() {
			env := hm.GetMessage()
			if env == nil {
				continue
			}
			if env.GetKey().GetRemoteJID() == "" {
				if env.Key == nil {
					env.Key = &waCommon.MessageKey{}
				}
				env.Key.RemoteJID = proto.String(chatJID)
			}
			batch.Messages = append(batch.Messages, env)
		}
	}
	return batch
}
