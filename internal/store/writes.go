package store

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/wabridge/internal/jid"
)

type stmtKey string

const (
	stmtUpsertContact stmtKey = "upsert_contact"
	stmtUpsertChat    stmtKey = "upsert_chat"
	stmtTouchChat     stmtKey = "touch_chat"
	stmtUpsertMessage stmtKey = "upsert_message"
	stmtSetSyncStatus stmtKey = "set_sync_status"
)

var writeSQL = map[stmtKey]string{
	// Empty fields arrive as NULL and never replace a stored value.
	stmtUpsertContact: `
		INSERT INTO contacts (jid, name, notify, phone, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(jid) DO UPDATE SET
			name = COALESCE(excluded.name, contacts.name),
			notify = COALESCE(excluded.notify, contacts.notify),
			phone = COALESCE(excluded.phone, contacts.phone),
			updated_at = excluded.updated_at`,

	// Authoritative chat write: present fields overwrite.
	stmtUpsertChat: `
		INSERT INTO chats (jid, name, is_group, unread_count, last_message_at, updated_at)
		VALUES (?, ?, ?, COALESCE(?, 0), ?, ?)
		ON CONFLICT(jid) DO UPDATE SET
			name = COALESCE(excluded.name, chats.name),
			is_group = excluded.is_group,
			unread_count = COALESCE(?, chats.unread_count),
			last_message_at = COALESCE(excluded.last_message_at, chats.last_message_at),
			updated_at = excluded.updated_at`,

	// Message-derived chat write: fills a missing name, only moves
	// last_message_at forward, leaves unread_count alone.
	stmtTouchChat: `
		INSERT INTO chats (jid, name, is_group, unread_count, last_message_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT(jid) DO UPDATE SET
			name = COALESCE(chats.name, excluded.name),
			is_group = excluded.is_group,
			last_message_at = MAX(COALESCE(chats.last_message_at, 0), COALESCE(excluded.last_message_at, 0)),
			updated_at = excluded.updated_at`,

	// Re-delivery of an id replaces every column.
	stmtUpsertMessage: `
		INSERT INTO messages (id, chat_jid, sender_jid, content, message_type, is_from_me, timestamp, raw_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chat_jid = excluded.chat_jid,
			sender_jid = excluded.sender_jid,
			content = excluded.content,
			message_type = excluded.message_type,
			is_from_me = excluded.is_from_me,
			timestamp = excluded.timestamp,
			raw_data = excluded.raw_data`,

	stmtSetSyncStatus: `
		INSERT INTO sync_status (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
}

// writes holds the upsert operations shared by DB and Tx.
type writes struct {
	exec func(ctx context.Context, key stmtKey, args ...any) error
}

// UpsertContact merges c into the stored contact. Empty fields are ignored.
func (w writes) UpsertContact(ctx context.Context, c Contact) error {
	if c.JID == "" {
		return fmt.Errorf("upsert contact: empty jid")
	}
	err := w.exec(ctx, stmtUpsertContact,
		c.JID, nullString(c.Name), nullString(c.Notify), nullString(c.Phone), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert contact %q: %w", c.JID, err)
	}
	return nil
}

// UpsertChat writes an authoritative chat record. is_group is derived from the jid.
func (w writes) UpsertChat(ctx context.Context, c Chat) error {
	if c.JID == "" {
		return fmt.Errorf("upsert chat: empty jid")
	}
	var unread any
	if c.UnreadCount != nil {
		unread = *c.UnreadCount
	}
	err := w.exec(ctx, stmtUpsertChat,
		c.JID, nullString(c.Name), jid.IsGroup(c.JID), unread, nullInt64(c.LastMessageAt), time.Now().UnixMilli(),
		unread)
	if err != nil {
		return fmt.Errorf("upsert chat %q: %w", c.JID, err)
	}
	return nil
}

// TouchChat makes sure a chat row exists for a message that references it.
func (w writes) TouchChat(ctx context.Context, t ChatTouch) error {
	if t.JID == "" {
		return fmt.Errorf("touch chat: empty jid")
	}
	err := w.exec(ctx, stmtTouchChat,
		t.JID, nullString(t.NameFallback), jid.IsGroup(t.JID), nullInt64(t.LastMessageAt), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("touch chat %q: %w", t.JID, err)
	}
	return nil
}

// UpsertMessage inserts m or fully replaces the row with the same id.
func (w writes) UpsertMessage(ctx context.Context, m Message) error {
	if m.ID == "" {
		return fmt.Errorf("upsert message: empty id")
	}
	err := w.exec(ctx, stmtUpsertMessage,
		m.ID, m.ChatJID, nullString(m.SenderJID), m.Content, m.MessageType, m.IsFromMe, m.Timestamp, nullString(m.RawData))
	if err != nil {
		return fmt.Errorf("upsert message %q: %w", m.ID, err)
	}
	return nil
}

// SetSyncStatus records value under key, replacing any previous value.
func (w writes) SetSyncStatus(ctx context.Context, key, value string) error {
	if err := w.exec(ctx, stmtSetSyncStatus, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("set sync status %q: %w", key, err)
	}
	return nil
}
