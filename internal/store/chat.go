package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Names fall back from the chat's own name to the contact's push name,
// then the contact's address-book name.
const chatSelect = `
	SELECT c.jid,
		COALESCE(c.name, ct.notify, ct.name, ''),
		c.is_group, c.unread_count, COALESCE(c.last_message_at, 0)
	FROM chats c
	LEFT JOIN contacts ct ON c.jid = ct.jid`

// ListChats returns chats ordered by last activity, chats without any
// activity last.
func (db *DB) ListChats(ctx context.Context, limit, offset int) ([]ChatRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, chatSelect+`
		ORDER BY c.last_message_at IS NULL, c.last_message_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chats []ChatRow
	for rows.Next() {
		var c ChatRow
		if err := rows.Scan(&c.JID, &c.Name, &c.IsGroup, &c.UnreadCount, &c.LastMessageAt); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns a single chat by JID, or ErrNotFound.
func (db *DB) GetChat(ctx context.Context, jid string) (*ChatRow, error) {
	var c ChatRow
	err := db.QueryRowContext(ctx, chatSelect+` WHERE c.jid = ?`, jid).
		Scan(&c.JID, &c.Name, &c.IsGroup, &c.UnreadCount, &c.LastMessageAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return &c, nil
}

// ChatCount returns the total number of chats.
func (db *DB) ChatCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&count)
	return count, err
}
