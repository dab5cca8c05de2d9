package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const messageSelect = `
	SELECT m.id, m.chat_jid, COALESCE(m.sender_jid, ''), COALESCE(m.content, ''),
		m.message_type, m.is_from_me, m.timestamp, COALESCE(m.raw_data, ''),
		COALESCE(c.name, '')
	FROM messages m
	LEFT JOIN chats c ON m.chat_jid = c.jid`

// ListMessages returns messages matching q, joined with their chat name.
func (db *DB) ListMessages(ctx context.Context, q MessageQuery) ([]MessageRow, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	var (
		where []string
		args  []any
	)
	if q.ChatJID != "" {
		where = append(where, "m.chat_jid = ?")
		args = append(args, q.ChatJID)
	}
	if q.Search != "" {
		where = append(where, "m.content LIKE ?")
		args = append(args, "%"+q.Search+"%")
	}
	if q.Since > 0 {
		where = append(where, "m.timestamp > ?")
		args = append(args, q.Since)
	}

	query := messageSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if q.Order == OldestFirst {
		query += " ORDER BY m.timestamp ASC"
	} else {
		query += " ORDER BY m.timestamp DESC"
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []MessageRow
	for rows.Next() {
		var m MessageRow
		if err := rows.Scan(&m.ID, &m.ChatJID, &m.SenderJID, &m.Content,
			&m.MessageType, &m.IsFromMe, &m.Timestamp, &m.RawData, &m.ChatName); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// GetMessage returns a message by id, or ErrNotFound.
func (db *DB) GetMessage(ctx context.Context, id string) (*MessageRow, error) {
	var m MessageRow
	err := db.QueryRowContext(ctx, messageSelect+` WHERE m.id = ?`, id).
		Scan(&m.ID, &m.ChatJID, &m.SenderJID, &m.Content,
			&m.MessageType, &m.IsFromMe, &m.Timestamp, &m.RawData, &m.ChatName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &m, nil
}

// MessageCount returns the number of messages in a chat, or in the whole
// store when chatJID is empty.
func (db *DB) MessageCount(ctx context.Context, chatJID string) (int64, error) {
	var count int64
	var err error
	if chatJID == "" {
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	} else {
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE chat_jid = ?`, chatJID).Scan(&count)
	}
	return count, err
}
