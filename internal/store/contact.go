package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const contactColumns = `jid, COALESCE(name, ''), COALESCE(notify, ''), COALESCE(phone, ''), updated_at`

// GetContact returns a contact by JID, or ErrNotFound.
func (db *DB) GetContact(ctx context.Context, jid string) (*Contact, error) {
	var c Contact
	err := db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE jid = ?`, jid).
		Scan(&c.JID, &c.Name, &c.Notify, &c.Phone, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return &c, nil
}

// ListContacts returns contacts ordered by name. A non-empty search matches
// name, notify or phone and orders the most recently updated first.
func (db *DB) ListContacts(ctx context.Context, search string, limit, offset int) ([]Contact, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if search != "" {
		pattern := "%" + search + "%"
		rows, err = db.QueryContext(ctx, `
			SELECT `+contactColumns+` FROM contacts
			WHERE name LIKE ? OR notify LIKE ? OR phone LIKE ?
			ORDER BY updated_at DESC
			LIMIT ? OFFSET ?`, pattern, pattern, pattern, limit, offset)
	} else {
		rows, err = db.QueryContext(ctx, `
			SELECT `+contactColumns+` FROM contacts
			ORDER BY COALESCE(name, notify, phone) ASC
			LIMIT ? OFFSET ?`, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.JID, &c.Name, &c.Notify, &c.Phone, &c.UpdatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Counts returns the number of stored contacts, chats and messages.
func (db *DB) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM contacts),
			(SELECT COUNT(*) FROM chats),
			(SELECT COUNT(*) FROM messages)`).
		Scan(&c.Contacts, &c.Chats, &c.Messages)
	if err != nil {
		return Counts{}, fmt.Errorf("count records: %w", err)
	}
	return c, nil
}
