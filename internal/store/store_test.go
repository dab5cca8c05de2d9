package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	require.NoError(t, db.Prepare(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func intPtr(v int) *int { return &v }

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	require.NoError(t, err)
	assert.False(t, result.Changed, "second Migrate() should report Changed=false")
	assert.Equal(t, uint(1), result.Version)
	assert.False(t, result.Dirty)
}

func TestMigrateCreatesIndexes(t *testing.T) {
	db := testDB(t)

	for _, name := range []string{
		"idx_messages_chat_jid",
		"idx_messages_timestamp",
		"idx_messages_content",
		"idx_chats_last_message",
		"idx_contacts_phone",
	} {
		var count int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?`, name).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, name)
	}
}

func TestContactMergeKeepsNonEmptyFields(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	const j = "15551234567@s.whatsapp.net"

	require.NoError(t, db.UpsertContact(ctx, Contact{JID: j, Notify: "Alice", Phone: "15551234567"}))
	require.NoError(t, db.UpsertContact(ctx, Contact{JID: j}))

	c, err := db.GetContact(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, "Alice", c.Notify)
	assert.Equal(t, "15551234567", c.Phone)
	assert.Empty(t, c.Name)

	require.NoError(t, db.UpsertContact(ctx, Contact{JID: j, Name: "Alice (work)", Notify: "Ali"}))
	c, err = db.GetContact(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, "Ali", c.Notify)
	assert.Equal(t, "Alice (work)", c.Name)
	assert.Equal(t, "Ali", c.DisplayName())
}

func TestGetContactNotFound(t *testing.T) {
	db := testDB(t)

	_, err := db.GetContact(context.Background(), "missing@s.whatsapp.net")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListContactsSearch(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertContact(ctx, Contact{JID: "1@s.whatsapp.net", Notify: "Alice", Phone: "1"}))
	require.NoError(t, db.UpsertContact(ctx, Contact{JID: "2@s.whatsapp.net", Notify: "Bob", Phone: "2"}))
	require.NoError(t, db.UpsertContact(ctx, Contact{JID: "3@s.whatsapp.net", Name: "Carol", Phone: "3"}))

	all, err := db.ListContacts(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Alice", all[0].Notify)
	assert.Equal(t, "Carol", all[2].Name)

	found, err := db.ListContacts(ctx, "bo", 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "2@s.whatsapp.net", found[0].JID)

	page, err := db.ListContacts(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Bob", page[0].Notify)
}

func TestUpsertChatDerivesGroupFlag(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertChat(ctx, Chat{JID: "120363000000000000@g.us", Name: "Team"}))
	require.NoError(t, db.UpsertChat(ctx, Chat{JID: "15551234567@s.whatsapp.net"}))

	group, err := db.GetChat(ctx, "120363000000000000@g.us")
	require.NoError(t, err)
	assert.True(t, group.IsGroup)
	assert.Equal(t, "Team", group.Name)

	direct, err := db.GetChat(ctx, "15551234567@s.whatsapp.net")
	require.NoError(t, err)
	assert.False(t, direct.IsGroup)
}

func TestUpsertChatIsAuthoritative(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	const j = "120363000000000000@g.us"

	require.NoError(t, db.UpsertChat(ctx, Chat{JID: j, Name: "Old", UnreadCount: intPtr(3), LastMessageAt: 5000}))
	require.NoError(t, db.UpsertChat(ctx, Chat{JID: j, Name: "New", LastMessageAt: 1000}))

	c, err := db.GetChat(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, "New", c.Name)
	assert.Equal(t, 3, c.UnreadCount, "absent unread count keeps stored value")
	assert.Equal(t, int64(1000), c.LastMessageAt, "explicit chat events may move last activity back")

	require.NoError(t, db.UpsertChat(ctx, Chat{JID: j, UnreadCount: intPtr(0)}))
	c, err = db.GetChat(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, 0, c.UnreadCount)
	assert.Equal(t, "New", c.Name)
}

func TestTouchChatDoesNotClobberRicherRecord(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	const j = "15551234567@s.whatsapp.net"

	require.NoError(t, db.UpsertChat(ctx, Chat{JID: j, Name: "Alice", UnreadCount: intPtr(2), LastMessageAt: 5000}))
	require.NoError(t, db.TouchChat(ctx, ChatTouch{JID: j, NameFallback: "Ali", LastMessageAt: 4000}))

	c, err := db.GetChat(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, "Alice", c.Name)
	assert.Equal(t, 2, c.UnreadCount)
	assert.Equal(t, int64(5000), c.LastMessageAt)

	require.NoError(t, db.TouchChat(ctx, ChatTouch{JID: j, LastMessageAt: 6000}))
	c, err = db.GetChat(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), c.LastMessageAt)
}

func TestTouchChatFillsMissingName(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	const j = "15551234567@s.whatsapp.net"

	require.NoError(t, db.TouchChat(ctx, ChatTouch{JID: j, LastMessageAt: 1000}))
	require.NoError(t, db.TouchChat(ctx, ChatTouch{JID: j, NameFallback: "Alice", LastMessageAt: 2000}))

	c, err := db.GetChat(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, "Alice", c.Name)
	assert.Equal(t, int64(2000), c.LastMessageAt)
}

func TestListChatsOrderAndCount(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertChat(ctx, Chat{JID: "a@s.whatsapp.net", LastMessageAt: 1000}))
	require.NoError(t, db.UpsertChat(ctx, Chat{JID: "b@s.whatsapp.net", LastMessageAt: 3000}))
	require.NoError(t, db.UpsertChat(ctx, Chat{JID: "c@s.whatsapp.net"}))

	chats, err := db.ListChats(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, chats, 3)
	assert.Equal(t, "b@s.whatsapp.net", chats[0].JID)
	assert.Equal(t, "a@s.whatsapp.net", chats[1].JID)
	assert.Equal(t, "c@s.whatsapp.net", chats[2].JID)

	count, err := db.ChatCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestListChatsFallsBackToContactName(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	const j = "15551234567@s.whatsapp.net"

	require.NoError(t, db.UpsertContact(ctx, Contact{JID: j, Notify: "Alice"}))
	require.NoError(t, db.UpsertChat(ctx, Chat{JID: j, LastMessageAt: 1000}))

	chats, err := db.ListChats(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "Alice", chats[0].Name)
}

func TestUpsertMessageReplaces(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	msg := Message{ID: "M1", ChatJID: "chat@s.whatsapp.net", SenderJID: "chat@s.whatsapp.net", Content: "hello", MessageType: "text", Timestamp: 1000}
	require.NoError(t, db.UpsertMessage(ctx, msg))

	msg.Content = "hello again"
	msg.MessageType = "image"
	msg.RawData = `{"key":{}}`
	require.NoError(t, db.UpsertMessage(ctx, msg))

	count, err := db.MessageCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := db.GetMessage(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, "hello again", got.Content)
	assert.Equal(t, "image", got.MessageType)
	assert.Equal(t, `{"key":{}}`, got.RawData)
}

func TestListMessagesModes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertChat(ctx, Chat{JID: "a@s.whatsapp.net", Name: "A"}))
	for _, m := range []Message{
		{ID: "1", ChatJID: "a@s.whatsapp.net", Content: "hello world", MessageType: "text", Timestamp: 1000},
		{ID: "2", ChatJID: "a@s.whatsapp.net", Content: "goodbye world", MessageType: "text", Timestamp: 2000},
		{ID: "3", ChatJID: "b@s.whatsapp.net", Content: "hello there", MessageType: "text", Timestamp: 3000},
	} {
		require.NoError(t, db.UpsertMessage(ctx, m))
	}

	byChat, err := db.ListMessages(ctx, MessageQuery{ChatJID: "a@s.whatsapp.net"})
	require.NoError(t, err)
	require.Len(t, byChat, 2)
	assert.Equal(t, "2", byChat[0].ID)
	assert.Equal(t, "A", byChat[0].ChatName)

	search, err := db.ListMessages(ctx, MessageQuery{Search: "hello"})
	require.NoError(t, err)
	require.Len(t, search, 2)
	assert.Equal(t, "3", search[0].ID)
	assert.Empty(t, search[0].ChatName)

	since, err := db.ListMessages(ctx, MessageQuery{Since: 1500})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	oldest, err := db.ListMessages(ctx, MessageQuery{Order: OldestFirst, Limit: 1})
	require.NoError(t, err)
	require.Len(t, oldest, 1)
	assert.Equal(t, "1", oldest[0].ID)

	paged, err := db.ListMessages(ctx, MessageQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "2", paged[0].ID)

	n, err := db.MessageCount(ctx, "a@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSyncStatusLastWriteWins(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, err := db.GetSyncStatus(ctx, KeyLastSync)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, db.SetSyncStatus(ctx, KeyLastSync, "first"))
	require.NoError(t, db.SetSyncStatus(ctx, KeyLastSync, "second"))

	v, err := db.GetSyncStatus(ctx, KeyLastSync)
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.InTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.UpsertContact(ctx, Contact{JID: "1@s.whatsapp.net", Notify: "A"}))
		require.NoError(t, tx.UpsertMessage(ctx, Message{ID: "m", ChatJID: "1@s.whatsapp.net", MessageType: "text", Timestamp: 1}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
}

func TestInTxCommits(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.InTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertContact(ctx, Contact{JID: "1@s.whatsapp.net", Notify: "A"}); err != nil {
			return err
		}
		if err := tx.UpsertChat(ctx, Chat{JID: "1@s.whatsapp.net"}); err != nil {
			return err
		}
		return tx.UpsertMessage(ctx, Message{ID: "m", ChatJID: "1@s.whatsapp.net", MessageType: "text", Timestamp: 1})
	})
	require.NoError(t, err)

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Contacts: 1, Chats: 1, Messages: 1}, counts)
	require.NoError(t, db.Checkpoint(ctx))
}

func TestWritesWithoutPrepare(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "raw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Migrate()
	require.NoError(t, err)

	require.NoError(t, db.UpsertContact(context.Background(), Contact{JID: "1@s.whatsapp.net", Notify: "A"}))
	c, err := db.GetContact(context.Background(), "1@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, "A", c.Notify)
}

func TestEmptyIdentityRejected(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	assert.Error(t, db.UpsertContact(ctx, Contact{}))
	assert.Error(t, db.UpsertChat(ctx, Chat{}))
	assert.Error(t, db.TouchChat(ctx, ChatTouch{}))
	assert.Error(t, db.UpsertMessage(ctx, Message{}))
}
