package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/wabridge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.uber.org/zap/zaptest"
	"google.golang.org/protobuf/proto"
)

const (
	aliceJID = "15551234567@s.whatsapp.net"
	groupJID = "120363000000000000@g.us"
	bobJID   = "15557654321@s.whatsapp.net"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	require.NoError(t, db.Prepare(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testEngine(t *testing.T, db *store.DB) *Engine {
	t.Helper()
	e := NewEngine(db, 0, zaptest.NewLogger(t))
	e.now = func() time.Time { return time.UnixMilli(9_000_000) }
	return e
}

type envOpt func(*waWeb.WebMessageInfo)

func fromMe() envOpt {
	return func(m *waWeb.WebMessageInfo) { m.Key.FromMe = proto.Bool(true) }
}

func participant(p string) envOpt {
	return func(m *waWeb.WebMessageInfo) { m.Key.Participant = proto.String(p) }
}

func pushName(n string) envOpt {
	return func(m *waWeb.WebMessageInfo) { m.PushName = proto.String(n) }
}

func at(sec uint64) envOpt {
	return func(m *waWeb.WebMessageInfo) { m.MessageTimestamp = proto.Uint64(sec) }
}

func body(msg *waE2E.Message) envOpt {
	return func(m *waWeb.WebMessageInfo) { m.Message = msg }
}

func envelope(chat, id, text string, opts ...envOpt) *waWeb.WebMessageInfo {
	m := &waWeb.WebMessageInfo{
		Key: &waCommon.MessageKey{
			RemoteJID: proto.String(chat),
			FromMe:    proto.Bool(false),
			ID:        proto.String(id),
		},
		Message:          &waE2E.Message{Conversation: proto.String(text)},
		MessageTimestamp: proto.Uint64(1000),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func TestIngestCreatesChatStub(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db)
	ctx := context.Background()

	res, err := e.IngestMessages(ctx, []*waWeb.WebMessageInfo{
		envelope(groupJID, "M1", "hello", participant(aliceJID), at(1700000000)),
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Stored: 1}, res)

	chat, err := db.GetChat(ctx, groupJID)
	require.NoError(t, err)
	assert.True(t, chat.IsGroup)
	assert.Equal(t, int64(1700000000000), chat.LastMessageAt)

	msg, err := db.GetMessage(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, groupJID, msg.ChatJID)
	assert.Equal(t, aliceJID, msg.SenderJID)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "text", msg.MessageType)
	assert.False(t, msg.IsFromMe)
}

func TestIngestIsIdempotentReplace(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db)
	ctx := context.Background()

	_, err := e.IngestMessages(ctx, []*waWeb.WebMessageInfo{envelope(aliceJID, "M1", "first")})
	require.NoError(t, err)
	_, err = e.IngestMessages(ctx, []*waWeb.WebMessageInfo{envelope(aliceJID, "M1", "second")})
	require.NoError(t, err)

	rows, err := db.ListMessages(ctx, store.MessageQuery{ChatJID: aliceJID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "second", rows[0].Content)
}

func TestIngestSenderResolution(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db)
	ctx := context.Background()

	_, err := e.IngestMessages(ctx, []*waWeb.WebMessageInfo{
		envelope(aliceJID, "direct", "hi"),
		envelope(aliceJID, "mine", "hey", fromMe()),
		envelope(groupJID, "group", "yo", participant(bobJID)),
	})
	require.NoError(t, err)

	for id, want := range map[string]string{
		"direct": aliceJID,
		"mine":   "me",
		"group":  bobJID,
	} {
		m, err := db.GetMessage(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, m.SenderJID, id)
	}
}

func TestIngestInfersContactFromPushName(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db)
	ctx := context.Background()

	_, err := e.IngestMessages(ctx, []*waWeb.WebMessageInfo{
		envelope(aliceJID, "M1", "hi", pushName("Alice")),
		envelope(groupJID, "M2", "hi all", participant(bobJID), pushName("Bob")),
	})
	require.NoError(t, err)

	alice, err := db.GetContact(ctx, aliceJID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", alice.Notify)
	assert.Equal(t, "15551234567", alice.Phone)

	bob, err := db.GetContact(ctx, bobJID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", bob.Notify)

	direct, err := db.GetChat(ctx, aliceJID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", direct.Name)

	group, err := db.GetChat(ctx, groupJID)
	require.NoError(t, err)
	assert.Empty(t, group.Name, "push names never name a group")
}

func TestIngestOutgoingDoesNotInferContact(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db)
	ctx := context.Background()

	_, err := e.IngestMessages(ctx, []*waWeb.WebMessageInfo{
		envelope(aliceJID, "M1", "hi", fromMe(), pushName("Me Myself")),
	})
	require.NoError(t, err)

	_, err = db.GetContact(ctx, aliceJID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	chat, err := db.GetChat(ctx, aliceJID)
	require.NoError(t, err)
	assert.Empty(t, chat.Name)
}

func TestIngestSkipsEnvelopesWithoutChatOrID(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db)
	ctx := context.Background()

	noChat := envelope("", "M0", "lost")
	noID := envelope(aliceJID, "", "anonymous")

	res, err := e.IngestMessages(ctx, []*waWeb.WebMessageInfo{
		noChat,
		noID,
		envelope(aliceJID, "M1", "kept"),
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Stored: 1, Skipped: 2}, res)

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Messages)
	assert.Equal(t, int64(1), counts.Chats)
}

func TestIngestClassifiesAndKeepsRawEnvelope(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db)
	ctx := context.Background()

	img := envelope(aliceJID, "IMG", "", body(&waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{Caption: proto.String("sunset")},
	}))
	_, err := e.IngestMessages(ctx, []*waWeb.WebMessageInfo{img})
	require.NoError(t, err)

	m, err := db.GetMessage(ctx, "IMG")
	require.NoError(t, err)
	assert.Equal(t, "[Image] sunset", m.Content)
	assert.Equal(t, "image", m.MessageType)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(m.RawData), &raw))
	assert.Contains(t, raw, "key")
	assert.Contains(t, raw, "message")
}

func TestIngestMissingTimestampUsesNow(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db)
	ctx := context.Background()

	env := envelope(aliceJID, "M1", "hi")
	env.MessageTimestamp = nil
	_, err := e.IngestMessages(ctx, []*waWeb.WebMessageInfo{env})
	require.NoError(t, err)

	m, err := db.GetMessage(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, int64(9_000_000), m.Timestamp)
}

func TestIngestBatchIsAtomic(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db)
	ctx := context.Background()

	_, err := db.Exec(`
		CREATE TRIGGER fail_poison BEFORE INSERT ON messages
		WHEN NEW.id = 'poison'
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	batch := make([]*waWeb.WebMessageInfo, 0, 5)
	for i := range 4 {
		batch = append(batch, envelope(aliceJID, fmt.Sprintf("M%d", i), "ok", pushName("Alice")))
	}
	batch = append(batch, envelope(bobJID, "poison", "bad"))

	_, err = e.IngestMessages(ctx, batch)
	require.Error(t, err)

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Counts{}, counts, "nothing from a failed batch may be committed")
}

// countCheckpoints replaces the engine's checkpoint with a counter that
// still runs the real pragma.
func countCheckpoints(e *Engine, db *store.DB) *int {
	n := new(int)
	e.checkpointFn = func(ctx context.Context) error {
		*n++
		return db.Checkpoint(ctx)
	}
	return n
}

func TestIngestCheckpointsAboveThreshold(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		wants int
	}{
		{"below threshold", 1, 0},
		{"at threshold", 2, 0},
		{"above threshold", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testDB(t)
			e := NewEngine(db, 2, zaptest.NewLogger(t))
			checkpoints := countCheckpoints(e, db)

			batch := make([]*waWeb.WebMessageInfo, 0, tt.size)
			for i := range tt.size {
				batch = append(batch, envelope(aliceJID, fmt.Sprintf("M%d", i), "hi"))
			}
			res, err := e.IngestMessages(context.Background(), batch)
			require.NoError(t, err)
			assert.Equal(t, tt.size, res.Stored)
			assert.Equal(t, tt.wants, *checkpoints)
		})
	}
}

func TestIngestFailedBatchSkipsCheckpoint(t *testing.T) {
	db := testDB(t)
	e := NewEngine(db, 1, zaptest.NewLogger(t))
	checkpoints := countCheckpoints(e, db)

	_, err := db.Exec(`
		CREATE TRIGGER fail_all BEFORE INSERT ON messages
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	_, err = e.IngestMessages(context.Background(), []*waWeb.WebMessageInfo{
		envelope(aliceJID, "M1", "a"),
		envelope(aliceJID, "M2", "b"),
	})
	require.Error(t, err)
	assert.Zero(t, *checkpoints)
}

func TestUpsertContactsAndChats(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db)
	ctx := context.Background()

	res, err := e.UpsertContacts(ctx, []store.Contact{
		{JID: aliceJID, Name: "Alice Smith"},
		{JID: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Stored: 1, Skipped: 1}, res)

	c, err := db.GetContact(ctx, aliceJID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", c.Name)
	assert.Equal(t, "15551234567", c.Phone)

	unread := 4
	res, err = e.UpsertChats(ctx, []store.Chat{{JID: groupJID, Name: "Team", UnreadCount: &unread}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)

	chat, err := db.GetChat(ctx, groupJID)
	require.NoError(t, err)
	assert.Equal(t, "Team", chat.Name)
	assert.Equal(t, 4, chat.UnreadCount)
}

func TestRecordOutgoing(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db)
	ctx := context.Background()

	require.NoError(t, e.RecordOutgoing(ctx, aliceJID, "SENT1", "on my way"))

	m, err := db.GetMessage(ctx, "SENT1")
	require.NoError(t, err)
	assert.True(t, m.IsFromMe)
	assert.Equal(t, "me", m.SenderJID)
	assert.Equal(t, "on my way", m.Content)
	assert.Equal(t, int64(9_000_000), m.Timestamp)
}
