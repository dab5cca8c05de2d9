package sync

import (
	"context"
	"testing"
	"time"

	"github.com/matheus3301/wabridge/internal/bus"
	"github.com/matheus3301/wabridge/internal/status"
	"github.com/matheus3301/wabridge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.uber.org/zap/zaptest"
)

func testCoordinator(t *testing.T) (*Coordinator, *store.DB, *status.Session) {
	t.Helper()
	db := testDB(t)
	session := status.New()
	c := NewCoordinator(db, testEngine(t, db), session, zaptest.NewLogger(t))
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c, db, session
}

func TestCoordinatorSyncOrdersContactsChatsMessages(t *testing.T) {
	c, db, session := testCoordinator(t)
	ctx := context.Background()

	unread := 2
	admitted, err := c.Sync(ctx, bus.HistoryBatch{
		Contacts: []store.Contact{{JID: aliceJID, Notify: "Alice"}},
		Chats:    []store.Chat{{JID: aliceJID, Name: "Alice (synced)", UnreadCount: &unread, LastMessageAt: 5_000_000}},
		Messages: []*waWeb.WebMessageInfo{
			envelope(aliceJID, "H1", "old news", at(1000), pushName("Ali")),
		},
	})
	require.NoError(t, err)
	assert.True(t, admitted)
	assert.False(t, session.SyncInProgress())

	chat, err := db.GetChat(ctx, aliceJID)
	require.NoError(t, err)
	assert.Equal(t, "Alice (synced)", chat.Name, "message stub must not clobber the synced chat")
	assert.Equal(t, 2, chat.UnreadCount)
	assert.Equal(t, int64(5_000_000), chat.LastMessageAt)

	contact, err := db.GetContact(ctx, aliceJID)
	require.NoError(t, err)
	assert.Equal(t, "Ali", contact.Notify)

	_, err = db.GetSyncStatus(ctx, store.KeyLastSync)
	assert.ErrorIs(t, err, store.ErrNotFound, "only the final page records completion")
}

func TestCoordinatorFinalPageRecordsLastSync(t *testing.T) {
	c, db, _ := testCoordinator(t)
	ctx := context.Background()

	admitted, err := c.Sync(ctx, bus.HistoryBatch{IsFinalPage: true})
	require.NoError(t, err)
	assert.True(t, admitted)

	v, err := db.GetSyncStatus(ctx, store.KeyLastSync)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:00:00Z", v)

	last, err := c.LastSync(ctx)
	require.NoError(t, err)
	assert.True(t, last.Equal(c.now()))
}

func TestCoordinatorCheckpoints(t *testing.T) {
	tests := []struct {
		name  string
		batch bus.HistoryBatch
		wants int
	}{
		{"small page", bus.HistoryBatch{Messages: []*waWeb.WebMessageInfo{envelope(aliceJID, "H1", "a")}}, 0},
		{"final page", bus.HistoryBatch{IsFinalPage: true}, 1},
		{"small final page", bus.HistoryBatch{Messages: []*waWeb.WebMessageInfo{envelope(aliceJID, "H1", "a")}, IsFinalPage: true}, 1},
		{"large page", bus.HistoryBatch{Messages: []*waWeb.WebMessageInfo{
			envelope(aliceJID, "H1", "a"),
			envelope(aliceJID, "H2", "b"),
			envelope(aliceJID, "H3", "c"),
		}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testDB(t)
			c := NewCoordinator(db, NewEngine(db, 2, zaptest.NewLogger(t)), status.New(), zaptest.NewLogger(t))
			checkpoints := countCheckpoints(c.engine, db)

			admitted, err := c.Sync(context.Background(), tt.batch)
			require.NoError(t, err)
			require.True(t, admitted)
			assert.Equal(t, tt.wants, *checkpoints)
		})
	}
}

func TestCoordinatorDropsWhileInFlight(t *testing.T) {
	c, db, session := testCoordinator(t)
	ctx := context.Background()

	require.True(t, session.TryBeginSync())
	before, err := db.Counts(ctx)
	require.NoError(t, err)

	admitted, err := c.Sync(ctx, bus.HistoryBatch{
		Contacts:    []store.Contact{{JID: aliceJID, Notify: "Alice"}},
		Messages:    []*waWeb.WebMessageInfo{envelope(aliceJID, "H1", "hi")},
		IsFinalPage: true,
	})
	require.NoError(t, err)
	assert.False(t, admitted)

	after, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, session.SyncInProgress(), "a dropped batch must not clear the holder's flag")

	_, err = db.GetSyncStatus(ctx, store.KeyLastSync)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCoordinatorClearsFlagOnError(t *testing.T) {
	c, db, session := testCoordinator(t)
	ctx := context.Background()

	_, err := db.Exec(`
		CREATE TRIGGER fail_chats BEFORE INSERT ON chats
		BEGIN SELECT RAISE(ABORT, 'read only'); END`)
	require.NoError(t, err)

	admitted, err := c.Sync(ctx, bus.HistoryBatch{
		Contacts:    []store.Contact{{JID: aliceJID, Notify: "Alice"}},
		Chats:       []store.Chat{{JID: aliceJID}},
		IsFinalPage: true,
	})
	assert.True(t, admitted)
	require.Error(t, err)
	assert.False(t, session.SyncInProgress())

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Counts{}, counts)

	last, err := c.LastSync(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}
