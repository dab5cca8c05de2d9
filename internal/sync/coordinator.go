package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/wabridge/internal/bus"
	"github.com/matheus3301/wabridge/internal/status"
	"github.com/matheus3301/wabridge/internal/store"
	"go.uber.org/zap"
)

// Coordinator admits at most one bulk history sync at a time and records
// completion of the final page.
type Coordinator struct {
	db      *store.DB
	engine  *Engine
	session *status.Session
	logger  *zap.Logger
	now     func() time.Time
}

// NewCoordinator creates a history sync coordinator.
func NewCoordinator(db *store.DB, engine *Engine, session *status.Session, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		db:      db,
		engine:  engine,
		session: session,
		logger:  logger,
		now:     time.Now,
	}
}

// Sync ingests one history page: contacts, then chats, then messages, in a
// single transaction. A page arriving while another is in flight is dropped
// and admitted is false.
func (c *Coordinator) Sync(ctx context.Context, batch bus.HistoryBatch) (admitted bool, err error) {
	if !c.session.TryBeginSync() {
		c.logger.Info("history sync already in progress, dropping batch",
			zap.Int("contacts", len(batch.Contacts)),
			zap.Int("chats", len(batch.Chats)),
			zap.Int("messages", len(batch.Messages)),
		)
		return false, nil
	}
	defer c.session.EndSync()

	var contacts, chats, msgs Result
	err = c.db.InTx(ctx, func(tx *store.Tx) error {
		var err error
		if contacts, err = c.engine.upsertContacts(ctx, tx, batch.Contacts); err != nil {
			return err
		}
		if chats, err = c.engine.upsertChats(ctx, tx, batch.Chats); err != nil {
			return err
		}
		if msgs, err = c.engine.ingest(ctx, tx, batch.Messages); err != nil {
			return err
		}
		if batch.IsFinalPage {
			return tx.SetSyncStatus(ctx, store.KeyLastSync, c.now().UTC().Format(time.RFC3339))
		}
		return nil
	})
	if err != nil {
		c.logger.Error("history sync batch failed", zap.Error(err))
		return true, fmt.Errorf("history sync: %w", err)
	}

	c.logger.Info("history batch ingested",
		zap.Int("contacts", contacts.Stored),
		zap.Int("chats", chats.Stored),
		zap.Int("messages", msgs.Stored),
		zap.Int("skipped", contacts.Skipped+chats.Skipped+msgs.Skipped),
		zap.Bool("final", batch.IsFinalPage),
	)

	if batch.IsFinalPage || len(batch.Messages) > c.engine.threshold {
		c.engine.checkpoint(ctx)
	}
	return true, nil
}

// LastSync returns when bulk history sync last completed, or the zero time.
func (c *Coordinator) LastSync(ctx context.Context) (time.Time, error) {
	v, err := c.db.GetSyncStatus(ctx, store.KeyLastSync)
	if errors.Is(err, store.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}
