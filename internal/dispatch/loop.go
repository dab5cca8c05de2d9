// Package dispatch routes protocol events to their handlers on a single
// goroutine, in the order they were published.
package dispatch

import (
	"context"
	"fmt"

	"github.com/matheus3301/wabridge/internal/bus"
	"github.com/matheus3301/wabridge/internal/store"
	intsync "github.com/matheus3301/wabridge/internal/sync"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.uber.org/zap"
)

// Lifecycle receives connection and credential events.
type Lifecycle interface {
	HandleConnectionUpdate(ctx context.Context, evt bus.ConnectionUpdate)
	HandleCredentialsUpdate(ctx context.Context, evt bus.CredentialsUpdate)
}

// Ingester persists contacts, chats and messages.
type Ingester interface {
	IngestMessages(ctx context.Context, msgs []*waWeb.WebMessageInfo) (intsync.Result, error)
	UpsertContacts(ctx context.Context, contacts []store.Contact) (intsync.Result, error)
	UpsertChats(ctx context.Context, chats []store.Chat) (intsync.Result, error)
}

// HistorySyncer ingests bulk history pages.
type HistorySyncer interface {
	Sync(ctx context.Context, batch bus.HistoryBatch) (bool, error)
}

// Loop drains a queue and hands each event to exactly one handler.
type Loop struct {
	queue     *bus.Queue
	lifecycle Lifecycle
	ingester  Ingester
	history   HistorySyncer
	logger    *zap.Logger

	done chan struct{}
}

// NewLoop creates a dispatch loop.
func NewLoop(q *bus.Queue, lc Lifecycle, ing Ingester, hist HistorySyncer, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		queue:     q,
		lifecycle: lc,
		ingester:  ing,
		history:   hist,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Run consumes events until ctx is done or the queue is closed.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	l.logger.Info("dispatch loop started")
	for {
		evt, ok := l.queue.Next(ctx)
		if !ok {
			l.logger.Info("dispatch loop stopped")
			return
		}
		l.dispatch(ctx, evt)
	}
}

// Done is closed once Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) dispatch(ctx context.Context, evt bus.Event) {
	switch e := evt.(type) {
	case bus.ConnectionUpdate:
		l.lifecycle.HandleConnectionUpdate(ctx, e)
	case bus.CredentialsUpdate:
		l.lifecycle.HandleCredentialsUpdate(ctx, e)
	case bus.ContactsChanged:
		res, err := l.ingester.UpsertContacts(ctx, e.Contacts)
		l.report("contacts", res, err)
	case bus.ChatsChanged:
		res, err := l.ingester.UpsertChats(ctx, e.Chats)
		l.report("chats", res, err)
	case bus.MessagesReceived:
		res, err := l.ingester.IngestMessages(ctx, e.Messages)
		l.report("messages."+string(e.Kind), res, err)
	case bus.HistoryBatch:
		admitted, err := l.history.Sync(ctx, e)
		if err != nil {
			l.logger.Error("history sync failed", zap.Error(err))
		} else if admitted {
			l.logger.Debug("history page stored", zap.Bool("final", e.IsFinalPage))
		}
	default:
		l.logger.Warn("unhandled event", zap.String("type", fmt.Sprintf("%T", evt)))
	}
}

func (l *Loop) report(kind string, res intsync.Result, err error) {
	if err != nil {
		l.logger.Error("event handling failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	l.logger.Debug("event handled",
		zap.String("kind", kind),
		zap.Int("stored", res.Stored),
		zap.Int("skipped", res.Skipped),
	)
}
