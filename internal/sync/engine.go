package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/wabridge/internal/content"
	"github.com/matheus3301/wabridge/internal/jid"
	"github.com/matheus3301/wabridge/internal/store"
	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// DefaultCheckpointThreshold is the batch size above which a WAL checkpoint
// follows the commit.
const DefaultCheckpointThreshold = 100

// ErrMalformed marks a record that cannot be ingested. Such records are
// logged and skipped; they never abort a batch.
var ErrMalformed = errors.New("malformed record")

// errNoChat marks an envelope without a routing key.
var errNoChat = errors.New("envelope has no chat")

// Result counts what a batch did.
type Result struct {
	Stored  int
	Skipped int
}

// Engine ingests message envelopes, along with the contact and chat records
// they imply, into the store.
type Engine struct {
	db        *store.DB
	threshold int
	logger    *zap.Logger
	now       func() time.Time

	checkpointFn func(context.Context) error
}

// NewEngine creates a new ingestion engine.
func NewEngine(db *store.DB, checkpointThreshold int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkpointThreshold <= 0 {
		checkpointThreshold = DefaultCheckpointThreshold
	}
	return &Engine{
		db:        db,
		threshold: checkpointThreshold,
		logger:    logger,
		now:       time.Now,

		checkpointFn: db.Checkpoint,
	}
}

// IngestMessages writes an ordered batch of envelopes in one transaction.
// Malformed envelopes are skipped; a store failure rolls back the whole batch.
func (e *Engine) IngestMessages(ctx context.Context, msgs []*waWeb.WebMessageInfo) (Result, error) {
	if len(msgs) == 0 {
		return Result{}, nil
	}

	var res Result
	err := e.db.InTx(ctx, func(tx *store.Tx) error {
		var err error
		res, err = e.ingest(ctx, tx, msgs)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("ingest messages: %w", err)
	}
	if len(msgs) > e.threshold {
		e.checkpoint(ctx)
	}
	return res, nil
}

// UpsertContacts merges explicit contact records in one transaction.
func (e *Engine) UpsertContacts(ctx context.Context, contacts []store.Contact) (Result, error) {
	var res Result
	err := e.db.InTx(ctx, func(tx *store.Tx) error {
		var err error
		res, err = e.upsertContacts(ctx, tx, contacts)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("upsert contacts: %w", err)
	}
	return res, nil
}

// UpsertChats writes authoritative chat records in one transaction.
func (e *Engine) UpsertChats(ctx context.Context, chats []store.Chat) (Result, error) {
	var res Result
	err := e.db.InTx(ctx, func(tx *store.Tx) error {
		var err error
		res, err = e.upsertChats(ctx, tx, chats)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("upsert chats: %w", err)
	}
	return res, nil
}

// RecordOutgoing stores a text message this account just sent.
func (e *Engine) RecordOutgoing(ctx context.Context, chatJID, msgID, text string) error {
	env := &waWeb.WebMessageInfo{
		Key: &waCommon.MessageKey{
			RemoteJID: proto.String(chatJID),
			FromMe:    proto.Bool(true),
			ID:        proto.String(msgID),
		},
		Message:          &waE2E.Message{Conversation: proto.String(text)},
		MessageTimestamp: proto.Uint64(uint64(e.now().Unix())),
	}
	res, err := e.IngestMessages(ctx, []*waWeb.WebMessageInfo{env})
	if err != nil {
		return err
	}
	if res.Stored != 1 {
		return fmt.Errorf("record outgoing %q: %w", msgID, ErrMalformed)
	}
	return nil
}

func (e *Engine) ingest(ctx context.Context, tx *store.Tx, msgs []*waWeb.WebMessageInfo) (Result, error) {
	var res Result
	for _, env := range msgs {
		rec, err := e.derive(env)
		if err != nil {
			res.Skipped++
			if errors.Is(err, errNoChat) {
				e.logger.Debug("skipping envelope without chat", zap.String("msg_id", env.GetKey().GetID()))
			} else {
				e.logger.Warn("skipping malformed envelope", zap.String("msg_id", env.GetKey().GetID()), zap.Error(err))
			}
			continue
		}

		if rec.contact != nil {
			if err := tx.UpsertContact(ctx, *rec.contact); err != nil {
				return Result{}, err
			}
		}
		if err := tx.TouchChat(ctx, rec.chat); err != nil {
			return Result{}, err
		}
		if err := tx.UpsertMessage(ctx, rec.message); err != nil {
			return Result{}, err
		}
		res.Stored++
	}
	return res, nil
}

func (e *Engine) upsertContacts(ctx context.Context, tx *store.Tx, contacts []store.Contact) (Result, error) {
	var res Result
	for _, c := range contacts {
		c.JID = jid.Canonical(c.JID)
		if c.JID == "" {
			res.Skipped++
			e.logger.Warn("skipping contact without jid")
			continue
		}
		if c.Phone == "" && !jid.IsGroup(c.JID) {
			c.Phone = jid.Phone(c.JID)
		}
		if err := tx.UpsertContact(ctx, c); err != nil {
			return Result{}, err
		}
		res.Stored++
	}
	return res, nil
}

func (e *Engine) upsertChats(ctx context.Context, tx *store.Tx, chats []store.Chat) (Result, error) {
	var res Result
	for _, c := range chats {
		c.JID = jid.Canonical(c.JID)
		if c.JID == "" {
			res.Skipped++
			e.logger.Warn("skipping chat without jid")
			continue
		}
		if err := tx.UpsertChat(ctx, c); err != nil {
			return Result{}, err
		}
		res.Stored++
	}
	return res, nil
}

func (e *Engine) checkpoint(ctx context.Context) {
	if err := e.checkpointFn(ctx); err != nil {
		e.logger.Warn("checkpoint failed", zap.Error(err))
	}
}

type record struct {
	contact *store.Contact
	chat    store.ChatTouch
	message store.Message
}

func (e *Engine) derive(env *waWeb.WebMessageInfo) (record, error) {
	key := env.GetKey()
	chatJID := jid.Canonical(key.GetRemoteJID())
	if chatJID == "" {
		return record{}, errNoChat
	}
	id := key.GetID()
	if id == "" {
		return record{}, fmt.Errorf("%w: missing message id", ErrMalformed)
	}

	fromMe := key.GetFromMe()
	sender := jid.Me
	if !fromMe {
		sender = key.GetParticipant()
		if sender == "" {
			sender = env.GetParticipant()
		}
		if sender == "" {
			sender = chatJID
		}
		sender = jid.Canonical(sender)
	}

	ts := int64(env.GetMessageTimestamp()) * 1000
	if ts == 0 {
		ts = e.now().UnixMilli()
	}

	raw, err := protojson.Marshal(env)
	if err != nil {
		return record{}, fmt.Errorf("%w: encode envelope: %v", ErrMalformed, err)
	}

	pushName := env.GetPushName()
	var rec record
	if !fromMe && pushName != "" && !jid.IsGroup(sender) {
		rec.contact = &store.Contact{
			JID:    sender,
			Notify: pushName,
			Phone:  jid.Phone(sender),
		}
	}

	rec.chat = store.ChatTouch{JID: chatJID, LastMessageAt: ts}
	if !fromMe && !jid.IsGroup(chatJID) {
		rec.chat.NameFallback = pushName
	}

	text, typ := content.Describe(env.GetMessage())
	rec.message = store.Message{
		ID:          id,
		ChatJID:     chatJID,
		SenderJID:   sender,
		Content:     text,
		MessageType: string(typ),
		IsFromMe:    fromMe,
		Timestamp:   ts,
		RawData:     string(raw),
	}
	return rec, nil
}
