package api

import (
	"context"
	"strings"
	"time"

	"github.com/matheus3301/wabridge/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	messageServiceName = packageName + ".MessageService"

	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

// MessageServer is the server API for the message service.
type MessageServer interface {
	SendText(context.Context, *SendTextRequest) (*SendTextResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
}

// MessageService sends text messages and lists stored ones.
type MessageService struct {
	ctl Controller
	db  *store.DB
	now func() time.Time
}

// NewMessageService creates a new message service.
func NewMessageService(ctl Controller, db *store.DB) *MessageService {
	return &MessageService{ctl: ctl, db: db, now: time.Now}
}

var messageServiceDesc = grpc.ServiceDesc{
	ServiceName: messageServiceName,
	HandlerType: (*MessageServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(messageServiceName, "SendText", MessageServer.SendText),
		unary(messageServiceName, "ListMessages", MessageServer.ListMessages),
	},
}

// RegisterMessageService registers s on r.
func RegisterMessageService(r grpc.ServiceRegistrar, s MessageServer) {
	r.RegisterService(&messageServiceDesc, s)
}

// SendText never fails at the RPC level; delivery failures are in the body.
func (s *MessageService) SendText(ctx context.Context, req *SendTextRequest) (*SendTextResponse, error) {
	to := req.JID
	if to == "" {
		to = req.Phone
	}
	res := s.ctl.Send(ctx, to, req.Text)
	return &SendTextResponse{
		Success:   res.Success,
		MessageID: res.MessageID,
		To:        res.To,
		Error:     res.Error,
	}, nil
}

func (s *MessageService) ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	limit, offset := page(req.Limit, req.Offset, defaultMessageLimit, maxMessageLimit)
	q := store.MessageQuery{Limit: limit, Offset: offset}
	if strings.EqualFold(req.Order, OrderOldest) {
		q.Order = store.OldestFirst
	}

	switch {
	case req.Search != "":
		q.Search = req.Search
	case req.ChatJID != "":
		q.ChatJID = req.ChatJID
	case req.TimeRange == TimeRangeToday:
		q.Since = s.now().Add(-24 * time.Hour).UnixMilli()
	case req.TimeRange != "":
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "unknown time range %q", req.TimeRange)
	}

	rows, err := s.db.ListMessages(ctx, q)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list messages: %v", err)
	}

	resp := &ListMessagesResponse{
		Messages: make([]Message, 0, len(rows)),
		Count:    len(rows),
		Limit:    limit,
		Offset:   offset,
		HasMore:  len(rows) == limit,
	}
	for _, r := range rows {
		m := messageView(r)
		if req.IncludeRaw {
			m.RawData = r.RawData
		}
		resp.Messages = append(resp.Messages, m)
	}

	if q.ChatJID != "" {
		total, err := s.db.MessageCount(ctx, q.ChatJID)
		if err != nil {
			return nil, grpcstatus.Errorf(codes.Internal, "count messages: %v", err)
		}
		resp.Total = total
	}
	return resp, nil
}

func messageView(r store.MessageRow) Message {
	return Message{
		ID:          r.ID,
		ChatJID:     r.ChatJID,
		ChatName:    r.ChatName,
		SenderJID:   r.SenderJID,
		Content:     r.Content,
		MessageType: r.MessageType,
		IsFromMe:    r.IsFromMe,
		Timestamp:   r.Timestamp,
	}
}
