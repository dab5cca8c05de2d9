package api

import (
	"context"
	"errors"

	"github.com/matheus3301/wabridge/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	chatServiceName = packageName + ".ChatService"

	defaultChatLimit = 50
	maxChatLimit     = 500
)

// ChatServer is the server API for the chat service.
type ChatServer interface {
	ListChats(context.Context, *ListChatsRequest) (*ListChatsResponse, error)
	GetChat(context.Context, *GetChatRequest) (*GetChatResponse, error)
}

// ChatService lists stored chats.
type ChatService struct {
	db *store.DB
}

// NewChatService creates a new chat service backed by the store.
func NewChatService(db *store.DB) *ChatService {
	return &ChatService{db: db}
}

var chatServiceDesc = grpc.ServiceDesc{
	ServiceName: chatServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(chatServiceName, "ListChats", ChatServer.ListChats),
		unary(chatServiceName, "GetChat", ChatServer.GetChat),
	},
}

// RegisterChatService registers s on r.
func RegisterChatService(r grpc.ServiceRegistrar, s ChatServer) {
	r.RegisterService(&chatServiceDesc, s)
}

func (s *ChatService) ListChats(ctx context.Context, req *ListChatsRequest) (*ListChatsResponse, error) {
	limit, offset := page(req.Limit, req.Offset, defaultChatLimit, maxChatLimit)

	rows, err := s.db.ListChats(ctx, limit, offset)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list chats: %v", err)
	}
	total, err := s.db.ChatCount(ctx)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "count chats: %v", err)
	}

	resp := &ListChatsResponse{
		Chats:   make([]Chat, 0, len(rows)),
		Total:   total,
		HasMore: int64(offset+len(rows)) < total,
	}
	for _, c := range rows {
		resp.Chats = append(resp.Chats, chatView(c))
	}
	return resp, nil
}

func (s *ChatService) GetChat(ctx context.Context, req *GetChatRequest) (*GetChatResponse, error) {
	if req.JID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "jid is required")
	}
	c, err := s.db.GetChat(ctx, req.JID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, grpcstatus.Errorf(codes.NotFound, "chat %q not found", req.JID)
	}
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "get chat: %v", err)
	}
	n, err := s.db.MessageCount(ctx, req.JID)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "count messages: %v", err)
	}
	return &GetChatResponse{Chat: chatView(*c), MessageCount: n}, nil
}

func chatView(c store.ChatRow) Chat {
	return Chat{
		JID:           c.JID,
		Name:          c.Name,
		IsGroup:       c.IsGroup,
		UnreadCount:   c.UnreadCount,
		LastMessageAt: c.LastMessageAt,
	}
}
