package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a typed client for every daemon service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon's Unix domain socket. The connection is
// established lazily on the first call.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func call[Req any, Resp any](ctx context.Context, c *Client, service, method string, req *Req) (*Resp, error) {
	out := new(Resp)
	if err := c.conn.Invoke(ctx, "/"+service+"/"+method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatus(ctx context.Context) (*GetStatusResponse, error) {
	return call[GetStatusRequest, GetStatusResponse](ctx, c, sessionServiceName, "GetStatus", &GetStatusRequest{})
}

func (c *Client) Start(ctx context.Context) (*StartResponse, error) {
	return call[StartRequest, StartResponse](ctx, c, sessionServiceName, "Start", &StartRequest{})
}

func (c *Client) Logout(ctx context.Context) (*LogoutResponse, error) {
	return call[LogoutRequest, LogoutResponse](ctx, c, sessionServiceName, "Logout", &LogoutRequest{})
}

func (c *Client) SendText(ctx context.Context, req *SendTextRequest) (*SendTextResponse, error) {
	return call[SendTextRequest, SendTextResponse](ctx, c, messageServiceName, "SendText", req)
}

func (c *Client) ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	return call[ListMessagesRequest, ListMessagesResponse](ctx, c, messageServiceName, "ListMessages", req)
}

func (c *Client) ListContacts(ctx context.Context, req *ListContactsRequest) (*ListContactsResponse, error) {
	return call[ListContactsRequest, ListContactsResponse](ctx, c, contactServiceName, "ListContacts", req)
}

func (c *Client) ListChats(ctx context.Context, req *ListChatsRequest) (*ListChatsResponse, error) {
	return call[ListChatsRequest, ListChatsResponse](ctx, c, chatServiceName, "ListChats", req)
}

func (c *Client) GetChat(ctx context.Context, jid string) (*GetChatResponse, error) {
	return call[GetChatRequest, GetChatResponse](ctx, c, chatServiceName, "GetChat", &GetChatRequest{JID: jid})
}
