// Package model caches daemon state for the terminal client.
package model

import (
	"context"
	"errors"
	"sync"

	"github.com/matheus3301/wabridge/internal/api"
)

const (
	chatPageSize    = 100
	messagePageSize = 100
	searchPageSize  = 50
)

// Backend is the subset of the daemon API the client uses.
type Backend interface {
	GetStatus(ctx context.Context) (*api.GetStatusResponse, error)
	Start(ctx context.Context) (*api.StartResponse, error)
	Logout(ctx context.Context) (*api.LogoutResponse, error)
	SendText(ctx context.Context, req *api.SendTextRequest) (*api.SendTextResponse, error)
	ListMessages(ctx context.Context, req *api.ListMessagesRequest) (*api.ListMessagesResponse, error)
	ListChats(ctx context.Context, req *api.ListChatsRequest) (*api.ListChatsResponse, error)
}

// ViewModel caches the latest daemon responses. Views read snapshots; the
// app refreshes them off the UI goroutine.
type ViewModel struct {
	backend Backend

	mu         sync.RWMutex
	status     *api.GetStatusResponse
	chats      []api.Chat
	messages   []api.Message
	activeChat string
}

func NewViewModel(b Backend) *ViewModel {
	return &ViewModel{backend: b}
}

// LoadStatus fetches the session status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	resp, err := vm.backend.GetStatus(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	vm.mu.Unlock()
	return nil
}

// LoadChats fetches the first page of chats, most recent first.
func (vm *ViewModel) LoadChats(ctx context.Context) error {
	resp, err := vm.backend.ListChats(ctx, &api.ListChatsRequest{Limit: chatPageSize})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.chats = resp.Chats
	vm.mu.Unlock()
	return nil
}

// LoadMessages fetches the latest messages of chatJID and makes it the
// active chat. Messages are kept oldest first.
func (vm *ViewModel) LoadMessages(ctx context.Context, chatJID string) error {
	resp, err := vm.backend.ListMessages(ctx, &api.ListMessagesRequest{
		ChatJID: chatJID,
		Limit:   messagePageSize,
	})
	if err != nil {
		return err
	}
	msgs := make([]api.Message, len(resp.Messages))
	for i, m := range resp.Messages {
		msgs[len(msgs)-1-i] = m
	}
	vm.mu.Lock()
	vm.activeChat = chatJID
	vm.messages = msgs
	vm.mu.Unlock()
	return nil
}

// Search runs a content search over all chats.
func (vm *ViewModel) Search(ctx context.Context, query string) ([]api.Message, error) {
	resp, err := vm.backend.ListMessages(ctx, &api.ListMessagesRequest{
		Search: query,
		Limit:  searchPageSize,
	})
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendText sends text to the active chat.
func (vm *ViewModel) SendText(ctx context.Context, text string) error {
	chatJID := vm.ActiveChat()
	if chatJID == "" {
		return errors.New("no chat selected")
	}
	resp, err := vm.backend.SendText(ctx, &api.SendTextRequest{JID: chatJID, Text: text})
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}
	return nil
}

// Start asks the daemon to connect.
func (vm *ViewModel) Start(ctx context.Context) error {
	_, err := vm.backend.Start(ctx)
	return err
}

// Logout signs the session out.
func (vm *ViewModel) Logout(ctx context.Context) error {
	_, err := vm.backend.Logout(ctx)
	return err
}

func (vm *ViewModel) Status() *api.GetStatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

func (vm *ViewModel) Chats() []api.Chat {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.chats
}

func (vm *ViewModel) Messages() []api.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.messages
}

func (vm *ViewModel) ActiveChat() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.activeChat
}

// ChatName returns the display name of a cached chat, falling back to jid.
func (vm *ViewModel) ChatName(jid string) string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, c := range vm.chats {
		if c.JID == jid && c.Name != "" {
			return c.Name
		}
	}
	return jid
}

// PairingChallenge returns the pending pairing code, if any.
func (vm *ViewModel) PairingChallenge() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.status == nil || vm.status.Status == "connected" {
		return ""
	}
	return vm.status.PairingChallenge
}

// Connected reports whether the last status was connected.
func (vm *ViewModel) Connected() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status != nil && vm.status.Status == "connected"
}
