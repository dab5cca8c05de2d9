package model

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/wabridge/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	status   *api.GetStatusResponse
	chats    []api.Chat
	messages []api.Message
	sendResp *api.SendTextResponse

	lastList *api.ListMessagesRequest
	lastSend *api.SendTextRequest
	started  int
}

func (f *fakeBackend) GetStatus(context.Context) (*api.GetStatusResponse, error) {
	return f.status, nil
}

func (f *fakeBackend) Start(context.Context) (*api.StartResponse, error) {
	f.started++
	return &api.StartResponse{Success: true, Status: "connecting"}, nil
}

func (f *fakeBackend) Logout(context.Context) (*api.LogoutResponse, error) {
	return nil, errors.New("not connected")
}

func (f *fakeBackend) SendText(_ context.Context, req *api.SendTextRequest) (*api.SendTextResponse, error) {
	f.lastSend = req
	return f.sendResp, nil
}

func (f *fakeBackend) ListMessages(_ context.Context, req *api.ListMessagesRequest) (*api.ListMessagesResponse, error) {
	f.lastList = req
	return &api.ListMessagesResponse{Messages: f.messages}, nil
}

func (f *fakeBackend) ListChats(context.Context, *api.ListChatsRequest) (*api.ListChatsResponse, error) {
	return &api.ListChatsResponse{Chats: f.chats}, nil
}

func TestLoadMessagesKeepsOldestFirst(t *testing.T) {
	b := &fakeBackend{messages: []api.Message{{ID: "new"}, {ID: "mid"}, {ID: "old"}}}
	vm := NewViewModel(b)

	require.NoError(t, vm.LoadMessages(context.Background(), "a@s.whatsapp.net"))
	assert.Equal(t, "a@s.whatsapp.net", b.lastList.ChatJID)
	assert.Equal(t, "a@s.whatsapp.net", vm.ActiveChat())

	var ids []string
	for _, m := range vm.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"old", "mid", "new"}, ids)
}

func TestSendTextUsesActiveChat(t *testing.T) {
	b := &fakeBackend{sendResp: &api.SendTextResponse{Error: "not connected"}}
	vm := NewViewModel(b)
	ctx := context.Background()

	assert.EqualError(t, vm.SendText(ctx, "hi"), "no chat selected")

	require.NoError(t, vm.LoadMessages(ctx, "a@s.whatsapp.net"))
	assert.EqualError(t, vm.SendText(ctx, "hi"), "not connected")
	assert.Equal(t, &api.SendTextRequest{JID: "a@s.whatsapp.net", Text: "hi"}, b.lastSend)

	b.sendResp = &api.SendTextResponse{Success: true, MessageID: "X"}
	assert.NoError(t, vm.SendText(ctx, "hi"))
}

func TestPairingChallengeOnlyWhileNotConnected(t *testing.T) {
	b := &fakeBackend{status: &api.GetStatusResponse{Status: "connecting", PairingChallenge: "2@abc"}}
	vm := NewViewModel(b)
	ctx := context.Background()

	assert.Equal(t, "", vm.PairingChallenge())
	require.NoError(t, vm.LoadStatus(ctx))
	assert.Equal(t, "2@abc", vm.PairingChallenge())
	assert.False(t, vm.Connected())

	b.status = &api.GetStatusResponse{Status: "connected", PairingChallenge: "stale"}
	require.NoError(t, vm.LoadStatus(ctx))
	assert.Equal(t, "", vm.PairingChallenge())
	assert.True(t, vm.Connected())
}

func TestChatName(t *testing.T) {
	b := &fakeBackend{chats: []api.Chat{{JID: "g@g.us", Name: "Team"}, {JID: "a@s.whatsapp.net"}}}
	vm := NewViewModel(b)
	require.NoError(t, vm.LoadChats(context.Background()))

	assert.Equal(t, "Team", vm.ChatName("g@g.us"))
	assert.Equal(t, "a@s.whatsapp.net", vm.ChatName("a@s.whatsapp.net"))
	assert.Equal(t, "x@s.whatsapp.net", vm.ChatName("x@s.whatsapp.net"))
}

func TestSearchAndStart(t *testing.T) {
	b := &fakeBackend{messages: []api.Message{{ID: "hit"}}}
	vm := NewViewModel(b)
	ctx := context.Background()

	got, err := vm.Search(ctx, "lunch")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "lunch", b.lastList.Search)
	assert.Empty(t, vm.ActiveChat(), "search does not change the active chat")

	require.NoError(t, vm.Start(ctx))
	assert.Equal(t, 1, b.started)
	assert.Error(t, vm.Logout(ctx))
}
