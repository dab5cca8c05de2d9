package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/wabridge/internal/api"
	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagesStack(t *testing.T) {
	p := NewPages()
	for _, name := range []string{"chats", "chat", "search"} {
		p.Register(name, tview.NewBox())
	}
	var changes [][]string
	p.SetOnChange(func(stack []string) { changes = append(changes, stack) })

	p.Reset("chats")
	p.Push("chat")
	p.Push("chat")
	assert.Equal(t, []string{"chats", "chat"}, p.Stack())
	front, _ := p.GetFrontPage()
	assert.Equal(t, "chat", front)

	assert.Equal(t, "chat", p.Pop())
	assert.Equal(t, "", p.Pop(), "the root page stays")
	assert.Equal(t, "chats", p.Current())
	assert.Len(t, changes, 3)
}

func TestFlashExpires(t *testing.T) {
	now := time.Unix(1000, 0)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	assert.Nil(t, f.Current())

	f.Err(errors.New("send failed"))
	msg := f.Current()
	require.NotNil(t, msg)
	assert.Equal(t, FlashErr, msg.Level)
	assert.Equal(t, "send failed", msg.Text)

	now = now.Add(11 * time.Second)
	assert.Nil(t, f.Current())
}

func TestCrumbsHighlightLast(t *testing.T) {
	c := NewCrumbs(DefaultTheme())
	out := c.render([]string{"chats", "Team"})
	assert.Contains(t, out, " chats ")
	assert.Contains(t, out, ":b] Team [-:-:-]")
}

func TestSessionInfoRender(t *testing.T) {
	si := NewSessionInfo(DefaultTheme())
	out := si.render(&api.GetStatusResponse{
		Session:        "main",
		Status:         "connected",
		SyncInProgress: true,
		Counts:         api.Counts{Chats: 3, Messages: 42},
		UptimeMs:       int64((90 * time.Minute) / time.Millisecond),
	})
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "connected (syncing)")
	assert.Contains(t, out, "]42[")
	assert.Contains(t, out, "1h30m")
	assert.Contains(t, out, "]-[", "missing phone renders as a dash")
}

func TestMenuRender(t *testing.T) {
	m := NewMenu(DefaultTheme())
	out := m.render([]MenuHint{{Key: "Enter", Description: "Open"}, {Key: "q", Description: "Quit"}})
	assert.Contains(t, out, "<Enter>[-:-:-] Open\n")
	assert.Contains(t, out, "<q>[-:-:-] Quit\n")
}
