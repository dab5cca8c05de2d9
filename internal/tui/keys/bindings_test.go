package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/wabridge/internal/tui/ui"
	"github.com/stretchr/testify/assert"
)

func TestRegistryPageBindingsWin(t *testing.T) {
	r := NewRegistry()
	var got []string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Label: "q", Description: "Quit", Handler: func() { got = append(got, "quit") }})
	r.AddPage("chat", &Action{Key: tcell.KeyRune, Rune: 'q', Label: "q", Description: "Close", Handler: func() { got = append(got, "close") }})
	r.AddPage("chat", &Action{Key: tcell.KeyEnter, Label: "Enter", Description: "Open", Hidden: true, Handler: func() { got = append(got, "enter") }})

	q := tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)
	assert.True(t, r.HandleEvent("chat", q))
	assert.True(t, r.HandleEvent("chats", q))
	assert.True(t, r.HandleEvent("chat", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)))
	assert.False(t, r.HandleEvent("chats", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)))
	assert.Equal(t, []string{"close", "quit", "enter"}, got)

	assert.Equal(t, []ui.MenuHint{
		{Key: "q", Description: "Close"},
		{Key: "q", Description: "Quit"},
	}, r.Hints("chat"))
}
