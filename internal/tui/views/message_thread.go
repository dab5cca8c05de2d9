package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/wabridge/internal/api"
	"github.com/matheus3301/wabridge/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread shows one chat and a composer below it.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	onSend   func(text string)
}

func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	mt := &MessageThread{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(messages, 0, 1, true).
			AddItem(composer, 3, 0, false),
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || mt.onSend == nil {
			return
		}
		if text := strings.TrimSpace(composer.GetText()); text != "" {
			mt.onSend(text)
			composer.SetText("")
		}
	})
	return mt
}

func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "r", Description: "Reload"},
		{Key: "Esc", Description: "Back"},
	}
}

func (mt *MessageThread) SetChatName(name string) {
	mt.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(name)))
}

func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update renders msgs, which must be oldest first.
func (mt *MessageThread) Update(msgs []api.Message) {
	mt.messages.Clear()
	_, _ = fmt.Fprint(mt.messages, mt.render(msgs, time.Now()))
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) render(msgs []api.Message, now time.Time) string {
	own := ui.ColorName(mt.theme.OwnMessageColor)
	var b strings.Builder
	for _, m := range msgs {
		sender := m.SenderJID
		color := "-"
		if m.IsFromMe {
			sender = "You"
			color = own
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
			color, sanitize(sender), formatTimestamp(m.Timestamp, now), sanitize(strings.TrimSpace(m.Content)))
	}
	return b.String()
}

// Messages returns the scrollable message pane for focus handling.
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the input field for focus handling.
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
