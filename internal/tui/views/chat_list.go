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

// ChatList is the chat table, most recent first.
type ChatList struct {
	*tview.Table
	theme   *ui.Theme
	chats   []api.Chat
	visible []api.Chat
	filter  string
}

func NewChatList(theme *ui.Theme) *ChatList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ChatList{Table: table, theme: theme}
	cl.render()
	return cl
}

func (cl *ChatList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Search"},
		{Key: "f", Description: "Filter"},
		{Key: ":", Description: "Command"},
		{Key: "q", Description: "Quit"},
	}
}

// Update replaces the chats and keeps the current filter.
func (cl *ChatList) Update(chats []api.Chat) {
	cl.chats = chats
	cl.render()
}

// SetFilter narrows the list to chats whose name or JID contains filter.
func (cl *ChatList) SetFilter(filter string) {
	cl.filter = strings.TrimSpace(filter)
	cl.render()
}

func (cl *ChatList) render() {
	cl.visible = cl.visible[:0]
	needle := strings.ToLower(cl.filter)
	for _, c := range cl.chats {
		if needle == "" || strings.Contains(strings.ToLower(chatLabel(c)), needle) || strings.Contains(c.JID, needle) {
			cl.visible = append(cl.visible, c)
		}
	}

	cl.Clear()
	for col, h := range []struct {
		text string
		exp  int
	}{{" NAME", 1}, {" TYPE", 0}, {" UNREAD", 0}, {" LAST", 0}} {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	now := time.Now()
	for i, c := range cl.visible {
		row := i + 1
		kind := "DM"
		if c.IsGroup {
			kind = "GROUP"
		}
		unread := ""
		if c.UnreadCount > 0 {
			unread = fmt.Sprint(c.UnreadCount)
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+sanitize(chatLabel(c))).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+kind).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(unread).SetAlign(tview.AlignRight).SetTextColor(cl.theme.CounterColor))
		cl.SetCell(row, 3, tview.NewTableCell(" "+formatTimestamp(c.LastMessageAt, now)).SetAlign(tview.AlignRight).SetTextColor(cl.theme.FgColor))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Chats (%d/%d) filter: %s ", len(cl.visible), len(cl.chats), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Chats (%d) ", len(cl.chats)))
	}
}

// SelectedChat returns the JID under the cursor, or "".
func (cl *ChatList) SelectedChat() string {
	row, _ := cl.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(cl.visible) {
		return ""
	}
	return cl.visible[idx].JID
}

func chatLabel(c api.Chat) string {
	if c.Name != "" {
		return c.Name
	}
	return c.JID
}
