package views

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/wabridge/internal/api"
	"github.com/matheus3301/wabridge/internal/tui/ui"
	"github.com/rivo/tview"
)

// SearchView runs content searches and lists the matching messages.
type SearchView struct {
	*tview.Flex
	theme   *ui.Theme
	input   *tview.InputField
	results *tview.Table
	data    []api.Message
}

func NewSearchView(theme *ui.Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	return &SearchView{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(input, 1, 0, true).
			AddItem(results, 0, 1, false),
		theme:   theme,
		input:   input,
		results: results,
	}
}

func (sv *SearchView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Search/Open"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnQuery sets the callback run when a query is submitted.
func (sv *SearchView) SetOnQuery(fn func(query string)) {
	sv.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.input.GetText() != "" {
			fn(sv.input.GetText())
		}
	})
}

func (sv *SearchView) Update(msgs []api.Message) {
	sv.data = msgs
	sv.results.Clear()

	for col, h := range []string{" CHAT", " MESSAGE", " TIME"} {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	now := time.Now()
	for i, m := range msgs {
		row := i + 1
		chat := m.ChatName
		if chat == "" {
			chat = m.ChatJID
		}
		sv.results.SetCell(row, 0, tview.NewTableCell(" "+sanitize(chat)).SetMaxWidth(25).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+sanitize(m.Content)).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+formatTimestamp(m.Timestamp, now)).SetMaxWidth(12).SetTextColor(sv.theme.FgColor))
	}
}

// SelectedChat returns the chat of the selected result, or "".
func (sv *SearchView) SelectedChat() string {
	row, _ := sv.results.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(sv.data) {
		return ""
	}
	return sv.data[idx].ChatJID
}

func (sv *SearchView) Input() *tview.InputField {
	return sv.input
}

func (sv *SearchView) Results() *tview.Table {
	return sv.results
}
