package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// MenuHint describes a keyboard shortcut shown in the menu.
type MenuHint struct {
	Key         string
	Description string
}

// Hinter is implemented by views that advertise their shortcuts.
type Hinter interface {
	Hints() []MenuHint
}

// Menu displays shortcut hints, one per line.
type Menu struct {
	*tview.TextView
	theme *Theme
}

func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, m.render(hints))
}

func (m *Menu) render(hints []MenuHint) string {
	keyColor := ColorName(m.theme.MenuKeyColor)
	var b strings.Builder
	for _, h := range hints {
		fmt.Fprintf(&b, "[%s::b]<%s>[-:-:-] %s\n", keyColor, tview.Escape(h.Key), h.Description)
	}
	return b.String()
}
