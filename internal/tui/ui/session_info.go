package ui

import (
	"fmt"
	"time"

	"github.com/matheus3301/wabridge/internal/api"
	"github.com/rivo/tview"
)

// SessionInfo displays the daemon status in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

func (si *SessionInfo) Update(st *api.GetStatusResponse) {
	si.Clear()
	if st == nil {
		return
	}
	_, _ = fmt.Fprint(si, si.render(st))
}

func (si *SessionInfo) render(st *api.GetStatusResponse) string {
	label := ColorName(si.theme.FgColor)
	value := ColorName(si.theme.CounterColor)

	statusColor := ColorName(si.theme.StatusWarnColor)
	if st.Status == "connected" {
		statusColor = ColorName(si.theme.StatusOKColor)
	}
	statusText := st.Status
	if st.SyncInProgress {
		statusText += " (syncing)"
	}

	row := func(name, color, v string) string {
		return fmt.Sprintf("[%s::b]%-8s[-:-:-] [%s]%s[-]\n", label, name+":", color, tview.Escape(v))
	}
	return row("Session", value, st.Session) +
		row("Phone", value, orDash(st.Phone)) +
		row("Status", statusColor, statusText) +
		row("Chats", value, fmt.Sprint(st.Counts.Chats)) +
		row("Msgs", value, fmt.Sprint(st.Counts.Messages)) +
		row("Synced", value, orDash(st.LastSync)) +
		row("Uptime", value, formatUptime(time.Duration(st.UptimeMs)*time.Millisecond))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatUptime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
