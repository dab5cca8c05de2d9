package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/wabridge/internal/tui/ui"
	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"
)

// AuthView shows the pairing QR code while the session is unlinked.
type AuthView struct {
	*tview.TextView
	theme     *ui.Theme
	challenge string
}

func NewAuthView(theme *ui.Theme) *AuthView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Link Device ")
	tv.SetTitleColor(theme.TitleColor)

	return &AuthView{
		TextView: tv,
		theme:    theme,
	}
}

func (av *AuthView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}

// ShowChallenge renders the pairing code. Repeated calls with the same
// code do not redraw.
func (av *AuthView) ShowChallenge(code string) {
	if code == av.challenge {
		return
	}
	av.challenge = code
	av.Clear()
	_, _ = fmt.Fprintf(av,
		"\nOpen WhatsApp > Linked devices > Link a device and scan:\n\n%s\n[::d]Waiting for the phone...",
		renderQR(code))
}

// ShowMessage replaces the QR code with a status line.
func (av *AuthView) ShowMessage(msg string) {
	av.challenge = ""
	av.Clear()
	_, _ = fmt.Fprintf(av, "\n\n%s", tview.Escape(msg))
}

// renderQR draws the code with half blocks, two module rows per line. Light
// modules are drawn so the code reads correctly on a dark terminal.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "(QR generation failed: " + err.Error() + ")"
	}
	bitmap := qr.Bitmap()

	var sb strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		for x := range bitmap[y] {
			top := !bitmap[y][x]
			bot := y+1 < len(bitmap) && !bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
