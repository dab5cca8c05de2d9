package views

import (
	"strings"

	"github.com/rivo/tview"
)

// sanitize drops code points that tcell cannot lay out in a single cell run
// (skin tone modifiers, zero width joiners, variation selectors) and escapes
// tview color tags.
func sanitize(s string) string {
	return tview.Escape(strings.Map(func(r rune) rune {
		if dropRune(r) {
			return -1
		}
		return r
	}, s))
}

func dropRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	}
	return false
}
