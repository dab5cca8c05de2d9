// Package jid holds the small set of address helpers shared by the store,
// the ingestion pipeline and the send path.
package jid

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// Me is the sender value recorded for messages sent from this account.
const Me = "me"

// IsGroup reports whether addr identifies a group chat.
func IsGroup(addr string) bool {
	return strings.HasSuffix(addr, "@"+types.GroupServer)
}

// Phone extracts the user part of an address ("15551234567@s.whatsapp.net" -> "15551234567").
// Device suffixes are dropped. Returns the input unchanged when it has no server part.
func Phone(addr string) string {
	user, _, found := strings.Cut(addr, "@")
	if !found {
		return addr
	}
	if i := strings.IndexAny(user, ":."); i >= 0 {
		user = user[:i]
	}
	return user
}

// Normalize turns a bare phone number into a user address. Addresses that
// already carry a server part are returned as-is.
func Normalize(to string) string {
	to = strings.TrimSpace(to)
	if to == "" || strings.Contains(to, "@") {
		return to
	}
	var b strings.Builder
	for _, r := range to {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + "@" + types.DefaultUserServer
}

// Canonical parses addr and strips device/agent information, so that every
// device of a user maps to the same chat.
func Canonical(addr string) string {
	if addr == "" {
		return ""
	}
	parsed, err := types.ParseJID(addr)
	if err != nil {
		return addr
	}
	return parsed.ToNonAD().String()
}
