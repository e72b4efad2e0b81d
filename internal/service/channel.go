package service

import (
	"strconv"
	"strings"
)

// NormalizeChannel strips whitespace and leading "@" so "@news" and "news" compare equal.
func NormalizeChannel(ch string) string {
	return strings.TrimLeft(strings.TrimSpace(ch), "@")
}

// ParseChannel converts a stored identifier to what the Bot API expects:
// a numeric chat id, or an "@username" when the identifier is not numeric.
func ParseChannel(ch string) (int64, string) {
	clean := NormalizeChannel(ch)
	if id, err := strconv.ParseInt(clean, 10, 64); err == nil {
		return id, ""
	}
	return 0, "@" + clean
}

// JoinURL returns the public t.me link for username channels.
// Numeric ids are private chats without a derivable link.
func JoinURL(ch string) (string, bool) {
	clean := NormalizeChannel(ch)
	if clean == "" {
		return "", false
	}
	if _, err := strconv.ParseInt(clean, 10, 64); err == nil {
		return "", false
	}
	return "https://t.me/" + clean, true
}

// ChannelDisplayName is the "@handle" label used on join buttons.
func ChannelDisplayName(ch string) string {
	return "@" + NormalizeChannel(ch)
}
