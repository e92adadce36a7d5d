package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxInboundTextLength caps inbound message text before it reaches the
// synthesis pipeline.
const MaxInboundTextLength = 4096

// SanitizeMessageText strips control characters from inbound text, collapses
// leading/trailing whitespace, and caps the length.
func SanitizeMessageText(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, text)
	cleaned = strings.TrimSpace(cleaned)
	return truncateBytes(cleaned, MaxInboundTextLength)
}

// truncateBytes caps s at max bytes, backing off to the nearest rune boundary
// so the result is always valid UTF-8.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// SanitizeIdentifier keeps channel/sender identifiers to a safe charset.
func SanitizeIdentifier(id string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '-', r == '_', r == '+', r == '@', r == '.', r == ':':
			return r
		default:
			return -1
		}
	}, strings.TrimSpace(id))
	return truncateBytes(cleaned, 255)
}

// GenerateRequestID creates a unique request identifier using UUID v4.
func GenerateRequestID() string {
	return uuid.New().String()
}
