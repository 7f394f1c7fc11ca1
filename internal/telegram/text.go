package telegram

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// SplitMessage splits a message into chunks of maxLen characters,
// trying to split at newlines when possible. HTML built one element per
// line stays well-formed in every chunk.
func SplitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	for len(text) > 0 {
		if utf8.RuneCountInString(text) <= maxLen {
			parts = append(parts, text)
			break
		}

		// Find split point
		runes := []rune(text)
		splitAt := maxLen

		// Try to split at a newline
		chunk := string(runes[:maxLen])
		if lastNewline := strings.LastIndex(chunk, "\n"); lastNewline > len(chunk)/2 {
			splitAt = utf8.RuneCountInString(chunk[:lastNewline]) + 1
		}

		parts = append(parts, string(runes[:splitAt]))
		text = string(runes[splitAt:])
	}

	return parts
}

// PlainText strips HTML markup and resolves entities, for resending a
// message Telegram refused to parse.
func PlainText(htmlText string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return htmlText
	}
	return doc.Text()
}

// Truncate cuts text to at most maxLen runes, marking the cut.
func Truncate(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	return string([]rune(text)[:maxLen-3]) + "..."
}
