package board

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var (
	ugcPolicy   = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// FormatContent renders user-supplied markdown as sanitized HTML.
func FormatContent(content string) string {
	rendered := blackfriday.Run([]byte(content), blackfriday.WithExtensions(
		blackfriday.CommonExtensions|blackfriday.HardLineBreak,
	))
	return string(ugcPolicy.SanitizeBytes(rendered))
}

// PlainText strips markup for notifications and feed summaries.
func PlainText(content string) string {
	text := plainPolicy.Sanitize(FormatContent(content))
	return strings.TrimSpace(html.UnescapeString(text))
}

// Excerpt trims plain text to at most n runes.
func Excerpt(content string, n int) string {
	text := []rune(PlainText(content))
	if len(text) <= n {
		return string(text)
	}
	return strings.TrimSpace(string(text[:n])) + "…"
}
