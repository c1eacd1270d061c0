package board

import (
	"strings"
	"testing"
)

func TestFormatContent(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		contains string
		absent   string
	}{
		{"Bold", "**hi**", "<strong>hi</strong>", ""},
		{"Link", "[x](https://example.com)", `href="https://example.com"`, ""},
		{"Script stripped", "<script>alert(1)</script>hello", "hello", "<script>"},
		{"Event handler stripped", `<a href="/x" onclick="evil()">x</a>`, "x", "onclick"},
		{"Javascript URL stripped", `<a href="javascript:alert(1)">x</a>`, "x", "javascript:"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FormatContent(tc.input)
			if !strings.Contains(got, tc.contains) {
				t.Errorf("Expected %q in %q", tc.contains, got)
			}
			if tc.absent != "" && strings.Contains(got, tc.absent) {
				t.Errorf("Did not expect %q in %q", tc.absent, got)
			}
		})
	}
}

func TestPlainTextAndExcerpt(t *testing.T) {
	if got := PlainText("**Hello** & <b>world</b>"); got != "Hello & world" {
		t.Errorf("Unexpected plain text %q", got)
	}
	if got := Excerpt("abcdefghij", 4); got != "abcd…" {
		t.Errorf("Unexpected excerpt %q", got)
	}
	if got := Excerpt("short", 40); got != "short" {
		t.Errorf("Unexpected excerpt %q", got)
	}
}
