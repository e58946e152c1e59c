package fetch

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLToText strips markup from an HTML document, dropping script and style
// content, and returns the visible text one trimmed line per text node.
func HTMLToText(markup string) string {
	var text strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(markup))

	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return strings.TrimSpace(text.String())
			}
			// Malformed markup: return whatever was extracted.
			return strings.TrimSpace(text.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isInvisibleTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isInvisibleTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			trimmed := bytes.TrimSpace(tokenizer.Text())
			if len(trimmed) > 0 {
				text.Write(trimmed)
				text.WriteRune('\n')
			}
		}
	}
}

func isInvisibleTag(name string) bool {
	switch name {
	case "script", "style", "noscript":
		return true
	}
	return false
}
