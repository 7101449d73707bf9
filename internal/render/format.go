package render

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var numberedPrefix = regexp.MustCompile(`(?m)^\d+\.\s`)

// FormatMessage prepares assistant text for markdown rendering: numbered list
// prefixes become bullets and every newline becomes a hard line break. User
// text is returned unchanged.
func FormatMessage(content string, isAssistant bool) string {
	if !isAssistant {
		return content
	}
	out := numberedPrefix.ReplaceAllString(content, "• ")
	out = strings.ReplaceAll(out, "\n", "  \n")
	return strings.TrimSpace(out)
}

// markdown leaves raw HTML out of the output (goldmark's default).
var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// Markdown renders a message body to HTML. Raw HTML in the source is dropped.
func Markdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}
