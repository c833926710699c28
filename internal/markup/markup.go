// Package markup renders message content to sanitized HTML and back to plain text.
package markup

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts Markdown message content to HTML safe to embed in the page.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer creates a renderer with GitHub flavoured Markdown enabled.
func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()

	return &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: policy,
	}
}

// HTML renders src. Content that fails to convert is shown escaped, as is.
func (r *Renderer) HTML(src string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return html.EscapeString(src)
	}
	return r.policy.Sanitize(buf.String())
}

var strict = bluemonday.StrictPolicy()

// PlainText strips every tag from s, unescapes entities and collapses whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	text := html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}
