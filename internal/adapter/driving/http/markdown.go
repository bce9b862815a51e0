package httphandler

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	notesRenderer  = newNotesRenderer()
	notesSanitizer = newNotesSanitizer()
)

func newNotesRenderer() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
	)
}

// newNotesSanitizer allows user-generated-content markup. External links
// open in a new tab and carry rel="nofollow noopener".
func newNotesSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// RenderMarkdown converts a customer's site access notes to sanitized HTML
// for the access_notes_html response field.
//
// Access notes are free text that technicians read on site: gate and alarm
// codes, parking and badge instructions, escort contacts, links to building
// portals. They are written in GitHub-flavored markdown (tables, task lists,
// strikethrough, autolinks) and single newlines are kept as line breaks,
// since notes are usually typed as one instruction per line.
//
// Raw HTML in the source passes through goldmark and is then cleaned by a
// bluemonday UGC policy, so scripts, event handlers and javascript: URLs never
// reach the client. If conversion fails the raw source is sanitized instead.
// Blank or whitespace-only notes render as "".
func RenderMarkdown(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := notesRenderer.Convert([]byte(src), &buf); err != nil {
		return notesSanitizer.Sanitize(src)
	}

	return notesSanitizer.Sanitize(buf.String())
}
