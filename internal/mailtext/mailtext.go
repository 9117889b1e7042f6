// Package mailtext holds the plain-text cleanup shared by the inbound
// pipeline and the outbound send path, so both sides of a thread store the
// same kind of text summary.
package mailtext

import (
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
)

var (
	// "On Mon, Jan 2, 2006 at 3:04 PM, Jane <jane@acme.com> wrote:"
	replyMarker = regexp.MustCompile(`(?im)^\s*On .{1,200}wrote:\s*$`)
	// Outlook-style forwarding separators.
	forwardMarker = regexp.MustCompile(`(?im)^\s*-{2,}\s*(Original Message|Forwarded message)\s*-{2,}\s*$`)
	fromMarker    = regexp.MustCompile(`(?im)^\s*From:\s.*$`)
)

// StripQuotedReplies returns the text with quoted reply chains removed:
// everything after an "On ... wrote:" marker or a forwarding separator is
// dropped, as is every line starting with ">".
func StripQuotedReplies(text string) string {
	if text == "" {
		return ""
	}

	cut := len(text)
	for _, marker := range []*regexp.Regexp{replyMarker, forwardMarker, fromMarker} {
		if loc := marker.FindStringIndex(text); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	text = text[:cut]

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// WrapPlainAsHTML converts a plain-text body into minimal HTML for storage
// when a message carries no HTML part.
func WrapPlainAsHTML(text string) string {
	escaped := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	).Replace(text)
	return "<div>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</div>"
}

// HTMLToText derives a plain-text rendition of an HTML body, used when a
// message carries no text part. Falls back to the raw HTML if conversion fails.
func HTMLToText(html string) string {
	text, err := html2text.FromString(html, html2text.Options{TextOnly: true})
	if err != nil {
		return html
	}
	return text
}
