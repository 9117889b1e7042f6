package mailtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripQuotedReplies(t *testing.T) {
	t.Run("drops lines starting with >", func(t *testing.T) {
		input := "Thanks, that works.\n> earlier message\n> more quoted text"
		assert.Equal(t, "Thanks, that works.", StripQuotedReplies(input))
	})

	t.Run("cuts at On ... wrote: marker", func(t *testing.T) {
		input := "Sounds good!\n\nOn Mon, Jan 2, 2026 at 3:04 PM Jane Doe <jane@acme.com> wrote:\n> original text"
		assert.Equal(t, "Sounds good!", StripQuotedReplies(input))
	})

	t.Run("cuts at original message separator", func(t *testing.T) {
		input := "See below.\n-----Original Message-----\nFrom: Jane <jane@acme.com>\nbody"
		assert.Equal(t, "See below.", StripQuotedReplies(input))
	})

	t.Run("cuts at From: forwarding marker", func(t *testing.T) {
		input := "Forwarding this.\nFrom: Jane Doe <jane@acme.com>\nSubject: hello"
		assert.Equal(t, "Forwarding this.", StripQuotedReplies(input))
	})

	t.Run("keeps unquoted multi-line text", func(t *testing.T) {
		input := "Line one.\nLine two.\nLine three."
		assert.Equal(t, input, StripQuotedReplies(input))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", StripQuotedReplies(""))
	})
}

func TestWrapPlainAsHTML(t *testing.T) {
	t.Run("converts newlines to br", func(t *testing.T) {
		assert.Equal(t, "<div>a<br>b</div>", WrapPlainAsHTML("a\nb"))
	})

	t.Run("escapes markup", func(t *testing.T) {
		assert.Equal(t, "<div>1 &lt; 2 &amp; 3 &gt; 2</div>", WrapPlainAsHTML("1 < 2 & 3 > 2"))
	})
}

func TestHTMLToText(t *testing.T) {
	t.Run("strips tags", func(t *testing.T) {
		text := HTMLToText("<div><p>Hello <b>world</b></p></div>")
		assert.Contains(t, text, "Hello world")
		assert.NotContains(t, text, "<")
	})
}
