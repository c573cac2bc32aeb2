package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flat drops styling and collapses whitespace, so assertions do not depend
// on margins or wrap padding.
func flat(s string) string { return strings.Join(strings.Fields(plain(s)), " ") }

func TestRenderMarkdownBlocks(t *testing.T) {
	src := strings.Join([]string{
		"# Title",
		"",
		"Some **bold** and *soft* text with `code`.",
		"",
		"> quoted",
		"",
		"- first",
		"- second",
		"",
		"```",
		"raw *text*",
		"```",
	}, "\n")

	out := newMarkdownRenderer().Render(src, 60)
	text := flat(out)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Some bold and soft text with")
	assert.Contains(t, text, "code")
	assert.Contains(t, text, "quoted")
	assert.Contains(t, text, "• first")
	assert.Contains(t, text, "• second")
	assert.Contains(t, text, "raw *text*")
	assert.NotContains(t, text, "```")
	assert.NotContains(t, text, "**")
}

func TestRenderMarkdownWrapsToWidth(t *testing.T) {
	out := plain(newMarkdownRenderer().Render(strings.Repeat("word ", 40), 30))
	lines := strings.Split(out, "\n")
	require.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, len(strings.TrimSpace(l)), 30, l)
	}
}

func TestRenderMarkdownHighlight(t *testing.T) {
	r := newMarkdownRenderer()
	out := r.Render("see ==this== and _that_", 40)
	assert.Equal(t, "see this and that", flat(out))
	assert.Contains(t, out, markStyle.Render("this"))
}

func TestHighlightSkipsSpacedEquals(t *testing.T) {
	assert.Equal(t, "a == b == c", highlight("a == b == c"))
	assert.Equal(t, markStyle.Render("x y"), highlight("==x \x1b[1my\x1b[0m=="))
}

func TestRenderMarkdownKeepsPlainText(t *testing.T) {
	assert.Equal(t, "just text", flat(newMarkdownRenderer().Render("just text", 40)))
}

func TestRenderMarkdownReusesRendererPerWidth(t *testing.T) {
	r := newMarkdownRenderer()
	r.Render("a", 40)
	r.Render("b", 40)
	r.Render("c", 50)
	assert.Len(t, r.byWidth, 2)
}
