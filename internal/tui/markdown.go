package tui

import (
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	markStyle = lipgloss.NewStyle().Background(lipgloss.Color("11")).Foreground(lipgloss.Color("0"))

	// ==text== survives glamour as literal text, possibly split by SGR codes.
	markRe = regexp.MustCompile(`==((?:[^=\x1b\n]|\x1b\[[0-9;]*m)+?)==`)
	sgrRe  = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// markdownRenderer renders interpretation answers with glamour, keeping one
// term renderer per wrap width.
type markdownRenderer struct {
	mu      sync.Mutex
	style   string
	byWidth map[int]*glamour.TermRenderer
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{style: "dark", byWidth: map[int]*glamour.TermRenderer{}}
}

// Render renders src at width. If glamour fails the text is wrapped as is.
func (r *markdownRenderer) Render(src string, width int) string {
	if width < 10 {
		width = 10
	}
	src = strings.ReplaceAll(src, "\r\n", "\n")

	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.byWidth[width]
	if !ok {
		var err error
		tr, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return highlight(lipgloss.NewStyle().Width(width).Render(src))
		}
		r.byWidth[width] = tr
	}
	out, err := tr.Render(src)
	if err != nil {
		return highlight(lipgloss.NewStyle().Width(width).Render(src))
	}
	return highlight(strings.Trim(out, "\n"))
}

// highlight styles ==text== spans. Spans padded with spaces on either side
// are left alone.
func highlight(s string) string {
	return markRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := sgrRe.ReplaceAllString(m[2:len(m)-2], "")
		if inner == "" || inner != strings.TrimSpace(inner) {
			return m
		}
		return markStyle.Render(inner)
	})
}
