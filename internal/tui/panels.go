package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"semqa/internal/domain"
	"semqa/internal/scene"
	"semqa/internal/stream"
	"semqa/internal/summarizer"
	"semqa/internal/view"
)

type panel int

const (
	panelQuestion panel = iota
	panelEmbedding
	panelDatasets
	panelInterpretation
	panelCount
)

var panelNames = [panelCount]string{"Question", "Embedding", "Datasets", "Interpretation"}

var (
	titleStyle        = lipgloss.NewStyle().Bold(true)
	dimStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	okStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	highlightStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	cursorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	focusedFieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	activeTabStyle    = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("12"))
	boxStyle          = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusedBoxStyle   = boxStyle.BorderForeground(lipgloss.Color("12"))
)

// layout holds the screen geometry shared by View and mouse handling.
type layout struct {
	width, height int
	bodyTop       int
	bodyH         int
	listW         int
	detailW       int
	contentW      int
	contentH      int
	listY         int
	sceneX        int
	sceneY        int
	sceneW        int
	sceneH        int
}

const (
	titleLines  = 1
	formLines   = 3
	footerLines = 2
	boxFrame    = 2 // border on each axis
	boxPadding  = 2 // horizontal padding
	sceneChrome = 4 // tabs, vector preview, info, controls
)

func computeLayout(w, h int) layout {
	l := layout{width: max(w, 40), height: max(h, 16)}
	l.bodyTop = titleLines + formLines + boxFrame
	l.bodyH = max(6, l.height-l.bodyTop-footerLines)
	l.listW = max(24, l.width/3)
	l.detailW = max(20, l.width-l.listW)
	l.contentW = l.detailW - boxFrame - boxPadding
	l.contentH = l.bodyH - boxFrame
	l.listY = l.bodyTop + 2 // border, then the summary line
	l.sceneX = l.listW + 2
	l.sceneY = l.bodyTop + 1 + 2
	l.sceneW = max(1, l.contentW)
	l.sceneH = max(1, l.contentH-sceneChrome)
	return l
}

// listOffset is the first visible row so that cursor stays on screen.
func listOffset(cursor, rows, visible int) int {
	if visible <= 0 || rows <= visible {
		return 0
	}
	off := cursor - visible + 1
	if off < 0 {
		off = 0
	}
	return off
}

func renderList(s stream.Snapshot, rows []view.Row, cursor int, l layout) string {
	visible := l.contentH - 1
	var lines []string
	summary := fmt.Sprintf("%d questions · %s", len(rows), s.Phase)
	if s.ID == "" {
		summary = "no request yet"
	}
	lines = append(lines, dimStyle.Render(summary))
	off := listOffset(cursor, len(rows), visible)
	w := l.listW - boxFrame - boxPadding
	for i := off; i < len(rows) && i < off+visible; i++ {
		r := rows[i]
		marker := "  "
		title := truncateText(r.Title(), max(4, w-7))
		if i == cursor {
			marker = cursorStyle.Render("› ")
			title = cursorStyle.Render(title)
		}
		lines = append(lines, marker+dimStyle.Render(r.Stages())+" "+title)
	}
	return strings.Join(lines, "\n")
}

func renderTabs(active panel) string {
	tabs := make([]string, 0, panelCount)
	for i, name := range panelNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if panel(i) == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, dimStyle.Render(label))
		}
	}
	return strings.Join(tabs, "  ")
}

func renderQuestionPanel(s stream.Snapshot, r view.Row, width int) string {
	wrap := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	b.WriteString(wrap.Render(titleStyle.Render(r.Title())))
	b.WriteString("\n\n")
	if reason := r.Reason(); reason != "" {
		b.WriteString(wrap.Render(dimStyle.Render("Why: ") + reason))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "hash      %s\n", r.Hash)
	fmt.Fprintf(&b, "stages    %s\n", r.Stages())
	if r.Datasets != nil {
		fmt.Fprintf(&b, "datasets  %d (step 2.%d)\n", len(r.Datasets.Matches), r.Datasets.SubStep)
	}
	if r.Interpretation != nil {
		fmt.Fprintf(&b, "answer    step 3.%d\n", r.Interpretation.SubStep)
	}
	b.WriteString("\n")
	if s.Question != "" {
		b.WriteString(wrap.Render(dimStyle.Render("Primary question: ") + s.Question))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s %s · started %s",
		dimStyle.Render("request"), view.ShortHash(s.ID), s.StartedAt.Format("15:04:05"))
	return b.String()
}

func renderDatasetsPanel(r view.Row, loading bool, ranker *summarizer.Ranker, sentences, width int) string {
	if r.Datasets == nil {
		if loading {
			return dimStyle.Render("Waiting for dataset matches…")
		}
		return dimStyle.Render("No dataset matches.")
	}
	if len(r.Datasets.Matches) == 0 {
		return dimStyle.Render("The search returned no datasets.")
	}
	wrap := lipgloss.NewStyle().Width(width)
	query := r.Title()
	var blocks []string
	for i, match := range r.Datasets.Matches {
		md := match.Metadata
		var b strings.Builder
		title := md.Title
		if title == "" {
			title = md.ID
		}
		b.WriteString(titleStyle.Render(fmt.Sprintf("%d. %s", i+1, title)) + "\n")
		fmt.Fprintf(&b, "%s %s\n", view.ScoreBar(match.Score, 20), view.ScorePercent(match.Score))
		if meta := datasetMeta(md); meta != "" {
			b.WriteString(dimStyle.Render(meta) + "\n")
		}
		if md.Description != "" {
			b.WriteString(wrap.Render(highlightBestSentence(ranker, ranker.Shorten(md.Description, sentences), query)))
			b.WriteString("\n")
		}
		if len(md.Tags) > 0 {
			b.WriteString(dimStyle.Render("tags: "+strings.Join(md.Tags, ", ")) + "\n")
		}
		if md.URL != "" {
			b.WriteString(dimStyle.Render(md.URL) + "\n")
		}
		for _, line := range view.Fields(md) {
			b.WriteString("  " + truncateText(line, max(10, width-2)) + "\n")
		}
		blocks = append(blocks, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func datasetMeta(md domain.DatasetMetadata) string {
	var parts []string
	if md.Organization != "" {
		parts = append(parts, md.Organization)
	}
	if loc := md.Location(); loc != "" {
		parts = append(parts, loc)
	}
	if md.MetadataModified != "" {
		parts = append(parts, "updated "+md.MetadataModified)
	}
	if md.Author != "" {
		parts = append(parts, "by "+md.Author)
	}
	return strings.Join(parts, " · ")
}

// highlightBestSentence emphasises the sentence that shares the most words
// with query.
func highlightBestSentence(ranker *summarizer.Ranker, text, query string) string {
	sentences, best := ranker.Best(text, query)
	if len(sentences) == 0 {
		return text
	}
	if best >= 0 {
		sentences[best] = highlightStyle.Render(sentences[best])
	}
	return strings.Join(sentences, " ")
}

func renderInterpretationPanel(r view.Row, loading bool, md *markdownRenderer, width int) string {
	if r.Interpretation == nil {
		if loading {
			return dimStyle.Render("Waiting for the interpretation…")
		}
		return dimStyle.Render("No interpretation for this question.")
	}
	return md.Render(r.Interpretation.Answer, width)
}

func renderEmbeddingPanel(r view.Row, ctrl *scene.Controller, params scene.Params, previewDims int, l layout) string {
	if r.Embedding == nil {
		return dimStyle.Render("Waiting for the embedding…")
	}
	lines := make([]string, 0, l.sceneH+3)
	lines = append(lines, truncateText(view.VectorPreview(r.Embedding.Vector, min(8, max(1, previewDims))), l.contentW))
	body := ctrl.View()
	bodyLines := strings.Split(body, "\n")
	for i := 0; i < l.sceneH; i++ {
		if i < len(bodyLines) {
			lines = append(lines, bodyLines[i])
		} else {
			lines = append(lines, "")
		}
	}
	info := ctrl.Info()
	if info == "" {
		info = dimStyle.Render("hover a point for details · click to select")
	}
	lines = append(lines, truncateText(info, l.contentW))
	auto := "off"
	if params.AutoRotate {
		auto = "on"
	}
	lines = append(lines, dimStyle.Render(fmt.Sprintf("c color %s · +/- size %.2f · [/] speed %.1f · a auto %s · x clear",
		params.ColorScheme, params.PointSize, params.RotationSpeed, auto)))
	return strings.Join(lines, "\n")
}

func truncateText(s string, n int) string {
	if n <= 0 || lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) > n-1 {
		r = r[:n-1]
	}
	return string(r) + "…"
}
