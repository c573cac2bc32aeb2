package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"semqa/internal/domain"
	"semqa/internal/projector"
	"semqa/internal/scene"
	"semqa/internal/stream"
	"semqa/internal/summarizer"
	"semqa/internal/view"
)

// Options wires the TUI to its collaborators.
type Options struct {
	Open                 Opener
	Logger               *zap.Logger
	Projector            *projector.Projector
	Allocator            scene.Allocator
	Form                 FormDefaults
	Scene                scene.Params
	FPS                  int
	PickThreshold        float64
	PreviewDims          int
	DescriptionSentences int
}

type focus int

const (
	focusForm focus = iota
	focusResults
)

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	open    Opener
	logger  *zap.Logger
	ranker  *summarizer.Ranker
	answers *markdownRenderer
	opts    Options
	form    searchForm
	focus   focus
	spinner spinner.Model

	viewport viewport.Model
	layout   layout
	ready    bool
	status   string

	reducer    *stream.Reducer
	frames     Frames
	cancelOpen context.CancelFunc
	snapshot   stream.Snapshot
	rows       []view.Row
	cursor     int
	panel      panel

	scene        *scene.Controller
	sceneParams  scene.Params
	scenePayload *domain.EmbeddingPayload
}

// New creates a new TUI model instance.
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Projector == nil {
		opts.Projector = projector.New(projector.DefaultOptions())
	}
	if opts.PreviewDims <= 0 {
		opts.PreviewDims = projector.DefaultPreviewDims
	}
	if opts.DescriptionSentences <= 0 {
		opts.DescriptionSentences = 2
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	l := computeLayout(80, 24)
	return Model{
		open:     opts.Open,
		logger:   opts.Logger,
		ranker:   summarizer.NewRanker(),
		answers:  newMarkdownRenderer(),
		opts:     opts,
		form:     newSearchForm(opts.Form),
		spinner:  sp,
		viewport: viewport.New(l.contentW, l.contentH-1),
		layout:   l,
		status:   "Type a question and press Enter.",
		scene: scene.NewController(scene.Options{
			Allocator:     opts.Allocator,
			Projector:     opts.Projector,
			Logger:        opts.Logger.Named("scene"),
			FPS:           opts.FPS,
			PickThreshold: opts.PickThreshold,
			Width:         l.sceneW,
			Height:        l.sceneH,
		}),
		sceneParams: opts.Scene.Normalize(),
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return tea.Batch(textinput.Blink, m.spinner.Tick) }

// Update handles key, mouse, window and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.layout = computeLayout(msg.Width, msg.Height)
		m.viewport.Width = m.layout.contentW
		m.viewport.Height = m.layout.contentH - 1
		m.refreshContent()
		cmds = append(cmds, m.scene.SetSize(m.layout.sceneW, m.layout.sceneH))
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.shutdown()
			return m, tea.Quit
		}
		cmds = append(cmds, m.handleKey(msg))
	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))
	case streamOpenedMsg:
		cmds = append(cmds, m.onOpened(msg))
	case streamFailedMsg:
		if m.current(msg.requestID) {
			m.reducer.Fail(msg.err)
			cmds = append(cmds, m.refresh())
		}
	case frameMsg:
		if m.current(msg.requestID) {
			m.reducer.Ingest(msg.frame)
			cmds = append(cmds, m.refresh())
			if m.reducer.Loading() {
				cmds = append(cmds, waitForFrame(msg.requestID, m.frames))
			}
		}
	case streamEndedMsg:
		if m.current(msg.requestID) {
			m.reducer.Fail(msg.err)
			cmds = append(cmds, m.refresh())
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, m.scene.Update(msg))
	return m, tea.Batch(cmds...)
}

func (m *Model) current(requestID string) bool {
	return m.reducer != nil && m.reducer.ID() == requestID
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		if m.snapshot.Err != "" && m.reducer != nil {
			m.reducer.DismissError()
			return m.refresh()
		}
		if m.focus == focusForm {
			m.setFocus(focusResults)
		} else {
			m.setFocus(focusForm)
		}
		return nil
	case "ctrl+x":
		m.cancelRequest()
		return m.refresh()
	}
	if m.focus == focusForm {
		if msg.String() == "enter" {
			return m.submit()
		}
		var cmd tea.Cmd
		m.form, cmd = m.form.update(msg)
		return cmd
	}
	return m.handleResultsKey(msg)
}

func (m *Model) handleResultsKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		m.shutdown()
		return tea.Quit
	case "/":
		m.setFocus(focusForm)
		return nil
	case "up", "k":
		return m.selectRow(m.cursor - 1)
	case "down", "j":
		return m.selectRow(m.cursor + 1)
	case "left", "h", "shift+tab":
		return m.selectPanel((m.panel - 1 + panelCount) % panelCount)
	case "right", "l", "tab":
		return m.selectPanel((m.panel + 1) % panelCount)
	case "1", "2", "3", "4":
		return m.selectPanel(panel(msg.String()[0] - '1'))
	case "pgup", "pgdown", "home", "end", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	if m.panel == panelEmbedding {
		return m.handleSceneKey(msg.String())
	}
	return nil
}

func (m *Model) handleSceneKey(key string) tea.Cmd {
	p := m.sceneParams
	switch key {
	case "c":
		p.ColorScheme = p.NextColorScheme()
	case "+", "=":
		p.PointSize += 0.05
	case "-":
		p.PointSize -= 0.05
	case "]":
		p.RotationSpeed += 0.1
	case "[":
		p.RotationSpeed -= 0.1
	case "a":
		p.AutoRotate = !p.AutoRotate
	case "x":
		m.scene.ClearSelection()
		return nil
	default:
		return nil
	}
	p = p.Normalize()
	if p == m.sceneParams {
		return nil
	}
	m.sceneParams = p
	if m.scenePayload == nil {
		return nil
	}
	return m.scene.SetParams(p)
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	l := m.layout
	inScene := m.panel == panelEmbedding && m.scenePayload != nil &&
		msg.X >= l.sceneX && msg.X < l.sceneX+l.sceneW &&
		msg.Y >= l.sceneY && msg.Y < l.sceneY+l.sceneH
	switch {
	case inScene && msg.Action == tea.MouseActionMotion:
		m.scene.Pointer(msg.X-l.sceneX, msg.Y-l.sceneY)
	case inScene && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.scene.Click(msg.X-l.sceneX, msg.Y-l.sceneY)
	case msg.Action == tea.MouseActionMotion:
		m.scene.Leave()
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.X < l.listW && msg.Y >= l.listY:
		visible := l.contentH - 1
		i := listOffset(m.cursor, len(m.rows), visible) + msg.Y - l.listY
		if i < len(m.rows) {
			m.setFocus(focusResults)
			return m.selectRow(i)
		}
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusForm {
		m.form.setFocus(m.form.focus)
	} else {
		m.form.blur()
	}
}

// submit discards the previous request and starts a new one.
func (m *Model) submit() tea.Cmd {
	params := m.form.params()
	if params.Question == "" {
		m.status = "Enter a question first."
		return nil
	}
	m.cancelRequest()
	m.reducer = stream.NewReducer(params, m.logger.Named("stream"))
	m.frames = nil
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelOpen = cancel
	m.cursor = 0
	m.panel = panelQuestion
	m.status = ""
	m.logger.Info("request submitted",
		zap.String("request_id", m.reducer.ID()),
		zap.String("question", params.Question),
		zap.String("embedding_model", params.Filters.EmbeddingModel),
	)
	m.setFocus(focusResults)
	return tea.Batch(openStream(ctx, m.open, m.reducer.ID(), params), m.refresh())
}

func (m *Model) onOpened(msg streamOpenedMsg) tea.Cmd {
	if !m.current(msg.requestID) || !m.reducer.Loading() {
		msg.frames.Close()
		return nil
	}
	m.frames = msg.frames
	m.reducer.Attach(msg.frames.Close)
	return waitForFrame(msg.requestID, msg.frames)
}

func (m *Model) cancelRequest() {
	if m.cancelOpen != nil {
		m.cancelOpen()
		m.cancelOpen = nil
	}
	if m.reducer != nil {
		m.reducer.Cancel()
	}
}

func (m *Model) shutdown() {
	m.cancelRequest()
	m.scene.Unmount()
}

func (m *Model) selectRow(i int) tea.Cmd {
	if len(m.rows) == 0 {
		return nil
	}
	m.cursor = clampInt(i, 0, len(m.rows)-1)
	m.viewport.GotoTop()
	m.refreshContent()
	return m.syncScene()
}

func (m *Model) selectPanel(p panel) tea.Cmd {
	if p < 0 || p >= panelCount {
		return nil
	}
	m.panel = p
	m.viewport.GotoTop()
	m.refreshContent()
	return m.syncScene()
}

// refresh re-reads the reducer state after it changed.
func (m *Model) refresh() tea.Cmd {
	if m.reducer == nil {
		return nil
	}
	m.snapshot = m.reducer.Snapshot()
	m.rows = view.Rows(m.snapshot)
	if m.cursor >= len(m.rows) {
		m.cursor = max(0, len(m.rows)-1)
	}
	m.refreshContent()
	return m.syncScene()
}

// syncScene shows the embedding of the selected question while the
// embedding panel is open and disposes the scene otherwise.
func (m *Model) syncScene() tea.Cmd {
	var want *domain.EmbeddingPayload
	if m.panel == panelEmbedding && m.cursor < len(m.rows) {
		want = m.rows[m.cursor].Embedding
	}
	if want == nil {
		if m.scenePayload != nil {
			m.scene.Clear()
			m.scenePayload = nil
		}
		return nil
	}
	if want == m.scenePayload {
		return nil
	}
	m.scenePayload = want
	return m.scene.Load(*want, m.sceneParams)
}

func (m *Model) refreshContent() {
	if len(m.rows) == 0 {
		m.viewport.SetContent(dimStyle.Render("No research questions yet."))
		return
	}
	r := m.rows[m.cursor]
	w := m.layout.contentW
	loading := m.snapshot.Loading()
	switch m.panel {
	case panelQuestion:
		m.viewport.SetContent(renderQuestionPanel(m.snapshot, r, w))
	case panelDatasets:
		m.viewport.SetContent(renderDatasetsPanel(r, loading, m.ranker, m.opts.DescriptionSentences, w))
	case panelInterpretation:
		m.viewport.SetContent(renderInterpretationPanel(r, loading, m.answers, w))
	}
}

// View renders the TUI layout and current question.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	l := m.layout
	header := titleStyle.Render("semqa") + dimStyle.Render(" · research question explorer")

	formBox := boxStyle
	listBox := boxStyle
	if m.focus == focusForm {
		formBox = focusedBoxStyle
	} else {
		listBox = focusedBoxStyle
	}
	form := formBox.Width(l.width - boxFrame).Render(m.form.view(l.width - boxFrame - boxPadding))

	list := listBox.Width(l.listW - boxFrame).Height(l.contentH).
		Render(renderList(m.snapshot, m.rows, m.cursor, l))

	var detail string
	if m.panel == panelEmbedding && len(m.rows) > 0 {
		detail = renderEmbeddingPanel(m.rows[m.cursor], m.scene, m.sceneParams, m.opts.PreviewDims, l)
	} else {
		detail = m.viewport.View()
	}
	detailBox := boxStyle.Width(l.detailW - boxFrame).Height(l.contentH).
		Render(renderTabs(m.panel) + "\n" + clipLines(detail, l.contentH-1))

	body := lipgloss.JoinHorizontal(lipgloss.Top, list, detailBox)
	return strings.Join([]string{header, form, body, m.statusLine(), m.helpLine()}, "\n")
}

func (m Model) statusLine() string {
	if m.snapshot.Err != "" {
		return errorStyle.Render("⚠ "+m.snapshot.Err) + dimStyle.Render("  (esc to dismiss)")
	}
	switch {
	case m.reducer == nil:
		return dimStyle.Render(m.status)
	case m.snapshot.Loading():
		return m.spinner.View() + " Streaming research results…" + dimStyle.Render("  (ctrl+x to cancel)")
	case m.snapshot.Phase == stream.PhaseComplete:
		return okStyle.Render("✓ Complete")
	}
	return dimStyle.Render(m.snapshot.Phase.String())
}

func (m Model) helpLine() string {
	if m.focus == focusForm {
		return dimStyle.Render("enter search · tab next field · ←/→ adjust · space toggle · esc results · ctrl+c quit")
	}
	return dimStyle.Render("↑/↓ question · ←/→ or 1-4 panel · / search · esc toggle · q quit")
}

func clipLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:max(0, n)]
	}
	return strings.Join(lines, "\n")
}
