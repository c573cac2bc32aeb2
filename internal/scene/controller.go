package scene

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"semqa/internal/domain"
	"semqa/internal/projector"
)

// State is the lifecycle stage of a Controller.
type State int

const (
	Idle State = iota
	Building
	Live
	Rebuilding
	Disposed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case Live:
		return "live"
	case Rebuilding:
		return "rebuilding"
	case Disposed:
		return "disposed"
	}
	return "unknown"
}

// NoData is shown when a payload has no vector.
const NoData = "No data to display"

const (
	DefaultFPS   = 30
	refreshFrame = 1000.0 / 60 // ms per frame the rotation rate is tuned for
	easing       = 0.05
)

var controllerIDs atomic.Uint64

type builtMsg struct {
	id     uint64
	gen    uint64
	bundle *Bundle
	err    error
}

type tickMsg struct {
	id  uint64
	gen uint64
	at  time.Time
}

// Options configures a Controller.
type Options struct {
	Allocator     Allocator
	Projector     *projector.Projector
	Logger        *zap.Logger
	FPS           int
	PickThreshold float64
	Width, Height int
	Now           func() time.Time
}

// Controller owns one interactive point cloud. It is driven from a Bubble Tea
// Update loop: every method must be called from that loop, and every message
// the Controller returned as a command must be passed back to Update.
type Controller struct {
	id     uint64
	alloc  Allocator
	proj   *projector.Projector
	logger *zap.Logger
	now    func() time.Time

	fps       int
	threshold float64
	width     int
	height    int

	state   State
	gen     uint64
	cancel  context.CancelFunc
	bundle  *Bundle
	payload domain.EmbeddingPayload
	params  Params

	rotX, rotY    float64
	pointerX      float64
	pointerY      float64
	started, last time.Time
	hovered       int
	selected      int
	frames        int
}

func NewController(opts Options) *Controller {
	if opts.Allocator == nil {
		opts.Allocator = NewCountingAllocator()
	}
	if opts.Projector == nil {
		opts.Projector = projector.New(projector.DefaultOptions())
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.PickThreshold <= 0 {
		opts.PickThreshold = DefaultPickThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Width <= 0 {
		opts.Width = 60
	}
	if opts.Height <= 0 {
		opts.Height = 20
	}
	return &Controller{
		id:        controllerIDs.Add(1),
		alloc:     opts.Allocator,
		proj:      opts.Projector,
		logger:    opts.Logger,
		now:       opts.Now,
		fps:       opts.FPS,
		threshold: opts.PickThreshold,
		width:     opts.Width,
		height:    opts.Height,
		params:    DefaultParams(),
		hovered:   -1,
		selected:  -1,
	}
}

func (c *Controller) State() State             { return c.state }
func (c *Controller) Params() Params           { return c.params }
func (c *Controller) Frames() int              { return c.frames }
func (c *Controller) Hash() string             { return c.payload.QuestionHash }
func (c *Controller) Hovered() int             { return c.hovered }
func (c *Controller) Selected() int            { return c.selected }
func (c *Controller) Size() (w, h int)         { return c.width, c.height }
func (c *Controller) Rotation() (x, y float64) { return c.rotX, c.rotY }

// Load replaces the shown payload. Any existing scene is disposed before the
// new build starts.
func (c *Controller) Load(payload domain.EmbeddingPayload, params Params) tea.Cmd {
	if c.state == Disposed {
		return nil
	}
	c.payload = payload
	c.params = params.Normalize()
	return c.rebuild()
}

// SetParams rebuilds the current payload with new visual settings.
func (c *Controller) SetParams(params Params) tea.Cmd {
	return c.Load(c.payload, params)
}

// SetSize resizes the drawing surface, rebuilding when it changes.
func (c *Controller) SetSize(width, height int) tea.Cmd {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if width == c.width && height == c.height {
		return nil
	}
	c.width, c.height = width, height
	if c.state == Disposed || c.payload.Empty() {
		return nil
	}
	return c.rebuild()
}

func (c *Controller) rebuild() tea.Cmd {
	wasActive := c.state != Idle
	c.teardown()
	c.hovered, c.selected = -1, -1
	if c.payload.Empty() {
		c.state = Idle
		return nil
	}
	if wasActive {
		c.state = Rebuilding
	} else {
		c.state = Building
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	id, gen := c.id, c.gen
	alloc, proj := c.alloc, c.proj
	payload, params := c.payload, c.params
	w, h := c.width, c.height
	c.logger.Debug("scene build started",
		zap.String("question_hash", payload.QuestionHash),
		zap.Uint64("generation", gen),
		zap.Stringer("state", c.state),
	)
	return func() tea.Msg {
		points := proj.Layout(payload)
		b, err := build(ctx, alloc, points, params, w, h)
		return builtMsg{id: id, gen: gen, bundle: b, err: err}
	}
}

// teardown disposes the live scene, cancels a pending build and ends the
// animation loop of the current generation.
func (c *Controller) teardown() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.bundle != nil {
		c.bundle.Dispose()
		c.bundle = nil
		c.logger.Debug("scene disposed", zap.Uint64("generation", c.gen))
	}
	c.gen++
}

// Unmount disposes everything. The controller accepts no further loads.
func (c *Controller) Unmount() {
	if c.state == Disposed {
		return
	}
	c.teardown()
	c.state = Disposed
	c.hovered, c.selected = -1, -1
}

// Clear disposes the current scene and returns to Idle without a payload.
func (c *Controller) Clear() {
	if c.state == Disposed {
		return
	}
	c.teardown()
	c.payload = domain.EmbeddingPayload{}
	c.state = Idle
	c.hovered, c.selected = -1, -1
}

// Update consumes build results and animation ticks addressed to this
// controller. Other messages are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case builtMsg:
		if msg.id != c.id {
			return nil
		}
		return c.install(msg)
	case tickMsg:
		if msg.id != c.id {
			return nil
		}
		if msg.gen != c.gen || c.state != Live {
			return nil
		}
		c.animate(msg.at)
		c.draw()
		return c.tick()
	}
	return nil
}

func (c *Controller) install(msg builtMsg) tea.Cmd {
	stale := msg.gen != c.gen || (c.state != Building && c.state != Rebuilding)
	if stale {
		if msg.bundle != nil {
			msg.bundle.Dispose()
		}
		return nil
	}
	c.cancel = nil
	if msg.err != nil {
		c.logger.Warn("scene build failed", zap.Error(msg.err))
		c.state = Idle
		return nil
	}
	c.bundle = msg.bundle
	c.state = Live
	c.started = c.now()
	c.last = c.started
	c.logger.Debug("scene live",
		zap.Uint64("generation", c.gen),
		zap.Int("points", len(c.bundle.Points)),
		zap.Int("resources", len(c.bundle.resources)),
	)
	c.draw()
	return c.tick()
}

func (c *Controller) tick() tea.Cmd {
	id, gen := c.id, c.gen
	return tea.Tick(time.Second/time.Duration(c.fps), func(t time.Time) tea.Msg {
		return tickMsg{id: id, gen: gen, at: t}
	})
}

func (c *Controller) animate(now time.Time) {
	if c.params.AutoRotate {
		elapsed := float64(now.Sub(c.last)) / float64(time.Millisecond)
		if elapsed < 0 {
			elapsed = 0
		}
		c.rotY += 0.001 * c.params.RotationSpeed * (elapsed / refreshFrame)
		t := float64(now.Sub(c.started)) / float64(time.Millisecond)
		c.rotX = math.Sin(t*1e-4) * 0.2
	} else {
		c.rotX += (c.pointerY*math.Pi*0.5 - c.rotX) * easing
		c.rotY += (c.pointerX*math.Pi - c.rotY) * easing
	}
	c.last = now
}

func (c *Controller) draw() {
	if c.bundle == nil {
		return
	}
	render(c.bundle, c.rotX, c.rotY, c.hovered, c.selected)
	c.frames++
}

// Pointer handles pointer motion at a surface cell.
func (c *Controller) Pointer(col, row int) {
	if c.state != Live {
		return
	}
	c.pointerX = float64(col)/float64(c.width)*2 - 1
	c.pointerY = -(float64(row)/float64(c.height)*2 - 1)
	c.hovered = c.pickAt(col, row)
}

// Click selects the point under a cell. A miss keeps the selection.
func (c *Controller) Click(col, row int) {
	if c.state != Live {
		return
	}
	if i := c.pickAt(col, row); i >= 0 {
		c.selected = i
	}
}

func (c *Controller) ClearSelection() {
	c.selected = -1
}

// Leave clears the hover when the pointer leaves the surface.
func (c *Controller) Leave() {
	c.hovered = -1
}

func (c *Controller) pickAt(col, row int) int {
	if col < 0 || row < 0 || col >= c.width || row >= c.height {
		return -1
	}
	cam := &c.bundle.Camera
	world := make([]Vec3, len(c.bundle.Points))
	for i, p := range c.bundle.Points {
		world[i] = Vec3(p.Position).rotate(c.rotX, c.rotY)
	}
	return pick(cam.Position, cam.Ray(col, row), world, c.threshold)
}

// Point returns the layout point at index i of the live scene.
func (c *Controller) Point(i int) (projector.Point, bool) {
	if c.bundle == nil || i < 0 || i >= len(c.bundle.Points) {
		return projector.Point{}, false
	}
	return c.bundle.Points[i].Point, true
}

// View renders the last drawn frame.
func (c *Controller) View() string {
	switch c.state {
	case Idle:
		if c.payload.Empty() {
			return NoData
		}
		return ""
	case Building, Rebuilding:
		return "Building scene…"
	case Disposed:
		return ""
	}
	return c.bundle.surface.String()
}

// Info describes the hovered or selected point.
func (c *Controller) Info() string {
	if p, ok := c.Point(c.hovered); ok {
		return fmt.Sprintf("%s · %s · importance %.3f", p.Label, p.Detail, p.Importance)
	}
	if p, ok := c.Point(c.selected); ok {
		return fmt.Sprintf("selected %s · %s · importance %.3f", p.Label, p.Detail, p.Importance)
	}
	return ""
}
