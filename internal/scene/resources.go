package scene

import (
	"context"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"semqa/internal/projector"
)

// ResourceKind classifies what a scene acquires while building.
type ResourceKind string

const (
	KindGeometry ResourceKind = "geometry"
	KindMaterial ResourceKind = "material"
	KindLight    ResourceKind = "light"
	KindHelper   ResourceKind = "helper"
	KindSurface  ResourceKind = "surface"
	KindListener ResourceKind = "listener"
)

// Resource is a handle returned by an Allocator.
type Resource struct {
	ID   int
	Kind ResourceKind
	Name string
}

// Allocator hands out and takes back scene resources. Implementations must
// be safe for concurrent use since scenes build off the update loop.
type Allocator interface {
	Acquire(kind ResourceKind, name string) Resource
	Release(r Resource)
}

// CountingAllocator tracks live resources.
type CountingAllocator struct {
	mu       sync.Mutex
	next     int
	live     map[int]Resource
	acquired int
	released int
}

func NewCountingAllocator() *CountingAllocator {
	return &CountingAllocator{live: make(map[int]Resource)}
}

func (a *CountingAllocator) Acquire(kind ResourceKind, name string) Resource {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	r := Resource{ID: a.next, Kind: kind, Name: name}
	a.live[r.ID] = r
	a.acquired++
	return r
}

func (a *CountingAllocator) Release(r Resource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[r.ID]; !ok {
		return
	}
	delete(a.live, r.ID)
	a.released++
}

// Live is the number of acquired but unreleased resources.
func (a *CountingAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Totals reports lifetime acquisitions and releases.
func (a *CountingAllocator) Totals() (acquired, released int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquired, a.released
}

// renderPoint is a layout point with its visual encoding resolved.
type renderPoint struct {
	projector.Point
	Color colorful.Color
	Size  float64
}

// Bundle owns everything a live scene holds.
type Bundle struct {
	Camera Camera
	Points []renderPoint

	surface   *surface
	alloc     Allocator
	resources []Resource
	once      sync.Once
}

func (b *Bundle) acquire(ctx context.Context, kind ResourceKind, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.resources = append(b.resources, b.alloc.Acquire(kind, name))
	return nil
}

// Resources lists what the bundle currently holds.
func (b *Bundle) Resources() []Resource {
	out := make([]Resource, len(b.resources))
	copy(out, b.resources)
	return out
}

// Dispose releases every resource in reverse acquisition order. Safe to call
// more than once.
func (b *Bundle) Dispose() {
	b.once.Do(func() {
		for i := len(b.resources) - 1; i >= 0; i-- {
			b.alloc.Release(b.resources[i])
		}
		b.resources = nil
		b.Points = nil
		b.surface = nil
	})
}

var bundleInventory = []struct {
	kind ResourceKind
	name string
}{
	{KindGeometry, "points"},
	{KindMaterial, "points"},
	{KindGeometry, "edges"},
	{KindMaterial, "edges"},
	{KindLight, "ambient"},
	{KindLight, "directional"},
	{KindHelper, "axes"},
	{KindHelper, "grid"},
	{KindSurface, "framebuffer"},
	{KindListener, "pointermove"},
	{KindListener, "click"},
	{KindListener, "resize"},
}

// build assembles a scene for points. A cancelled ctx releases whatever was
// acquired and returns the context error.
func build(ctx context.Context, alloc Allocator, points []projector.Point, params Params, width, height int) (*Bundle, error) {
	b := &Bundle{alloc: alloc, Camera: NewCamera(width, height)}
	for _, item := range bundleInventory {
		if err := b.acquire(ctx, item.kind, item.name); err != nil {
			b.Dispose()
			return nil, err
		}
		switch {
		case item.kind == KindGeometry && item.name == "points":
			b.Points = encode(points, params)
		case item.kind == KindSurface:
			b.surface = newSurface(width, height)
		}
	}
	return b, nil
}

func encode(points []projector.Point, params Params) []renderPoint {
	out := make([]renderPoint, len(points))
	for i, p := range points {
		out[i] = renderPoint{
			Point: p,
			Color: PointColor(params.ColorScheme, p.Importance),
			Size:  PointSize(params.PointSize, p.Importance),
		}
	}
	return out
}
