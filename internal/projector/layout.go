package projector

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"semqa/internal/domain"
)

// DefaultPreviewDims matches the number of components shown per question.
const DefaultPreviewDims = 64

const chunkSize = 3

// PointKind tells segment points from chunk points.
type PointKind int

const (
	SegmentPoint PointKind = iota
	ChunkPoint
)

// Point is one renderable point of an embedding layout.
type Point struct {
	Kind       PointKind
	Index      int
	Label      string
	Detail     string
	Position   [3]float64
	Importance float64
}

// Options configures a Projector.
type Options struct {
	// PreviewDims truncates vectors before layout. 0 keeps the full vector.
	PreviewDims int
	Segments    int
	TTL         time.Duration
}

func DefaultOptions() Options {
	return Options{
		PreviewDims: DefaultPreviewDims,
		Segments:    DefaultSegments,
		TTL:         10 * time.Minute,
	}
}

// Projector turns embedding payloads into point layouts and caches them by
// vector content.
type Projector struct {
	opts  Options
	cache *gocache.Cache
}

func New(opts Options) *Projector {
	if opts.Segments <= 0 {
		opts.Segments = DefaultSegments
	}
	if opts.PreviewDims < 0 {
		opts.PreviewDims = 0
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions().TTL
	}
	return &Projector{
		opts:  opts,
		cache: gocache.New(opts.TTL, 2*opts.TTL),
	}
}

// Layout returns segment points followed by chunk points for payload.
// An empty vector yields no points.
func (p *Projector) Layout(payload domain.EmbeddingPayload) []Point {
	vec := payload.Vector
	if p.opts.PreviewDims > 0 && len(vec) > p.opts.PreviewDims {
		vec = vec[:p.opts.PreviewDims]
	}
	if len(vec) == 0 {
		return nil
	}
	key := vectorKey(vec)
	if cached, ok := p.cache.Get(key); ok {
		return withQuestion(clonePoints(cached.([]Point)), payload.Question)
	}
	pts := layout(vec, p.opts.Segments)
	p.cache.Set(key, pts, gocache.DefaultExpiration)
	return withQuestion(clonePoints(pts), payload.Question)
}

// Flush drops all cached layouts.
func (p *Projector) Flush() {
	p.cache.Flush()
}

// layout builds the points of vec without any question text, so cached
// layouts can be shared between payloads carrying the same vector.
func layout(vec []float64, segments int) []Point {
	segs := Segments(vec, segments)
	pts := make([]Point, 0, len(segs)+len(vec)/chunkSize)
	for _, s := range segs {
		pts = append(pts, Point{
			Kind:       SegmentPoint,
			Index:      len(pts),
			Label:      fmt.Sprintf("Segment %d", s.Index+1),
			Detail:     fmt.Sprintf("segment %d", s.Index+1),
			Position:   s.Position,
			Importance: s.Importance,
		})
	}

	chunks := chunksOf(vec)
	if len(chunks) <= 3 {
		return pts
	}
	reduced := Project(chunks, 3)
	mags := make([]float64, len(chunks))
	var maxMag float64
	for i, c := range chunks {
		mags[i] = math.Sqrt(dot(c, c))
		if mags[i] > maxMag {
			maxMag = mags[i]
		}
	}
	for i, r := range reduced {
		imp := 0.5
		if maxMag > 0 {
			imp += 0.5 * mags[i] / maxMag
		}
		pts = append(pts, Point{
			Kind:       ChunkPoint,
			Index:      len(pts),
			Label:      fmt.Sprintf("Point %d", i+1),
			Position:   [3]float64{r[0] * positionScale, r[1] * positionScale, r[2] * positionScale},
			Importance: imp,
		})
	}
	return pts
}

// withQuestion fills in the hover details of pts for question.
func withQuestion(pts []Point, question string) []Point {
	if question == "" {
		return pts
	}
	for i := range pts {
		switch pts[i].Kind {
		case SegmentPoint:
			pts[i].Detail = fmt.Sprintf("%s (%s)", question, pts[i].Detail)
		case ChunkPoint:
			pts[i].Detail = question
		}
	}
	return pts
}

// chunksOf returns the consecutive full 3-component chunks of vec, the
// trailing chunk excluded.
func chunksOf(vec []float64) [][]float64 {
	var chunks [][]float64
	for i := 0; i < len(vec)-chunkSize; i += chunkSize {
		c := make([]float64, chunkSize)
		for j := range c {
			c[j] = finite(vec[i+j])
		}
		chunks = append(chunks, c)
	}
	return chunks
}

func vectorKey(vec []float64) string {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range vec {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}
	return fmt.Sprintf("%d:%x", len(vec), h.Sum64())
}

func clonePoints(pts []Point) []Point {
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}
