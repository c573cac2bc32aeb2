package stream

import (
	"time"

	"github.com/google/uuid"

	"semqa/internal/domain"
)

// Phase is the lifecycle position of a request.
type Phase int

const (
	PhaseStreaming Phase = iota
	PhaseComplete
	PhaseCancelled
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStreaming:
		return "streaming"
	case PhaseComplete:
		return "complete"
	case PhaseCancelled:
		return "cancelled"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry groups every stage result belonging to one question hash.
// A nil field means that stage has not arrived yet. Values behind the
// pointers are never mutated once stored; updates replace the pointer.
type Entry struct {
	Hash           string
	Question       *domain.ResearchQuestion
	Embedding      *domain.EmbeddingPayload
	Datasets       *domain.DatasetResults
	Interpretation *domain.Interpretation
}

// RequestState is the state of one user query.
type RequestState struct {
	ID        string
	Params    domain.SearchParams
	Question  string
	StartedAt time.Time
	Phase     Phase
	Err       string

	order   []string
	entries map[string]*Entry
}

func newRequestState(params domain.SearchParams) *RequestState {
	return &RequestState{
		ID:        uuid.NewString(),
		Params:    params,
		StartedAt: time.Now(),
		Phase:     PhaseStreaming,
		entries:   make(map[string]*Entry),
	}
}

// entry returns the entry for hash, creating it in insertion order if needed.
func (s *RequestState) entry(hash string) (*Entry, bool) {
	if e, ok := s.entries[hash]; ok {
		return e, false
	}
	e := &Entry{Hash: hash}
	s.entries[hash] = e
	s.order = append(s.order, hash)
	return e, true
}

// Snapshot is a read-only copy of a RequestState handed to the view layer.
type Snapshot struct {
	ID        string
	Params    domain.SearchParams
	Question  string
	StartedAt time.Time
	Phase     Phase
	Err       string
	Order     []string
	Entries   map[string]Entry
}

// Loading reports whether the request is still streaming.
func (s Snapshot) Loading() bool { return s.Phase == PhaseStreaming }

// Len returns the number of known question hashes.
func (s Snapshot) Len() int { return len(s.Order) }

func (s *RequestState) snapshot() Snapshot {
	out := Snapshot{
		ID:        s.ID,
		Params:    s.Params,
		Question:  s.Question,
		StartedAt: s.StartedAt,
		Phase:     s.Phase,
		Err:       s.Err,
		Order:     append([]string(nil), s.order...),
		Entries:   make(map[string]Entry, len(s.entries)),
	}
	for k, e := range s.entries {
		out.Entries[k] = *e
	}
	return out
}
