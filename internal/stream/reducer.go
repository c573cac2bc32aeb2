package stream

import (
	"errors"

	"go.uber.org/zap"

	"semqa/internal/domain"
)

// maxLoggedFrame bounds how much of a dropped frame ends up in the log.
const maxLoggedFrame = 256

// Reducer folds the frames of one request into its RequestState.
// A Reducer serves exactly one request and is discarded afterwards.
// It is not safe for concurrent use; callers apply frames one at a time.
type Reducer struct {
	state  *RequestState
	closer func()
	logger *zap.Logger
}

// NewReducer starts a request in the streaming phase.
func NewReducer(params domain.SearchParams, logger *zap.Logger) *Reducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	st := newRequestState(params)
	return &Reducer{
		state:  st,
		logger: logger.With(zap.String("request_id", st.ID)),
	}
}

// Attach registers the function that closes the underlying transport.
// If the request already ended, the transport is closed right away.
func (r *Reducer) Attach(closer func()) {
	r.closer = closer
	if r.state.Phase != PhaseStreaming {
		r.closeTransport()
	}
}

// ID returns the request identifier.
func (r *Reducer) ID() string { return r.state.ID }

// Loading reports whether the request is still streaming.
func (r *Reducer) Loading() bool { return r.state.Phase == PhaseStreaming }

// Snapshot returns a read-only copy of the current state.
func (r *Reducer) Snapshot() Snapshot { return r.state.snapshot() }

// Ingest applies one raw frame. Malformed frames are logged and dropped.
// Frames arriving after the request ended are ignored.
func (r *Reducer) Ingest(frame string) {
	if r.state.Phase != PhaseStreaming {
		return
	}
	ev, err := Parse(frame)
	if err != nil {
		r.logger.Warn("dropping unparseable frame",
			zap.Error(err),
			zap.String("frame", truncate(frame, maxLoggedFrame)),
		)
		return
	}
	r.Apply(ev)
}

// Apply folds one parsed event into the state.
func (r *Reducer) Apply(ev Event) {
	if r.state.Phase != PhaseStreaming {
		return
	}
	switch ev := ev.(type) {
	case DoneEvent:
		r.state.Phase = PhaseComplete
		r.closeTransport()
		r.logger.Info("stream complete", zap.Int("questions", len(r.state.order)))
	case ErrorEvent:
		r.state.Err = ev.Message
		r.logger.Warn("server reported stage error", zap.Int("step", ev.Step), zap.String("error", ev.Message))
	case QuestionsEvent:
		r.applyQuestions(ev)
	case EmbeddingsEvent:
		r.applyEmbeddings(ev)
	case DatasetsEvent:
		e := r.entryFor(ev.Results.QuestionHash, 2)
		res := ev.Results
		e.Datasets = &res
		r.logUnknownFields(res)
	case InterpretationEvent:
		e := r.entryFor(ev.Interpretation.QuestionHash, 3)
		in := ev.Interpretation
		e.Interpretation = &in
	}
}

func (r *Reducer) logUnknownFields(res domain.DatasetResults) {
	for _, m := range res.Matches {
		if names := m.Metadata.Fields.Unknown(); len(names) > 0 {
			r.logger.Warn("unknown field summary types",
				zap.String("question_hash", res.QuestionHash),
				zap.String("dataset", m.Metadata.ID),
				zap.Strings("fields", names),
			)
		}
	}
}

func (r *Reducer) applyQuestions(ev QuestionsEvent) {
	if ev.Question != "" {
		r.state.Question = ev.Question
	}
	for _, q := range ev.Questions {
		e, _ := r.state.entry(q.QuestionHash)
		if e.Question != nil {
			continue
		}
		rq := q
		e.Question = &rq
	}
}

func (r *Reducer) applyEmbeddings(ev EmbeddingsEvent) {
	for _, p := range ev.Embeddings {
		if p.Empty() {
			r.logger.Debug("ignoring empty embedding", zap.String("question_hash", p.QuestionHash))
			continue
		}
		e := r.entryFor(p.QuestionHash, 1)
		payload := p
		e.Embedding = &payload
	}
}

// entryFor returns the entry for hash, creating a placeholder when stage 0
// never announced it.
func (r *Reducer) entryFor(hash string, step int) *Entry {
	e, created := r.state.entry(hash)
	if created {
		r.logger.Warn("placeholder for unknown question hash", zap.String("question_hash", hash), zap.Int("step", step))
	}
	return e
}

// Cancel ends a streaming request on behalf of the user. It is a no-op once
// the request has ended for any reason.
func (r *Reducer) Cancel() {
	if r.state.Phase != PhaseStreaming {
		return
	}
	r.closeTransport()
	r.state.Err = MsgCancelled
	r.state.Phase = PhaseCancelled
	r.logger.Info("stream cancelled by user")
}

// Fail records the transport outcome. A normal closure ends the request
// silently; the other causes set a user-visible message. Applied state is kept.
func (r *Reducer) Fail(err error) {
	if r.state.Phase != PhaseStreaming {
		return
	}
	r.closeTransport()
	switch {
	case err == nil || errors.Is(err, ErrClosed):
		r.state.Phase = PhaseComplete
		r.logger.Info("stream closed by server")
		return
	case errors.Is(err, ErrConnect):
		r.state.Err = MsgConnectFailed
	default:
		r.state.Err = MsgConnectionError
	}
	r.state.Phase = PhaseFailed
	r.logger.Error("stream failed", zap.Error(err))
}

// DismissError clears the error slot without touching data.
func (r *Reducer) DismissError() { r.state.Err = "" }

func (r *Reducer) closeTransport() {
	if r.closer == nil {
		return
	}
	c := r.closer
	r.closer = nil
	c()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
