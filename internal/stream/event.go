package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"semqa/internal/domain"
)

// Sentinel is the literal that ends a logical stream.
const Sentinel = "[DONE]"

// Event is one parsed stream frame. The set of implementations is closed.
type Event interface {
	isEvent()
}

// QuestionsEvent (step 0) lists every research question of the request.
type QuestionsEvent struct {
	Question  string
	Questions []domain.ResearchQuestion
}

// EmbeddingsEvent (step 1) carries embeddings for one or more questions.
type EmbeddingsEvent struct {
	Embeddings []domain.EmbeddingPayload
}

// DatasetsEvent (step 2) carries the dataset matches of one question.
type DatasetsEvent struct {
	Results domain.DatasetResults
}

// InterpretationEvent (step 3) carries the answer of one question.
type InterpretationEvent struct {
	Interpretation domain.Interpretation
}

// ErrorEvent is a stage error reported by the server.
type ErrorEvent struct {
	Step    int
	Message string
}

// DoneEvent is the sentinel frame.
type DoneEvent struct{}

func (QuestionsEvent) isEvent()      {}
func (EmbeddingsEvent) isEvent()     {}
func (DatasetsEvent) isEvent()       {}
func (InterpretationEvent) isEvent() {}
func (ErrorEvent) isEvent()          {}
func (DoneEvent) isEvent()           {}

var errEmptyFrame = errors.New("empty frame")

type envelope struct {
	Step    *int            `json:"step"`
	SubStep int             `json:"sub_step"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type questionsData struct {
	Question          string                    `json:"question"`
	ResearchQuestions []domain.ResearchQuestion `json:"research_questions"`
}

type embeddingItem struct {
	Question     string          `json:"question"`
	Reason       string          `json:"reason"`
	QuestionHash string          `json:"question_hash"`
	Embeddings   json.RawMessage `json:"embeddings"`
}

type datasetsData struct {
	QuestionHash string                `json:"question_hash"`
	Datasets     []domain.DatasetMatch `json:"datasets"`
}

type interpretationData struct {
	QuestionHash string `json:"question_hash"`
	Answer       string `json:"answer"`
}

// Parse decodes one frame. The sentinel matches exactly or as a substring.
func Parse(frame string) (Event, error) {
	if strings.Contains(frame, Sentinel) {
		return DoneEvent{}, nil
	}
	trimmed := strings.TrimSpace(frame)
	if trimmed == "" {
		return nil, errEmptyFrame
	}
	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Step == nil {
		return nil, errors.New("missing step")
	}
	step := *env.Step
	if strings.EqualFold(env.Status, "error") {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("server reported an error at step %d", step)
		}
		return ErrorEvent{Step: step, Message: msg}, nil
	}
	switch step {
	case 0:
		var d questionsData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, fmt.Errorf("step 0 data: %w", err)
		}
		return QuestionsEvent{Question: d.Question, Questions: d.ResearchQuestions}, nil
	case 1:
		items, err := decodeEmbeddingItems(env.Data)
		if err != nil {
			return nil, fmt.Errorf("step 1 data: %w", err)
		}
		out := EmbeddingsEvent{Embeddings: make([]domain.EmbeddingPayload, 0, len(items))}
		for _, it := range items {
			vec, err := decodeVector(it.Embeddings)
			if err != nil {
				return nil, fmt.Errorf("step 1 embeddings for %q: %w", it.QuestionHash, err)
			}
			out.Embeddings = append(out.Embeddings, domain.EmbeddingPayload{
				QuestionHash: it.QuestionHash,
				Question:     it.Question,
				Reason:       it.Reason,
				Vector:       vec,
			})
		}
		return out, nil
	case 2:
		var d datasetsData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, fmt.Errorf("step 2 data: %w", err)
		}
		return DatasetsEvent{Results: domain.DatasetResults{
			QuestionHash: d.QuestionHash,
			SubStep:      env.SubStep,
			Matches:      d.Datasets,
		}}, nil
	case 3:
		var d interpretationData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, fmt.Errorf("step 3 data: %w", err)
		}
		return InterpretationEvent{Interpretation: domain.Interpretation{
			QuestionHash: d.QuestionHash,
			SubStep:      env.SubStep,
			Answer:       d.Answer,
		}}, nil
	default:
		return nil, fmt.Errorf("unknown step %d", step)
	}
}

// decodeEmbeddingItems accepts either a list of items or a single item.
func decodeEmbeddingItems(data json.RawMessage) ([]embeddingItem, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var one embeddingItem
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, err
		}
		return []embeddingItem{one}, nil
	}
	var many []embeddingItem
	if err := json.Unmarshal(data, &many); err != nil {
		return nil, err
	}
	return many, nil
}

// decodeVector accepts a flat vector or a batch of vectors, keeping the first row.
func decodeVector(raw json.RawMessage) ([]float64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}
	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, err
	}
	if len(nested) == 0 {
		return nil, nil
	}
	return nested[0], nil
}
