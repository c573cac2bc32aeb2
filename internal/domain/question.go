package domain

// ResearchQuestion is one sub-question generated from the user's query.
// QuestionHash is assigned by the server and stays stable for the request.
type ResearchQuestion struct {
	Question     string `json:"question"`
	Reason       string `json:"reason"`
	QuestionHash string `json:"question_hash"`
}

// EmbeddingPayload is the embedding vector computed for one research question.
// A payload without components carries no data and is never visualized.
type EmbeddingPayload struct {
	QuestionHash string
	Question     string
	Reason       string
	Vector       []float64
}

// Empty reports whether the payload has no vector components.
func (p EmbeddingPayload) Empty() bool { return len(p.Vector) == 0 }

// Dimension returns the number of vector components.
func (p EmbeddingPayload) Dimension() int { return len(p.Vector) }

// DatasetResults holds the ranked dataset matches for one research question.
// SubStep is the server's ordinal for the frame that produced it.
type DatasetResults struct {
	QuestionHash string
	SubStep      int
	Matches      []DatasetMatch
}

// Interpretation is the textual answer produced for one research question.
// Answer may contain a small markdown subset.
type Interpretation struct {
	QuestionHash string
	SubStep      int
	Answer       string
}
