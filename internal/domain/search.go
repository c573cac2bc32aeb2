package domain

// Embedding models the backend accepts for query embedding.
const (
	ModelBGEM3     = "baai-bge-m3"
	ModelE5Base    = "intfloat-multilingual-e5-base"
	ModelJinaV3    = "jinaai-jina-embeddings-v3"
	ModelLaBSE     = "sentence-transformers-labse"
	DefaultModel   = ModelBGEM3
	MinFilterYear  = 1990
	MaxFilterYear  = 2026
	DefaultYearLow = 2000
	DefaultYearTop = 2024
)

// EmbeddingModels lists the selectable embedding models in display order.
var EmbeddingModels = []string{ModelBGEM3, ModelE5Base, ModelJinaV3, ModelLaBSE}

// SearchFilters narrows the dataset search. Zero values mean "no filter".
type SearchFilters struct {
	Countries      []string `yaml:"countries,omitempty"`
	States         []string `yaml:"states,omitempty"`
	Cities         []string `yaml:"cities,omitempty"`
	YearFrom       int      `yaml:"year_from,omitempty"`
	YearTo         int      `yaml:"year_to,omitempty"`
	EmbeddingModel string   `yaml:"embedding_model,omitempty"`
}

// SearchParams is one user query as sent to the research backend.
type SearchParams struct {
	Question             string
	Filters              SearchFilters
	UseMultiQuery        bool
	UseLLMInterpretation bool
}
