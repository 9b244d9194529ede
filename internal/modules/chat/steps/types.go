package steps

import "context"

const (
	// TopKPassages is the number of passages fed to context compression per
	// question.
	TopKPassages = 3

	// RetrievalFetchLimit is how many matches are requested from the vector
	// store per query. Fetching past TopKPassages keeps duplicate hits from
	// shrinking the context below the target count.
	RetrievalFetchLimit = 2 * TopKPassages

	// BacklogThreshold is the unsummarized-message count that triggers
	// summary compaction.
	BacklogThreshold = 10

	// CompactBatchSize is how many of the oldest backlog messages get folded
	// into the rolling summary per compaction.
	CompactBatchSize = 5

	// CompressFallbackChars caps the raw context used when distillation
	// fails.
	CompressFallbackChars = 1000

	// NoContextSentinel stands in for retrieved context when nothing useful
	// came back. Generation always receives a non-empty context slot.
	NoContextSentinel = "No relevant documents."
)

// Passage is one retrieved document chunk. Signature identifies duplicate
// content across sources.
type Passage struct {
	Content   string
	Signature string
	Score     float64
}

// Retriever hides the embed-then-search plumbing from the context plan.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Passage, error)
}

// ContextBundle is everything generation needs beyond the question itself.
// Every field is always populated; failed stages degrade to sentinels or
// empty strings rather than erroring.
type ContextBundle struct {
	Question      string
	Summary       string
	RecentHistory string
	Context       string
}
