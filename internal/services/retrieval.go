package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/modules/chat/steps"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/observability"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/qdrant"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/voyage"
)

// RetrievalService embeds a question and searches the document index. It is
// the steps.Retriever used by the chat context plan.
type RetrievalService interface {
	Retrieve(ctx context.Context, query string, topK int) ([]steps.Passage, error)
}

type retrievalService struct {
	log      *logger.Logger
	embedder voyage.Embedder
	store    qdrant.VectorStore
}

func NewRetrievalService(baseLog *logger.Logger, embedder voyage.Embedder, store qdrant.VectorStore) (RetrievalService, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store required")
	}
	return &retrievalService{
		log:      baseLog.With("service", "RetrievalService"),
		embedder: embedder,
		store:    store,
	}, nil
}

func (s *retrievalService) Retrieve(ctx context.Context, query string, topK int) ([]steps.Passage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = steps.TopKPassages
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		s.count("error")
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		s.count("error")
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	matches, err := s.store.Query(ctx, vectors[0], topK)
	if err != nil {
		s.count("error")
		return nil, fmt.Errorf("vector search: %w", err)
	}
	s.count("ok")

	passages := make([]steps.Passage, 0, len(matches))
	for _, m := range matches {
		text, _ := m.Payload["text"].(string)
		if strings.TrimSpace(text) == "" {
			continue
		}
		passages = append(passages, steps.Passage{
			Content: text,
			Score:   m.Score,
		})
	}
	return passages, nil
}

func (s *retrievalService) count(status string) {
	if m := observability.Current(); m != nil {
		m.IncRetrieval(status)
	}
}
