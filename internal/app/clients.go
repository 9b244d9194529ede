package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/groq"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/qdrant"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/voyage"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/realtime/bus"
)

type Clients struct {
	AI groq.Client

	// Embedder and VectorStore are nil when retrieval is not configured;
	// the chat pipeline then answers without documents.
	Embedder    voyage.Embedder
	VectorStore qdrant.VectorStore

	SSEBus bus.Bus
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	ai, err := groq.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init groq client: %w", err)
	}
	if cfg.GenerationModel != "" {
		ai = groq.WithModel(ai, cfg.GenerationModel)
	}

	var embedder voyage.Embedder
	var store qdrant.VectorStore
	if strings.TrimSpace(os.Getenv("VOYAGE_API_KEY")) != "" && strings.TrimSpace(os.Getenv("QDRANT_URL")) != "" {
		embedder, err = voyage.NewEmbedder(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init voyage embedder: %w", err)
		}
		qcfg, err := qdrant.ResolveConfigFromEnv()
		if err != nil {
			return Clients{}, fmt.Errorf("resolve qdrant config: %w", err)
		}
		store, err = qdrant.NewVectorStore(log, qcfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init qdrant vector store: %w", err)
		}
	} else {
		log.Warn("retrieval disabled: VOYAGE_API_KEY or QDRANT_URL not set")
	}

	var sseBus bus.Bus
	if cfg.RedisAddr != "" {
		sseBus, err = bus.NewSSEBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
	}

	return Clients{
		AI:          ai,
		Embedder:    embedder,
		VectorStore: store,
		SSEBus:      sseBus,
	}, nil
}
