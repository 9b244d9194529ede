package app

import (
	"fmt"

	"gorm.io/gorm"

	chatmod "github.com/Hammadwakeel/R-S-RAG-backend/internal/modules/chat"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/modules/chat/steps"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/groq"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/realtime"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Chat      services.ChatService
	Notifier  services.ChatNotifier
	Retrieval services.RetrievalService

	ChatUsecases *chatmod.Usecases
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	clients Clients,
	reposet Repos,
	hub *realtime.SSEHub,
) (Services, error) {
	log.Info("Wiring services...")

	// With Redis an event is published once and every replica forwards it to
	// its own clients; without it events stay in-process.
	var emitter services.SSEEmitter
	if clients.SSEBus != nil {
		emitter = &services.RedisEmitter{Bus: clients.SSEBus}
	} else {
		emitter = &services.HubEmitter{Hub: hub}
	}
	notifier := services.NewChatNotifier(emitter)

	auth := services.NewAuthService(
		db, log,
		reposet.Users, reposet.Tokens,
		cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)

	chat := services.NewChatService(db, log, reposet.Sessions, reposet.Messages, notifier)

	var retriever steps.Retriever
	var retrieval services.RetrievalService
	if clients.Embedder != nil && clients.VectorStore != nil {
		r, err := services.NewRetrievalService(log, clients.Embedder, clients.VectorStore)
		if err != nil {
			return Services{}, fmt.Errorf("init retrieval service: %w", err)
		}
		retrieval = r
		retriever = r
	}

	// Compaction and distillation are short deterministic calls; pin them to
	// the summary model at temperature 0 when one is configured.
	var summarizer groq.Client
	if cfg.SummaryModel != "" {
		summarizer = groq.WithTemperature(groq.WithModel(clients.AI, cfg.SummaryModel), 0)
	}

	usecases := chatmod.New(chatmod.UsecasesDeps{
		DB:           db,
		Log:          log,
		AI:           clients.AI,
		SummarizerAI: summarizer,
		Retriever:    retriever,
		Sessions:     reposet.Sessions,
		Messages:     reposet.Messages,
		Chat:         chat,
		Notify:       notifier,
		Model:        cfg.GenerationModel,
	})

	return Services{
		Auth:         auth,
		Chat:         chat,
		Notifier:     notifier,
		Retrieval:    retrieval,
		ChatUsecases: usecases,
	}, nil
}
