package app

import (
	"gorm.io/gorm"

	httpH "github.com/Hammadwakeel/R-S-RAG-backend/internal/http/handlers"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	Chat     *httpH.ChatHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, serviceset Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Auth:     httpH.NewAuthHandler(serviceset.Auth),
		Chat:     httpH.NewChatHandler(log, serviceset.Chat, serviceset.ChatUsecases),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}
