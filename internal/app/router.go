package app

import (
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/http"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/observability"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
)

func wireRouter(cfg Config, log *logger.Logger, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		ServiceName:     cfg.ServiceName,
		Log:             log,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		AuthHandler:     handlers.Auth,
		ChatHandler:     handlers.Chat,
		RealtimeHandler: handlers.Realtime,
		HealthHandler:   handlers.Health,
	})
}
