package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/Hammadwakeel/R-S-RAG-backend/internal/http/handlers"
	httpMW "github.com/Hammadwakeel/R-S-RAG-backend/internal/http/middleware"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/observability"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
)

type RouterConfig struct {
	ServiceName string
	Log         *logger.Logger
	Metrics     *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	AuthHandler     *httpH.AuthHandler
	ChatHandler     *httpH.ChatHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api/v1")

	if cfg.AuthHandler != nil {
		auth := api.Group("/auth")
		auth.POST("/register", cfg.AuthHandler.Register)
		auth.POST("/login", cfg.AuthHandler.Login)
		auth.POST("/refresh", cfg.AuthHandler.Refresh)
		auth.POST("/logout", cfg.AuthHandler.Logout)
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	if cfg.AuthHandler != nil {
		protected.GET("/me", cfg.AuthHandler.Me)
	}

	if cfg.ChatHandler != nil {
		protected.GET("/chats", cfg.ChatHandler.ListSessions)
		protected.GET("/chats/:id/messages", cfg.ChatHandler.GetHistory)
		protected.PATCH("/chats/:id", cfg.ChatHandler.RenameSession)
		protected.DELETE("/chats/:id", cfg.ChatHandler.DeleteSession)

		protected.POST("/chats/messages", cfg.ChatHandler.SendMessage)
		protected.PUT("/chats/messages/:id", cfg.ChatHandler.EditMessage)
	}

	if cfg.RealtimeHandler != nil {
		protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
	}

	return r
}
