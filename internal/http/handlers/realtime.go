package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/http/response"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/apperr"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/realtime"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/requestdata"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log: log.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

// SSEStream subscribes the connection to the caller's user channel, where
// session and message lifecycle events fan out across all of the user's open
// tabs and devices.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "not_authenticated", apperr.ErrUnauthorized)
		return
	}

	client := h.hub.NewSSEClient(rd.UserID)
	h.hub.AddChannel(client, client.UserChannel())
	h.log.Info("sse stream open", "user_id", rd.UserID.String())

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Info("sse stream closed", "user_id", rd.UserID.String())
}
