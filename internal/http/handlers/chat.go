package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	chatmod "github.com/Hammadwakeel/R-S-RAG-backend/internal/modules/chat"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/http/response"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/apperr"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/dbctx"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/services"
)

type ChatHandler struct {
	log      *logger.Logger
	chat     services.ChatService
	usecases *chatmod.Usecases
}

func NewChatHandler(log *logger.Logger, chat services.ChatService, usecases *chatmod.Usecases) *ChatHandler {
	return &ChatHandler{
		log:      log.With("handler", "ChatHandler"),
		chat:     chat,
		usecases: usecases,
	}
}

// SendMessage answers POST /chats/messages with a live SSE body: one
// data frame per generated fragment, a terminal error frame on failure,
// and always a final "[DONE]" marker once the stream has opened.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		SessionID *string `json:"session_id"`
		Content   string  `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	var sessionID *uuid.UUID
	if req.SessionID != nil && *req.SessionID != "" {
		id, err := uuid.Parse(*req.SessionID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
			return
		}
		sessionID = &id
	}

	stream := newSSEStream(c)
	turn, err := h.usecases.SendMessage(c.Request.Context(), chatmod.SendMessageInput{
		SessionID: sessionID,
		Content:   req.Content,
		OnStart: func(turn *services.Turn) {
			stream.sessionID = turn.Session.ID.String()
		},
		OnDelta: func(delta string) {
			stream.frame(gin.H{"content": delta, "session_id": stream.sessionID})
		},
	})
	h.finishStream(c, stream, turn, err)
}

// EditMessage answers PUT /chats/messages/:id. The conversation is rewound
// to the edited message and the reply regenerated, streamed the same way as
// SendMessage.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_message_id", err)
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	stream := newSSEStream(c)
	turn, err := h.usecases.EditMessage(c.Request.Context(), chatmod.EditMessageInput{
		MessageID: messageID,
		Content:   req.Content,
		OnStart: func(turn *services.Turn) {
			stream.sessionID = turn.Session.ID.String()
		},
		OnDelta: func(delta string) {
			stream.frame(gin.H{"content": delta, "session_id": stream.sessionID})
		},
	})
	h.finishStream(c, stream, turn, err)
}

func (h *ChatHandler) finishStream(c *gin.Context, stream *sseStream, turn *services.Turn, err error) {
	if turn == nil {
		// Nothing was written yet, so a plain JSON error is still possible.
		response.RespondError(c, statusFor(err), "chat_failed", err)
		return
	}
	stream.sessionID = turn.Session.ID.String()
	if err != nil {
		stream.frame(gin.H{"error": err.Error()})
	}
	stream.done()
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	sessions, err := h.chat.ListSessions(dbctx.Context{Ctx: c.Request.Context()}, limit)
	if err != nil {
		response.RespondError(c, statusFor(err), "list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": sessions})
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	messages, err := h.chat.GetHistory(dbctx.Context{Ctx: c.Request.Context()}, sessionID, limit)
	if err != nil {
		response.RespondError(c, statusFor(err), "history_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"messages": messages})
}

func (h *ChatHandler) RenameSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.chat.RenameSession(dbctx.Context{Ctx: c.Request.Context()}, sessionID, req.Title); err != nil {
		response.RespondError(c, statusFor(err), "rename_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	if err := h.chat.DeleteSession(dbctx.Context{Ctx: c.Request.Context()}, sessionID); err != nil {
		response.RespondError(c, statusFor(err), "delete_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// sseStream writes data frames onto the live response. Headers are committed
// lazily on the first frame, so requests that fail before any output can
// still answer with a JSON error.
type sseStream struct {
	c         *gin.Context
	started   bool
	sessionID string
}

func newSSEStream(c *gin.Context) *sseStream { return &sseStream{c: c} }

func (s *sseStream) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.c.Writer.WriteHeader(http.StatusOK)
}

func (s *sseStream) frame(payload gin.H) {
	s.start()
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(s.c.Writer, "data: %s\n\n", b)
	s.c.Writer.Flush()
}

func (s *sseStream) done() {
	s.start()
	fmt.Fprint(s.c.Writer, "data: [DONE]\n\n")
	s.c.Writer.Flush()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
