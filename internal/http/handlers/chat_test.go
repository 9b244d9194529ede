package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	chatmod "github.com/Hammadwakeel/R-S-RAG-backend/internal/modules/chat"
	chattypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/apperr"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/dbctx"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/services"
)

type fakeChatService struct {
	turn *services.Turn
	err  error
}

func (f *fakeChatService) CreateSession(dbc dbctx.Context, title string) (*chattypes.ChatSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChatService) ListSessions(dbc dbctx.Context, limit int) ([]*chattypes.ChatSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChatService) GetSession(dbc dbctx.Context, sessionID uuid.UUID) (*chattypes.ChatSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChatService) GetHistory(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*chattypes.ChatMessage, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChatService) RenameSession(dbc dbctx.Context, sessionID uuid.UUID, title string) error {
	return errors.New("not implemented")
}

func (f *fakeChatService) DeleteSession(dbc dbctx.Context, sessionID uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeChatService) StartTurn(dbc dbctx.Context, sessionID *uuid.UUID, content string) (*services.Turn, error) {
	return f.turn, f.err
}

func (f *fakeChatService) StartEditTurn(dbc dbctx.Context, messageID uuid.UUID, content string) (*services.Turn, error) {
	return f.turn, f.err
}

type handlerAI struct {
	deltas []string
}

func (a *handlerAI) Complete(ctx context.Context, system, user string) (string, error) {
	return "", errors.New("unexpected Complete call")
}

func (a *handlerAI) StreamComplete(ctx context.Context, system, user string, onDelta func(string)) (string, error) {
	var full strings.Builder
	for _, d := range a.deltas {
		full.WriteString(d)
		onDelta(d)
	}
	return full.String(), nil
}

type handlerSessionRepo struct {
	session *chattypes.ChatSession
}

func (r *handlerSessionRepo) Create(dbc dbctx.Context, rows []*chattypes.ChatSession) ([]*chattypes.ChatSession, error) {
	return rows, nil
}

func (r *handlerSessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*chattypes.ChatSession, error) {
	if r.session == nil || r.session.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return r.session, nil
}

func (r *handlerSessionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*chattypes.ChatSession, error) {
	return nil, nil
}

func (r *handlerSessionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*chattypes.ChatSession, error) {
	return nil, errors.New("not implemented")
}

func (r *handlerSessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (r *handlerSessionRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	return 0, nil
}

type handlerMessageRepo struct {
	rows map[uuid.UUID]*chattypes.ChatMessage
}

func (r *handlerMessageRepo) Create(dbc dbctx.Context, rows []*chattypes.ChatMessage) ([]*chattypes.ChatMessage, error) {
	return rows, nil
}

func (r *handlerMessageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*chattypes.ChatMessage, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (r *handlerMessageRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*chattypes.ChatMessage, error) {
	return nil, nil
}

func (r *handlerMessageRepo) ListUnsummarized(dbc dbctx.Context, sessionID uuid.UUID) ([]*chattypes.ChatMessage, error) {
	return nil, nil
}

func (r *handlerMessageRepo) DeleteAfterSeq(dbc dbctx.Context, sessionID uuid.UUID, seq int64) (int64, error) {
	return 0, nil
}

func (r *handlerMessageRepo) MarkSummarized(dbc dbctx.Context, ids []uuid.UUID) error {
	return nil
}

func (r *handlerMessageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if row, ok := r.rows[id]; ok {
		if v, ok := updates["content"].(string); ok {
			row.Content = v
		}
		if v, ok := updates["status"].(string); ok {
			row.Status = v
		}
	}
	return nil
}

func newChatStreamHandler(t *testing.T, svc services.ChatService, turn *services.Turn, deltas []string) *ChatHandler {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	deps := chatmod.UsecasesDeps{
		DB:   &gorm.DB{},
		Log:  log,
		AI:   &handlerAI{deltas: deltas},
		Chat: svc,
	}
	if turn != nil {
		deps.Sessions = &handlerSessionRepo{session: turn.Session}
		deps.Messages = &handlerMessageRepo{rows: map[uuid.UUID]*chattypes.ChatMessage{
			turn.AssistantMessage.ID: turn.AssistantMessage,
		}}
	} else {
		deps.Sessions = &handlerSessionRepo{}
		deps.Messages = &handlerMessageRepo{rows: map[uuid.UUID]*chattypes.ChatMessage{}}
	}
	return NewChatHandler(log, svc, chatmod.New(deps))
}

func turnFixture() *services.Turn {
	userID := uuid.New()
	session := &chattypes.ChatSession{ID: uuid.New(), UserID: userID}
	return &services.Turn{
		Session: session,
		UserMessage: &chattypes.ChatMessage{
			ID: uuid.New(), SessionID: session.ID, UserID: userID,
			Seq: 1, Role: chattypes.RoleUser, Content: "hi",
		},
		AssistantMessage: &chattypes.ChatMessage{
			ID: uuid.New(), SessionID: session.ID, UserID: userID,
			Seq: 2, Role: chattypes.RoleAssistant, Status: chattypes.MessageStatusStreaming,
		},
	}
}

func TestSendMessageStreamsFramesAndDoneMarker(t *testing.T) {
	gin.SetMode(gin.TestMode)
	turn := turnFixture()
	h := newChatStreamHandler(t, &fakeChatService{turn: turn}, turn, []string{"Hel", "lo"})

	r := gin.New()
	r.POST("/api/v1/chats/messages", h.SendMessage)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/messages", strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"content":"Hel"`) || !strings.Contains(body, `"content":"lo"`) {
		t.Fatalf("missing content frames in %q", body)
	}
	if !strings.Contains(body, fmt.Sprintf(`"session_id":"%s"`, turn.Session.ID)) {
		t.Fatalf("frames lack session id: %q", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("stream not terminated with done marker: %q", body)
	}
}

func TestSendMessageFailsWithJSONBeforeStreamOpens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newChatStreamHandler(t, &fakeChatService{err: fmt.Errorf("%w: not authenticated", apperr.ErrUnauthorized)}, nil, nil)

	r := gin.New()
	r.POST("/api/v1/chats/messages", h.SendMessage)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/messages", strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "[DONE]") {
		t.Fatalf("error response must not be an SSE stream: %q", rec.Body.String())
	}
}

func TestEditMessageRejectsMalformedID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newChatStreamHandler(t, &fakeChatService{}, nil, nil)

	r := gin.New()
	r.PUT("/api/v1/chats/messages/:id", h.EditMessage)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/chats/messages/not-a-uuid", strings.NewReader(`{"content":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}
