package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/data/repos"
	chattypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/apperr"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/dbctx"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/requestdata"
)

const sessionTitleChars = 30

// Turn is a started exchange: the persisted user message plus the assistant
// placeholder that generation streams into.
type Turn struct {
	Session          *chattypes.ChatSession
	UserMessage      *chattypes.ChatMessage
	AssistantMessage *chattypes.ChatMessage
}

type ChatService interface {
	CreateSession(dbc dbctx.Context, title string) (*chattypes.ChatSession, error)
	ListSessions(dbc dbctx.Context, limit int) ([]*chattypes.ChatSession, error)
	GetSession(dbc dbctx.Context, sessionID uuid.UUID) (*chattypes.ChatSession, error)
	GetHistory(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*chattypes.ChatMessage, error)
	RenameSession(dbc dbctx.Context, sessionID uuid.UUID, title string) error
	DeleteSession(dbc dbctx.Context, sessionID uuid.UUID) error

	// StartTurn persists the user message and an empty streaming assistant
	// placeholder under the session lock. A nil sessionID bootstraps a new
	// session titled from the message.
	StartTurn(dbc dbctx.Context, sessionID *uuid.UUID, content string) (*Turn, error)

	// StartEditTurn rewinds the conversation to an earlier user message:
	// everything strictly newer is deleted, the message content is replaced,
	// the rolling summary is cleared, and a fresh assistant placeholder is
	// created for regeneration.
	StartEditTurn(dbc dbctx.Context, messageID uuid.UUID, content string) (*Turn, error)
}

type chatService struct {
	db  *gorm.DB
	log *logger.Logger

	sessions repos.ChatSessionRepo
	messages repos.ChatMessageRepo
	notify   ChatNotifier
}

func NewChatService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessionRepo repos.ChatSessionRepo,
	messageRepo repos.ChatMessageRepo,
	notify ChatNotifier,
) ChatService {
	return &chatService{
		db:       db,
		log:      baseLog.With("service", "ChatService"),
		sessions: sessionRepo,
		messages: messageRepo,
		notify:   notify,
	}
}

func (s *chatService) CreateSession(dbc dbctx.Context, title string) (*chattypes.ChatSession, error) {
	rd := requestdata.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: not authenticated", apperr.ErrUnauthorized)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = "New Chat"
	}

	now := time.Now().UTC()
	session := &chattypes.ChatSession{
		ID:            uuid.New(),
		UserID:        rd.UserID,
		Title:         truncateTitle(title),
		Metadata:      datatypes.JSON([]byte(`{}`)),
		NextSeq:       0,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := s.sessions.Create(dbc, []*chattypes.ChatSession{session})
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		s.notify.SessionCreated(rd.UserID, created[0])
	}
	return created[0], nil
}

func (s *chatService) ListSessions(dbc dbctx.Context, limit int) ([]*chattypes.ChatSession, error) {
	rd := requestdata.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: not authenticated", apperr.ErrUnauthorized)
	}
	return s.sessions.ListByUser(dbc, rd.UserID, limit)
}

func (s *chatService) GetSession(dbc dbctx.Context, sessionID uuid.UUID) (*chattypes.ChatSession, error) {
	rd := requestdata.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: not authenticated", apperr.ErrUnauthorized)
	}
	return s.ownedSession(dbc, rd.UserID, sessionID)
}

func (s *chatService) GetHistory(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*chattypes.ChatMessage, error) {
	rd := requestdata.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: not authenticated", apperr.ErrUnauthorized)
	}
	if _, err := s.ownedSession(dbc, rd.UserID, sessionID); err != nil {
		return nil, err
	}
	return s.messages.ListBySession(dbc, sessionID, limit)
}

func (s *chatService) RenameSession(dbc dbctx.Context, sessionID uuid.UUID, title string) error {
	rd := requestdata.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("%w: not authenticated", apperr.ErrUnauthorized)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: missing title", apperr.ErrInvalidArgument)
	}
	if _, err := s.ownedSession(dbc, rd.UserID, sessionID); err != nil {
		return err
	}
	if err := s.sessions.UpdateFields(dbc, sessionID, map[string]interface{}{
		"title": truncateTitle(title),
	}); err != nil {
		return err
	}
	if s.notify != nil {
		s.notify.SessionRenamed(rd.UserID, sessionID, truncateTitle(title))
	}
	return nil
}

func (s *chatService) DeleteSession(dbc dbctx.Context, sessionID uuid.UUID) error {
	rd := requestdata.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("%w: not authenticated", apperr.ErrUnauthorized)
	}
	if _, err := s.ownedSession(dbc, rd.UserID, sessionID); err != nil {
		return err
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	err := transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if _, err := s.messages.DeleteAfterSeq(txc, sessionID, 0); err != nil {
			return err
		}
		n, err := s.sessions.DeleteByID(txc, sessionID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: session", apperr.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.notify != nil {
		s.notify.SessionDeleted(rd.UserID, sessionID)
	}
	return nil
}

func (s *chatService) StartTurn(dbc dbctx.Context, sessionID *uuid.UUID, content string) (*Turn, error) {
	rd := requestdata.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: not authenticated", apperr.ErrUnauthorized)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: missing content", apperr.ErrInvalidArgument)
	}
	if len(content) > 20000 {
		return nil, fmt.Errorf("%w: message too large", apperr.ErrInvalidArgument)
	}

	var sid uuid.UUID
	if sessionID == nil || *sessionID == uuid.Nil {
		session, err := s.CreateSession(dbc, content)
		if err != nil {
			return nil, err
		}
		sid = session.ID
	} else {
		sid = *sessionID
	}

	turn := &Turn{}
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}

		session, err := s.sessions.LockByID(txc, sid)
		if err != nil {
			return fmt.Errorf("%w: session", apperr.ErrNotFound)
		}
		if session.UserID != rd.UserID {
			return fmt.Errorf("%w: session", apperr.ErrNotFound)
		}

		now := time.Now().UTC()
		seqUser := session.NextSeq + 1
		seqAsst := seqUser + 1

		userMsg := &chattypes.ChatMessage{
			ID:        uuid.New(),
			SessionID: sid,
			UserID:    rd.UserID,
			Seq:       seqUser,
			Role:      chattypes.RoleUser,
			Status:    chattypes.MessageStatusSent,
			Content:   content,
			Metadata:  datatypes.JSON([]byte(`{}`)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		asstMsg := &chattypes.ChatMessage{
			ID:        uuid.New(),
			SessionID: sid,
			UserID:    rd.UserID,
			Seq:       seqAsst,
			Role:      chattypes.RoleAssistant,
			Status:    chattypes.MessageStatusStreaming,
			Content:   "",
			Metadata:  datatypes.JSON([]byte(`{}`)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.messages.Create(txc, []*chattypes.ChatMessage{userMsg, asstMsg}); err != nil {
			return err
		}

		if err := s.sessions.UpdateFields(txc, sid, map[string]interface{}{
			"next_seq":        seqAsst,
			"last_message_at": now,
		}); err != nil {
			return err
		}

		session.NextSeq = seqAsst
		session.LastMessageAt = now
		turn.Session = session
		turn.UserMessage = userMsg
		turn.AssistantMessage = asstMsg
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.MessageCreated(rd.UserID, sid, turn.UserMessage, nil)
		s.notify.MessageCreated(rd.UserID, sid, turn.AssistantMessage, nil)
	}
	return turn, nil
}

func (s *chatService) StartEditTurn(dbc dbctx.Context, messageID uuid.UUID, content string) (*Turn, error) {
	rd := requestdata.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: not authenticated", apperr.ErrUnauthorized)
	}
	if messageID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing message id", apperr.ErrInvalidArgument)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: missing content", apperr.ErrInvalidArgument)
	}

	turn := &Turn{}
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}

		msg, err := s.messages.GetByID(txc, messageID)
		if err != nil {
			return fmt.Errorf("%w: message", apperr.ErrNotFound)
		}
		if msg.UserID != rd.UserID {
			return fmt.Errorf("%w: message", apperr.ErrNotFound)
		}
		if msg.Role != chattypes.RoleUser {
			return fmt.Errorf("%w: only user messages can be edited", apperr.ErrInvalidArgument)
		}

		session, err := s.sessions.LockByID(txc, msg.SessionID)
		if err != nil {
			return fmt.Errorf("%w: session", apperr.ErrNotFound)
		}
		if session.UserID != rd.UserID {
			return fmt.Errorf("%w: session", apperr.ErrNotFound)
		}

		now := time.Now().UTC()

		// Everything after the edited turn is no longer true history.
		if _, err := s.messages.DeleteAfterSeq(txc, session.ID, msg.Seq); err != nil {
			return err
		}

		if err := s.messages.UpdateFields(txc, msg.ID, map[string]interface{}{
			"content":       content,
			"status":        chattypes.MessageStatusSent,
			"is_summarized": false,
		}); err != nil {
			return err
		}

		seqAsst := msg.Seq + 1
		asstMsg := &chattypes.ChatMessage{
			ID:        uuid.New(),
			SessionID: session.ID,
			UserID:    rd.UserID,
			Seq:       seqAsst,
			Role:      chattypes.RoleAssistant,
			Status:    chattypes.MessageStatusStreaming,
			Content:   "",
			Metadata:  datatypes.JSON([]byte(`{}`)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.messages.Create(txc, []*chattypes.ChatMessage{asstMsg}); err != nil {
			return err
		}

		// The summary may describe deleted turns, so it is rebuilt from
		// scratch on later compactions.
		if err := s.sessions.UpdateFields(txc, session.ID, map[string]interface{}{
			"summary":         "",
			"next_seq":        seqAsst,
			"last_message_at": now,
		}); err != nil {
			return err
		}

		msg.Content = content
		msg.Status = chattypes.MessageStatusSent
		msg.IsSummarized = false
		session.Summary = ""
		session.NextSeq = seqAsst
		session.LastMessageAt = now
		turn.Session = session
		turn.UserMessage = msg
		turn.AssistantMessage = asstMsg
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.MessageCreated(rd.UserID, turn.Session.ID, turn.UserMessage, map[string]any{"edited": true})
		s.notify.MessageCreated(rd.UserID, turn.Session.ID, turn.AssistantMessage, nil)
	}
	return turn, nil
}

func (s *chatService) ownedSession(dbc dbctx.Context, userID, sessionID uuid.UUID) (*chattypes.ChatSession, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing session id", apperr.ErrInvalidArgument)
	}
	session, err := s.sessions.GetByID(dbc, sessionID)
	if err != nil || session.UserID != userID {
		return nil, fmt.Errorf("%w: session", apperr.ErrNotFound)
	}
	return session, nil
}

func truncateTitle(s string) string {
	r := []rune(s)
	if len(r) <= sessionTitleChars {
		return s
	}
	return string(r[:sessionTitleChars])
}
