package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/data/repos"
	types "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/modules/chat/steps"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/observability"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/dbctx"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/groq"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/services"
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	AI           groq.Client
	SummarizerAI groq.Client
	Retriever    steps.Retriever

	Sessions repos.ChatSessionRepo
	Messages repos.ChatMessageRepo

	Chat   services.ChatService
	Notify services.ChatNotifier

	// Model is recorded on completed assistant messages.
	Model string
}

// Usecases ties turn bookkeeping to generation. Generation and edits for one
// session serialize through a per-session mutex so two concurrent turns never
// compact the same summary or stream into overlapping placeholders.
type Usecases struct {
	deps  UsecasesDeps
	locks sync.Map // session id -> *sync.Mutex
}

func New(deps UsecasesDeps) *Usecases { return &Usecases{deps: deps} }

type SendMessageInput struct {
	// SessionID nil starts a new session titled from the message.
	SessionID *uuid.UUID
	Content   string

	// OnStart fires once both turn rows are persisted, before generation.
	OnStart func(turn *services.Turn)

	// OnDelta receives every answer fragment for the caller's own stream,
	// separate from the throttled fan-out notifications.
	OnDelta func(delta string)
}

type EditMessageInput struct {
	MessageID uuid.UUID
	Content   string

	OnStart func(turn *services.Turn)
	OnDelta func(delta string)
}

// SendMessage persists the user turn, then assembles context and streams the
// answer into the assistant placeholder. The returned turn already carries
// both persisted rows; the generation error, if any, is returned after the
// partial output has been saved.
func (u *Usecases) SendMessage(ctx context.Context, in SendMessageInput) (*services.Turn, error) {
	turn, err := u.deps.Chat.StartTurn(dbctx.Context{Ctx: ctx}, in.SessionID, in.Content)
	if err != nil {
		return nil, err
	}
	if in.OnStart != nil {
		in.OnStart(turn)
	}
	return turn, u.generate(ctx, "send", turn, in.OnDelta)
}

// EditMessage rewinds the session to an edited user turn and regenerates the
// answer from the rewritten history.
func (u *Usecases) EditMessage(ctx context.Context, in EditMessageInput) (*services.Turn, error) {
	turn, err := u.deps.Chat.StartEditTurn(dbctx.Context{Ctx: ctx}, in.MessageID, in.Content)
	if err != nil {
		return nil, err
	}
	if in.OnStart != nil {
		in.OnStart(turn)
	}
	return turn, u.generate(ctx, "edit", turn, in.OnDelta)
}

func (u *Usecases) generate(ctx context.Context, kind string, turn *services.Turn, onDelta func(string)) error {
	unlock := u.lockSession(turn.Session.ID)
	defer unlock()

	userID := turn.UserMessage.UserID
	sessionID := turn.Session.ID
	asstID := turn.AssistantMessage.ID

	deps := steps.RespondDeps{
		DB:           u.deps.DB,
		Log:          u.deps.Log,
		AI:           u.deps.AI,
		SummarizerAI: u.deps.SummarizerAI,
		Retriever:    u.deps.Retriever,
		Sessions:     u.deps.Sessions,
		Messages:     u.deps.Messages,
		OnDelta: func(delta string) {
			if onDelta != nil {
				onDelta(delta)
			}
		},
		OnNotify: func(chunk string) {
			if u.deps.Notify != nil {
				u.deps.Notify.MessageDelta(userID, sessionID, asstID, chunk, nil)
			}
		},
		OnDone: func(msg *types.ChatMessage) {
			if u.deps.Notify != nil {
				u.deps.Notify.MessageDone(userID, sessionID, msg, nil)
			}
		},
		OnError: func(messageID uuid.UUID, errMsg string) {
			if u.deps.Notify != nil {
				u.deps.Notify.MessageError(userID, sessionID, messageID, errMsg, nil)
			}
		},
	}
	err := steps.Respond(ctx, deps, steps.RespondInput{
		UserID:             userID,
		SessionID:          sessionID,
		AssistantMessageID: asstID,
		Question:           turn.UserMessage.Content,
		ExcludeSeq:         turn.UserMessage.Seq,
		Model:              u.deps.Model,
	})
	if m := observability.Current(); m != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.IncChatTurn(kind, status)
	}
	return err
}

func (u *Usecases) lockSession(sessionID uuid.UUID) func() {
	v, _ := u.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
