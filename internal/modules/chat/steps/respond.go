package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/data/repos"
	types "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/dbctx"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/groq"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
)

const (
	notifyFlushInterval = 150 * time.Millisecond
	notifyFlushBytes    = 512
	dbFlushInterval     = 750 * time.Millisecond
	dbFlushBytes        = 256
)

type RespondDeps struct {
	DB *gorm.DB

	Log *logger.Logger
	AI  groq.Client

	// SummarizerAI, when set, handles compaction and context distillation;
	// AI handles both otherwise.
	SummarizerAI groq.Client

	Retriever Retriever

	Sessions repos.ChatSessionRepo
	Messages repos.ChatMessageRepo

	// OnDelta receives every fragment as it arrives, for the caller's live
	// stream. OnNotify receives the same output coalesced on a throttle,
	// for hub/bus fan-out. OnDone and OnError fire once, after the terminal
	// state is already persisted.
	OnDelta  func(delta string)
	OnNotify func(chunk string)
	OnDone   func(msg *types.ChatMessage)
	OnError  func(messageID uuid.UUID, errMsg string)
}

type RespondInput struct {
	UserID             uuid.UUID
	SessionID          uuid.UUID
	AssistantMessageID uuid.UUID
	Question           string

	// ExcludeSeq is the seq of the user turn being answered.
	ExcludeSeq int64

	Model string
}

// Respond assembles the context bundle for one turn and streams the model
// answer into the assistant placeholder row. Accumulated output is flushed to
// the database on a throttle, so whatever was generated before a cancel or a
// provider failure survives. Persistence runs on a context detached from the
// request, which may already be gone by the time the last flush happens.
func Respond(ctx context.Context, deps RespondDeps, in RespondInput) error {
	if deps.DB == nil || deps.Log == nil || deps.AI == nil || deps.Sessions == nil || deps.Messages == nil {
		return fmt.Errorf("chat respond: missing deps")
	}
	if in.UserID == uuid.Nil || in.SessionID == uuid.Nil || in.AssistantMessageID == uuid.Nil {
		return fmt.Errorf("chat respond: missing ids")
	}

	pdbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}

	session, err := deps.Sessions.GetByID(pdbc, in.SessionID)
	if err != nil {
		return fmt.Errorf("chat respond: load session: %w", err)
	}

	planAI := deps.AI
	if deps.SummarizerAI != nil {
		planAI = deps.SummarizerAI
	}
	bundle, err := BuildContextPlan(ctx, ContextPlanDeps{
		DB:        deps.DB,
		Log:       deps.Log,
		AI:        planAI,
		Retriever: deps.Retriever,
		Sessions:  deps.Sessions,
		Messages:  deps.Messages,
	}, ContextPlanInput{
		UserID:     in.UserID,
		SessionID:  in.SessionID,
		Question:   in.Question,
		ExcludeSeq: in.ExcludeSeq,
	}, session)
	if err != nil {
		return failTurn(deps, pdbc, in, "", err)
	}

	system, user := AnswerPrompt(bundle)

	var full strings.Builder
	var notifyPending strings.Builder
	persistedLen := 0
	lastNotify := time.Now()
	lastDB := time.Now()

	flushNotify := func() {
		if notifyPending.Len() == 0 {
			return
		}
		if deps.OnNotify != nil {
			deps.OnNotify(notifyPending.String())
		}
		notifyPending.Reset()
		lastNotify = time.Now()
	}
	flushDB := func() {
		if full.Len() == persistedLen {
			return
		}
		if err := deps.Messages.UpdateFields(pdbc, in.AssistantMessageID, map[string]interface{}{
			"content": full.String(),
		}); err != nil {
			deps.Log.Warn("streaming content flush failed",
				"message_id", in.AssistantMessageID,
				"error", err)
			return
		}
		persistedLen = full.Len()
		lastDB = time.Now()
	}

	_, streamErr := deps.AI.StreamComplete(ctx, system, user, func(delta string) {
		full.WriteString(delta)
		// The caller's stream gets every fragment as soon as it exists;
		// only the fan-out path is throttled.
		if deps.OnDelta != nil {
			deps.OnDelta(delta)
		}
		notifyPending.WriteString(delta)
		if notifyPending.Len() >= notifyFlushBytes || time.Since(lastNotify) >= notifyFlushInterval {
			flushNotify()
		}
		if full.Len()-persistedLen >= dbFlushBytes || time.Since(lastDB) >= dbFlushInterval {
			flushDB()
		}
	})

	flushNotify()

	if streamErr != nil {
		return failTurn(deps, pdbc, in, full.String(), streamErr)
	}

	fields := map[string]interface{}{
		"content": full.String(),
		"status":  types.MessageStatusDone,
	}
	if in.Model != "" {
		fields["model"] = in.Model
	}
	if err := deps.Messages.UpdateFields(pdbc, in.AssistantMessageID, fields); err != nil {
		return fmt.Errorf("chat respond: persist answer: %w", err)
	}

	if deps.OnDone != nil {
		msg, err := deps.Messages.GetByID(pdbc, in.AssistantMessageID)
		if err != nil {
			deps.Log.Warn("reload of completed message failed",
				"message_id", in.AssistantMessageID,
				"error", err)
		} else {
			deps.OnDone(msg)
		}
	}
	return nil
}

// failTurn records whatever content was produced before cause, marks the row
// errored and reports the failure downstream.
func failTurn(deps RespondDeps, pdbc dbctx.Context, in RespondInput, partial string, cause error) error {
	fields := map[string]interface{}{
		"content": partial,
		"status":  types.MessageStatusError,
	}
	if err := deps.Messages.UpdateFields(pdbc, in.AssistantMessageID, fields); err != nil {
		deps.Log.Error("failed to persist errored message",
			"message_id", in.AssistantMessageID,
			"error", err)
	}
	if deps.OnError != nil {
		deps.OnError(in.AssistantMessageID, cause.Error())
	}
	return cause
}
