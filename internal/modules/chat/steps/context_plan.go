package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/data/repos"
	types "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/groq"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
)

type ContextPlanDeps struct {
	DB *gorm.DB

	Log *logger.Logger
	AI  groq.Client

	Retriever Retriever

	Sessions repos.ChatSessionRepo
	Messages repos.ChatMessageRepo
}

type ContextPlanInput struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	Question  string

	// ExcludeSeq is the seq of the already-persisted user turn being
	// answered; it and anything newer stay out of recent history.
	ExcludeSeq int64
}

// BuildContextPlan runs retrieve, dedup, compress and history reconciliation
// for one turn. It returns an error only for broken wiring or a missing
// session; content-level failures inside any stage degrade that slot of the
// bundle instead of failing the turn.
func BuildContextPlan(ctx context.Context, deps ContextPlanDeps, in ContextPlanInput, session *types.ChatSession) (ContextBundle, error) {
	out := ContextBundle{Question: in.Question}
	if deps.DB == nil || deps.Log == nil || deps.AI == nil || deps.Sessions == nil || deps.Messages == nil {
		return out, fmt.Errorf("chat context plan: missing deps")
	}
	if in.UserID == uuid.Nil || in.SessionID == uuid.Nil {
		return out, fmt.Errorf("chat context plan: missing ids")
	}
	if session == nil || session.ID != in.SessionID || session.UserID != in.UserID {
		return out, fmt.Errorf("session not found")
	}

	passages := retrievePassages(ctx, deps, in.Question)
	passages = dedupPassages(passages)
	if len(passages) > TopKPassages {
		passages = passages[:TopKPassages]
	}
	out.Context = compressContext(ctx, deps, in.Question, passages)
	out.Summary, out.RecentHistory = reconcileHistory(ctx, deps, in, session)

	return out, nil
}

// AnswerPrompt renders the final generation prompt from an assembled bundle.
func AnswerPrompt(bundle ContextBundle) (system string, user string) {
	return promptAnswer(bundle.Summary, bundle.RecentHistory, bundle.Context, bundle.Question)
}

func retrievePassages(ctx context.Context, deps ContextPlanDeps, question string) []Passage {
	if deps.Retriever == nil {
		return nil
	}
	passages, err := deps.Retriever.Retrieve(ctx, question, RetrievalFetchLimit)
	if err != nil {
		deps.Log.Warn("retrieval failed, answering without documents", "error", err)
		return nil
	}
	return passages
}
