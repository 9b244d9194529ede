package steps

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/observability"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/dbctx"
)

func countCompaction(status string) {
	if m := observability.Current(); m != nil {
		m.IncSummaryCompaction(status)
	}
}

// reconcileHistory returns the session's long-term summary and recent
// history block, compacting the backlog first when it has grown past the
// threshold.
//
// Compaction folds the oldest CompactBatchSize backlog messages into the
// rolling summary and flips their is_summarized flag in one transaction, so
// a crash can never lose a message from both the summary and the backlog.
// When the summarizer is unavailable the backlog is simply left intact and
// the next turn retries.
func reconcileHistory(ctx context.Context, deps ContextPlanDeps, in ContextPlanInput, session *types.ChatSession) (summary string, recentHistory string) {
	summary = session.Summary

	dbc := dbctx.Context{Ctx: ctx}
	backlog, err := deps.Messages.ListUnsummarized(dbc, session.ID)
	if err != nil {
		deps.Log.Warn("backlog load failed, answering without history", "error", err, "session_id", session.ID.String())
		return summary, ""
	}

	// The in-flight user turn is already persisted; it is the question, not
	// history.
	if in.ExcludeSeq > 0 {
		filtered := backlog[:0]
		for _, m := range backlog {
			if m.Seq >= in.ExcludeSeq {
				continue
			}
			filtered = append(filtered, m)
		}
		backlog = filtered
	}

	if len(backlog) > BacklogThreshold {
		oldest := backlog[:CompactBatchSize]
		merged, err := mergeSummary(ctx, deps, summary, oldest)
		if err != nil {
			deps.Log.Warn("summary compaction failed, retrying next turn", "error", err, "session_id", session.ID.String())
			countCompaction("error")
		} else {
			ids := make([]uuid.UUID, 0, len(oldest))
			for _, m := range oldest {
				ids = append(ids, m.ID)
			}
			err := deps.DB.Transaction(func(tx *gorm.DB) error {
				txc := dbctx.Context{Ctx: ctx, Tx: tx}
				if err := deps.Sessions.UpdateFields(txc, session.ID, map[string]interface{}{
					"summary": merged,
				}); err != nil {
					return err
				}
				return deps.Messages.MarkSummarized(txc, ids)
			})
			if err != nil {
				deps.Log.Warn("summary compaction commit failed, retrying next turn", "error", err, "session_id", session.ID.String())
				countCompaction("error")
			} else {
				summary = merged
				backlog = backlog[CompactBatchSize:]
				countCompaction("ok")
			}
		}
	}

	return summary, joinHistoryLines(backlog)
}

func mergeSummary(ctx context.Context, deps ContextPlanDeps, currentSummary string, msgs []*types.ChatMessage) (string, error) {
	system, user := promptMergeSummary(currentSummary, joinRoleLines(msgs))
	merged, err := deps.AI.Complete(ctx, system, user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(merged), nil
}
