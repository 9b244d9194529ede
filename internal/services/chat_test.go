package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	chatrepo "github.com/Hammadwakeel/R-S-RAG-backend/internal/data/repos/chat"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/data/repos/testutil"
	chattypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
	usertypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/user"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/apperr"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/dbctx"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/requestdata"
)

// StartTurn and StartEditTurn open their own transactions, so these tests run
// against the database directly and clean up their rows afterwards.
func newChatServiceTest(t *testing.T) (ChatService, *gorm.DB, uuid.UUID, context.Context) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	u := testutil.SeedUser(t, ctx, db, uuid.New().String()+"@example.com")
	t.Cleanup(func() {
		db.WithContext(ctx).Unscoped().Where("user_id = ?", u.ID).Delete(&chattypes.ChatMessage{})
		db.WithContext(ctx).Unscoped().Where("user_id = ?", u.ID).Delete(&chattypes.ChatSession{})
		db.WithContext(ctx).Unscoped().Where("id = ?", u.ID).Delete(&usertypes.User{})
	})

	svc := NewChatService(
		db,
		log,
		chatrepo.NewChatSessionRepo(db, log),
		chatrepo.NewChatMessageRepo(db, log),
		nil,
	)
	rctx := requestdata.WithRequestData(ctx, &requestdata.RequestData{UserID: u.ID})
	return svc, db, u.ID, rctx
}

func TestChatServiceStartTurnAssignsSequentialSeqs(t *testing.T) {
	svc, _, _, ctx := newChatServiceTest(t)
	dbc := dbctx.Context{Ctx: ctx}

	longQuestion := strings.Repeat("neuroplasticity ", 4)
	turn, err := svc.StartTurn(dbc, nil, longQuestion)
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if turn.Session == nil || turn.Session.ID == uuid.Nil {
		t.Fatal("expected a bootstrapped session")
	}
	if got := len([]rune(turn.Session.Title)); got > 30 {
		t.Fatalf("title has %d chars, want at most 30", got)
	}
	if turn.UserMessage.Seq != 1 || turn.AssistantMessage.Seq != 2 {
		t.Fatalf("seqs = %d/%d, want 1/2", turn.UserMessage.Seq, turn.AssistantMessage.Seq)
	}
	if turn.UserMessage.Status != chattypes.MessageStatusSent {
		t.Fatalf("user status %q, want %q", turn.UserMessage.Status, chattypes.MessageStatusSent)
	}
	if turn.AssistantMessage.Status != chattypes.MessageStatusStreaming {
		t.Fatalf("assistant status %q, want %q", turn.AssistantMessage.Status, chattypes.MessageStatusStreaming)
	}

	sid := turn.Session.ID
	second, err := svc.StartTurn(dbc, &sid, "and what about memory?")
	if err != nil {
		t.Fatalf("StartTurn second: %v", err)
	}
	if second.UserMessage.Seq != 3 || second.AssistantMessage.Seq != 4 {
		t.Fatalf("second turn seqs = %d/%d, want 3/4", second.UserMessage.Seq, second.AssistantMessage.Seq)
	}
	if second.Session.NextSeq != 4 {
		t.Fatalf("session next_seq = %d, want 4", second.Session.NextSeq)
	}
}

func TestChatServiceStartEditTurnRewindsConversation(t *testing.T) {
	svc, db, _, ctx := newChatServiceTest(t)
	dbc := dbctx.Context{Ctx: ctx}

	first, err := svc.StartTurn(dbc, nil, "original question")
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	sid := first.Session.ID
	if _, err := svc.StartTurn(dbc, &sid, "follow-up question"); err != nil {
		t.Fatalf("StartTurn follow-up: %v", err)
	}
	if err := db.WithContext(ctx).Model(&chattypes.ChatSession{}).
		Where("id = ?", sid).
		Update("summary", "stale summary of deleted turns").Error; err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	turn, err := svc.StartEditTurn(dbc, first.UserMessage.ID, "rewritten question")
	if err != nil {
		t.Fatalf("StartEditTurn: %v", err)
	}
	if turn.UserMessage.Content != "rewritten question" {
		t.Fatalf("edited content %q", turn.UserMessage.Content)
	}
	if turn.UserMessage.IsSummarized {
		t.Fatal("edited message should drop its summarized flag")
	}
	if turn.AssistantMessage.Seq != first.UserMessage.Seq+1 {
		t.Fatalf("placeholder seq = %d, want %d", turn.AssistantMessage.Seq, first.UserMessage.Seq+1)
	}

	history, err := svc.GetHistory(dbc, sid, 0)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d rows after rewind, want 2", len(history))
	}
	if history[len(history)-1].Seq != turn.AssistantMessage.Seq {
		t.Fatalf("history ends at seq %d, want %d", history[len(history)-1].Seq, turn.AssistantMessage.Seq)
	}

	session, err := svc.GetSession(dbc, sid)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Summary != "" {
		t.Fatalf("summary %q, want it cleared", session.Summary)
	}
	if session.NextSeq != turn.AssistantMessage.Seq {
		t.Fatalf("next_seq = %d, want %d", session.NextSeq, turn.AssistantMessage.Seq)
	}
}

func TestChatServiceEditRejectsAssistantMessages(t *testing.T) {
	svc, _, _, ctx := newChatServiceTest(t)
	dbc := dbctx.Context{Ctx: ctx}

	turn, err := svc.StartTurn(dbc, nil, "question")
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	_, err = svc.StartEditTurn(dbc, turn.AssistantMessage.ID, "rewrite")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("err = %v, want %v", err, apperr.ErrInvalidArgument)
	}
}

func TestChatServiceOwnershipHidesForeignSessions(t *testing.T) {
	svc, db, _, ctx := newChatServiceTest(t)
	dbc := dbctx.Context{Ctx: ctx}

	turn, err := svc.StartTurn(dbc, nil, "mine")
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}

	other := testutil.SeedUser(t, context.Background(), db, uuid.New().String()+"@example.com")
	t.Cleanup(func() {
		db.Unscoped().Where("id = ?", other.ID).Delete(&usertypes.User{})
	})
	otherDbc := dbctx.Context{Ctx: requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: other.ID})}

	if _, err := svc.GetHistory(otherDbc, turn.Session.ID, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("GetHistory err = %v, want %v", err, apperr.ErrNotFound)
	}
	if err := svc.RenameSession(otherDbc, turn.Session.ID, "hijack"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("RenameSession err = %v, want %v", err, apperr.ErrNotFound)
	}
	if _, err := svc.StartEditTurn(otherDbc, turn.UserMessage.ID, "hijack"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("StartEditTurn err = %v, want %v", err, apperr.ErrNotFound)
	}
}

func TestChatServiceDeleteSessionRemovesHistory(t *testing.T) {
	svc, _, _, ctx := newChatServiceTest(t)
	dbc := dbctx.Context{Ctx: ctx}

	turn, err := svc.StartTurn(dbc, nil, "to be deleted")
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if err := svc.DeleteSession(dbc, turn.Session.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := svc.GetSession(dbc, turn.Session.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("GetSession err = %v, want %v", err, apperr.ErrNotFound)
	}
	if err := svc.DeleteSession(dbc, turn.Session.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second delete err = %v, want %v", err, apperr.ErrNotFound)
	}
}

func TestChatServiceRequiresAuthentication(t *testing.T) {
	svc, _, _, _ := newChatServiceTest(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	if _, err := svc.StartTurn(dbc, nil, "hello"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("err = %v, want %v", err, apperr.ErrUnauthorized)
	}
}
