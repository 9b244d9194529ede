package chat

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/data/repos/testutil"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/dbctx"
)

func TestChatSessionRepoListByUserNewestFirst(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewChatSessionRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx, "sessions@example.com")

	first := testutil.SeedSession(t, ctx, tx, u.ID, "first")
	second := testutil.SeedSession(t, ctx, tx, u.ID, "second")

	got, err := repo.ListByUser(dbc, u.ID, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("expected newest first, got %q then %q", got[0].Title, got[1].Title)
	}
}

func TestChatSessionRepoUpdateFields(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewChatSessionRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx, "rename@example.com")
	s := testutil.SeedSession(t, ctx, tx, u.ID, "old title")

	if err := repo.UpdateFields(dbc, s.ID, map[string]interface{}{
		"title":   "new title",
		"summary": "alice likes go",
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := repo.GetByID(dbc, s.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "new title" {
		t.Fatalf("expected renamed title, got %q", got.Title)
	}
	if got.Summary != "alice likes go" {
		t.Fatalf("expected summary update, got %q", got.Summary)
	}
}

func TestChatSessionRepoLockByIDRequiresTx(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewChatSessionRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx, "lock@example.com")
	s := testutil.SeedSession(t, ctx, tx, u.ID, "locked")

	if _, err := repo.LockByID(dbctx.Context{Ctx: ctx}, s.ID); err == nil {
		t.Fatalf("expected error without dbc.Tx")
	}

	got, err := repo.LockByID(dbctx.Context{Ctx: ctx, Tx: tx}, s.ID)
	if err != nil {
		t.Fatalf("LockByID: %v", err)
	}
	if got.ID != s.ID {
		t.Fatalf("expected locked row %s, got %s", s.ID, got.ID)
	}
}

func TestChatSessionRepoDeleteByID(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewChatSessionRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx, "delete@example.com")
	s := testutil.SeedSession(t, ctx, tx, u.ID, "doomed")

	n, err := repo.DeleteByID(dbc, s.ID)
	if err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row deleted, got %d", n)
	}

	if _, err := repo.GetByID(dbc, s.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found after delete, got %v", err)
	}

	n, err = repo.DeleteByID(dbc, s.ID)
	if err != nil {
		t.Fatalf("DeleteByID second call: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows on repeat delete, got %d", n)
	}
}
