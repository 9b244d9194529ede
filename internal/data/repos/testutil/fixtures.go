package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	chattypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
	usertypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/user"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *usertypes.User {
	tb.Helper()
	u := &usertypes.User{
		ID:       uuid.New(),
		Email:    email,
		Password: "pw",
		Name:     "Test User",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, title string) *chattypes.ChatSession {
	tb.Helper()
	s := &chattypes.ChatSession{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID, userID uuid.UUID, seq int64, role, content string) *chattypes.ChatMessage {
	tb.Helper()
	m := &chattypes.ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Seq:       seq,
		Role:      role,
		Status:    chattypes.MessageStatusDone,
		Content:   content,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}
