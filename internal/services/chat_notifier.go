package services

import (
	"context"

	"github.com/google/uuid"

	chattypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/realtime"
)

// ChatNotifier fans chat turn lifecycle events out to the user's realtime
// channel. Every method is fire-and-forget.
type ChatNotifier interface {
	SessionCreated(userID uuid.UUID, session *chattypes.ChatSession)
	SessionRenamed(userID uuid.UUID, sessionID uuid.UUID, title string)
	SessionDeleted(userID uuid.UUID, sessionID uuid.UUID)
	MessageCreated(userID uuid.UUID, sessionID uuid.UUID, msg *chattypes.ChatMessage, meta map[string]any)
	MessageDelta(userID uuid.UUID, sessionID uuid.UUID, messageID uuid.UUID, delta string, meta map[string]any)
	MessageDone(userID uuid.UUID, sessionID uuid.UUID, msg *chattypes.ChatMessage, meta map[string]any)
	MessageError(userID uuid.UUID, sessionID uuid.UUID, messageID uuid.UUID, errMsg string, meta map[string]any)
}

type chatNotifier struct {
	emit SSEEmitter
}

func NewChatNotifier(emit SSEEmitter) ChatNotifier {
	return &chatNotifier{emit: emit}
}

func (n *chatNotifier) SessionCreated(userID uuid.UUID, session *chattypes.ChatSession) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventChatSessionCreated,
		Data:    map[string]any{"session": session},
	})
}

func (n *chatNotifier) SessionRenamed(userID uuid.UUID, sessionID uuid.UUID, title string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventChatSessionRenamed,
		Data:    map[string]any{"session_id": sessionID, "title": title},
	})
}

func (n *chatNotifier) SessionDeleted(userID uuid.UUID, sessionID uuid.UUID) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventChatSessionDeleted,
		Data:    map[string]any{"session_id": sessionID},
	})
}

func (n *chatNotifier) MessageCreated(userID uuid.UUID, sessionID uuid.UUID, msg *chattypes.ChatMessage, meta map[string]any) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	data := map[string]any{"session_id": sessionID, "message": msg}
	for k, v := range meta {
		data[k] = v
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventChatMessageCreated,
		Data:    data,
	})
}

func (n *chatNotifier) MessageDelta(userID uuid.UUID, sessionID uuid.UUID, messageID uuid.UUID, delta string, meta map[string]any) {
	if n == nil || n.emit == nil || userID == uuid.Nil || delta == "" {
		return
	}
	data := map[string]any{
		"session_id": sessionID,
		"message_id": messageID,
		"delta":      delta,
	}
	for k, v := range meta {
		data[k] = v
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventChatMessageDelta,
		Data:    data,
	})
}

func (n *chatNotifier) MessageDone(userID uuid.UUID, sessionID uuid.UUID, msg *chattypes.ChatMessage, meta map[string]any) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	data := map[string]any{"session_id": sessionID, "message": msg}
	for k, v := range meta {
		data[k] = v
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventChatMessageDone,
		Data:    data,
	})
}

func (n *chatNotifier) MessageError(userID uuid.UUID, sessionID uuid.UUID, messageID uuid.UUID, errMsg string, meta map[string]any) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	data := map[string]any{
		"session_id": sessionID,
		"message_id": messageID,
		"error":      errMsg,
	}
	for k, v := range meta {
		data[k] = v
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventChatMessageError,
		Data:    data,
	})
}
