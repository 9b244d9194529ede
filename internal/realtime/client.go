package realtime

import (
	"github.com/google/uuid"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
)

// SSEClient is one open event stream. The hub owns its lifecycle: it fills
// Outbound with the events of every channel the client subscribes to, and
// closes done when the client is removed.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}

// UserChannel names the per-user fan-out channel this client belongs on.
// Chat turn notifications for a user are broadcast there.
func (c *SSEClient) UserChannel() string {
	return c.UserID.String()
}
