package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEClientUserChannelReachesSubscriber(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	userID := uuid.New()

	client := hub.NewSSEClient(userID)
	if got := client.UserChannel(); got != userID.String() {
		t.Fatalf("user channel: want=%s got=%s", userID.String(), got)
	}
	hub.AddChannel(client, client.UserChannel())

	hub.Broadcast(SSEMessage{Channel: userID.String(), Event: SSEEventChatMessageDelta, Data: map[string]any{"seq": 1}})
	got := recvMessage(t, client.Outbound, time.Second)
	if got.Event != SSEEventChatMessageDelta {
		t.Fatalf("event: want=%s got=%s", SSEEventChatMessageDelta, got.Event)
	}
	hub.CloseClient(client)
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventChatMessageCreated, Data: map[string]any{"seq": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventChatMessageDelta, Data: map[string]any{"seq": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != SSEEventChatMessageCreated {
		t.Fatalf("first event: want=%s got=%s", SSEEventChatMessageCreated, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventChatMessageDelta {
		t.Fatalf("second event: want=%s got=%s", SSEEventChatMessageDelta, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	reconnect := SSEMessage{Channel: channel, Event: SSEEventChatMessageDone, Data: map[string]any{"seq": 3}}
	hub.Broadcast(reconnect)
	gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
	if gotReconnect.Event != SSEEventChatMessageDone {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventChatMessageDone, gotReconnect.Event)
	}
}

func TestSSEHubBroadcastIsScopedToChannel(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	mine := uuid.New().String()
	other := uuid.New().String()

	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, mine)

	hub.Broadcast(SSEMessage{Channel: other, Event: SSEEventChatMessageDelta, Data: map[string]any{"delta": "x"}})

	select {
	case msg := <-client.Outbound:
		t.Fatalf("unexpected cross-channel delivery: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
