package steps

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	types "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
)

// passageSignature normalizes whitespace and case before hashing so that
// trivially reformatted copies of the same chunk collapse together.
func passageSignature(content string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(content), " "))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

func trimToChars(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" || n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// joinRoleLines renders messages as "role: content" lines for the
// summarizer.
func joinRoleLines(msgs []*types.ChatMessage) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// joinHistoryLines renders messages as "Human:"/"AI:" lines for the answer
// prompt.
func joinHistoryLines(msgs []*types.ChatMessage) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		label := "Human"
		if m.Role == types.RoleAssistant {
			label = "AI"
		}
		lines = append(lines, label+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
