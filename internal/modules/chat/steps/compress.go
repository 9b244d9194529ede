package steps

import (
	"context"
	"strings"
)

// compressContext distills deduped passages into a compact context block for
// the answer prompt. It never fails the turn: with no passages it returns
// the sentinel, and when distillation errors it falls back to truncated raw
// context.
func compressContext(ctx context.Context, deps ContextPlanDeps, question string, passages []Passage) string {
	if len(passages) == 0 {
		return NoContextSentinel
	}

	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		parts = append(parts, p.Content)
	}
	rawContext := strings.Join(parts, "\n\n")
	if strings.TrimSpace(rawContext) == "" {
		return NoContextSentinel
	}

	system, user := promptCompressContext(question, rawContext)
	distilled, err := deps.AI.Complete(ctx, system, user)
	if err != nil || strings.TrimSpace(distilled) == "" {
		if err != nil {
			deps.Log.Warn("context distillation failed, using raw fallback", "error", err)
		}
		return trimToChars(rawContext, CompressFallbackChars)
	}
	return strings.TrimSpace(distilled)
}
