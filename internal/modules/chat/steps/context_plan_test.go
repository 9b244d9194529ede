package steps

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/dbctx"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
)

type fakeAI struct {
	completeFn func(system, user string) (string, error)
}

func (f *fakeAI) Complete(ctx context.Context, system, user string) (string, error) {
	return f.completeFn(system, user)
}

func (f *fakeAI) StreamComplete(ctx context.Context, system, user string, onDelta func(string)) (string, error) {
	out, err := f.completeFn(system, user)
	if err != nil {
		return "", err
	}
	if onDelta != nil {
		onDelta(out)
	}
	return out, nil
}

type fakeRetriever struct {
	passages []Passage
	err      error
	gotTopK  int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Passage, error) {
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.passages) {
		return f.passages[:topK], nil
	}
	return f.passages, nil
}

type fakeMessageRepo struct {
	backlog []*types.ChatMessage
	marked  []uuid.UUID
}

func (f *fakeMessageRepo) Create(dbc dbctx.Context, rows []*types.ChatMessage) ([]*types.ChatMessage, error) {
	return rows, nil
}

func (f *fakeMessageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatMessage, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMessageRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	return f.backlog, nil
}

func (f *fakeMessageRepo) ListUnsummarized(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.ChatMessage, error) {
	return f.backlog, nil
}

func (f *fakeMessageRepo) DeleteAfterSeq(dbc dbctx.Context, sessionID uuid.UUID, seq int64) (int64, error) {
	return 0, nil
}

func (f *fakeMessageRepo) MarkSummarized(dbc dbctx.Context, ids []uuid.UUID) error {
	f.marked = append(f.marked, ids...)
	return nil
}

func (f *fakeMessageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

type fakeSessionRepo struct {
	updates map[string]interface{}
}

func (f *fakeSessionRepo) Create(dbc dbctx.Context, rows []*types.ChatSession) ([]*types.ChatSession, error) {
	return rows, nil
}

func (f *fakeSessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSessionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ChatSession, error) {
	return nil, nil
}

func (f *fakeSessionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.updates = updates
	return nil
}

func (f *fakeSessionRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	return 0, nil
}

func newStepsLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func backlogOf(n int) []*types.ChatMessage {
	msgs := make([]*types.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		msgs = append(msgs, &types.ChatMessage{
			ID:      uuid.New(),
			Seq:     int64(i + 1),
			Role:    role,
			Content: "turn",
		})
	}
	return msgs
}

func TestDedupPassagesKeepsFirstOccurrence(t *testing.T) {
	passages := []Passage{
		{Content: "Go has goroutines.", Score: 0.9},
		{Content: "go  has GOROUTINES. ", Score: 0.8},
		{Content: "Channels connect them.", Score: 0.7},
	}

	got := dedupPassages(passages)
	if len(got) != 2 {
		t.Fatalf("expected 2 unique passages, got %d", len(got))
	}
	if got[0].Score != 0.9 {
		t.Fatalf("expected first occurrence kept, got score %v", got[0].Score)
	}

	again := dedupPassages(got)
	if len(again) != len(got) {
		t.Fatalf("dedup must be idempotent: %d then %d", len(got), len(again))
	}
}

func TestCompressContextSentinelWhenNoPassages(t *testing.T) {
	deps := ContextPlanDeps{
		Log: newStepsLogger(t),
		AI: &fakeAI{completeFn: func(system, user string) (string, error) {
			t.Fatalf("distillation must not run without passages")
			return "", nil
		}},
	}

	got := compressContext(context.Background(), deps, "what is go?", nil)
	if got != NoContextSentinel {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestCompressContextFallbackOnModelError(t *testing.T) {
	long := strings.Repeat("x", 3000)
	deps := ContextPlanDeps{
		Log: newStepsLogger(t),
		AI: &fakeAI{completeFn: func(system, user string) (string, error) {
			return "", errors.New("model unavailable")
		}},
	}

	got := compressContext(context.Background(), deps, "q", []Passage{{Content: long}})
	if len(got) != CompressFallbackChars {
		t.Fatalf("expected %d-char fallback, got %d chars", CompressFallbackChars, len(got))
	}
	if !strings.HasPrefix(long, got) {
		t.Fatalf("fallback must be a prefix of the raw context")
	}
}

func TestCompressContextUsesDistilledFacts(t *testing.T) {
	deps := ContextPlanDeps{
		Log: newStepsLogger(t),
		AI: &fakeAI{completeFn: func(system, user string) (string, error) {
			if system != "Extract relevant facts for the question." {
				t.Fatalf("unexpected system prompt: %q", system)
			}
			if !strings.Contains(user, "Question: what is go?") {
				t.Fatalf("question missing from user prompt: %q", user)
			}
			return "  Go is a language.  ", nil
		}},
	}

	got := compressContext(context.Background(), deps, "what is go?", []Passage{{Content: "Go is a language from Google."}})
	if got != "Go is a language." {
		t.Fatalf("expected trimmed distilled facts, got %q", got)
	}
}

func TestReconcileHistoryBelowThresholdKeepsBacklog(t *testing.T) {
	msgs := &fakeMessageRepo{backlog: backlogOf(BacklogThreshold)}
	deps := ContextPlanDeps{
		Log: newStepsLogger(t),
		AI: &fakeAI{completeFn: func(system, user string) (string, error) {
			t.Fatalf("summarizer must not run at or below threshold")
			return "", nil
		}},
		Messages: msgs,
	}
	session := &types.ChatSession{ID: uuid.New(), Summary: "existing summary"}

	summary, history := reconcileHistory(context.Background(), deps, ContextPlanInput{}, session)
	if summary != "existing summary" {
		t.Fatalf("summary must be unchanged, got %q", summary)
	}
	if got := strings.Count(history, "\n") + 1; got != BacklogThreshold {
		t.Fatalf("expected %d history lines, got %d", BacklogThreshold, got)
	}
	if len(msgs.marked) != 0 {
		t.Fatalf("nothing should be marked summarized, got %d", len(msgs.marked))
	}
}

func TestReconcileHistoryExcludesInFlightTurn(t *testing.T) {
	backlog := backlogOf(4)
	msgs := &fakeMessageRepo{backlog: backlog}
	deps := ContextPlanDeps{
		Log:      newStepsLogger(t),
		AI:       &fakeAI{completeFn: func(system, user string) (string, error) { return "", nil }},
		Messages: msgs,
	}
	session := &types.ChatSession{ID: uuid.New()}

	_, history := reconcileHistory(context.Background(), deps, ContextPlanInput{ExcludeSeq: 4}, session)
	if strings.Count(history, "\n")+1 != 3 {
		t.Fatalf("expected 3 history lines, got %q", history)
	}
}

func TestReconcileHistoryHistoryLabels(t *testing.T) {
	msgs := &fakeMessageRepo{backlog: []*types.ChatMessage{
		{ID: uuid.New(), Seq: 1, Role: types.RoleUser, Content: "hi"},
		{ID: uuid.New(), Seq: 2, Role: types.RoleAssistant, Content: "hello"},
	}}
	deps := ContextPlanDeps{
		Log:      newStepsLogger(t),
		AI:       &fakeAI{completeFn: func(system, user string) (string, error) { return "", nil }},
		Messages: msgs,
	}
	session := &types.ChatSession{ID: uuid.New()}

	_, history := reconcileHistory(context.Background(), deps, ContextPlanInput{}, session)
	if history != "Human: hi\nAI: hello" {
		t.Fatalf("unexpected history rendering: %q", history)
	}
}

func TestAnswerPromptShape(t *testing.T) {
	system, user := AnswerPrompt(ContextBundle{
		Question:      "what is go?",
		Summary:       "s",
		RecentHistory: "h",
		Context:       "c",
	})
	if !strings.Contains(system, "Long-Term Summary, Recent History, and Context") {
		t.Fatalf("unexpected system prompt: %q", system)
	}
	want := "Summary: s\nHistory: h\nContext: c\nQuestion: what is go?"
	if user != want {
		t.Fatalf("unexpected user prompt:\nwant %q\ngot  %q", want, user)
	}
}

func TestBuildContextPlanRequiresWiredDeps(t *testing.T) {
	deps := ContextPlanDeps{Log: newStepsLogger(t)}
	in := ContextPlanInput{UserID: uuid.New(), SessionID: uuid.New(), Question: "q"}
	if _, err := BuildContextPlan(context.Background(), deps, in, nil); err == nil {
		t.Fatalf("expected missing-deps error")
	}
}

func TestBuildContextPlanDegradesOnRetrievalError(t *testing.T) {
	userID := uuid.New()
	session := &types.ChatSession{ID: uuid.New(), UserID: userID, Summary: "s"}
	deps := ContextPlanDeps{
		DB:  &gorm.DB{},
		Log: newStepsLogger(t),
		AI: &fakeAI{completeFn: func(system, user string) (string, error) {
			t.Fatalf("no model call expected without passages or backlog")
			return "", nil
		}},
		Retriever: &fakeRetriever{err: errors.New("vector store down")},
		Sessions:  &fakeSessionRepo{},
		Messages:  &fakeMessageRepo{},
	}

	in := ContextPlanInput{UserID: userID, SessionID: session.ID, Question: "what is go?"}
	bundle, err := BuildContextPlan(context.Background(), deps, in, session)
	if err != nil {
		t.Fatalf("retrieval failure must not fail the plan: %v", err)
	}
	if bundle.Context != NoContextSentinel {
		t.Fatalf("expected sentinel context, got %q", bundle.Context)
	}
	if bundle.Summary != "s" {
		t.Fatalf("expected session summary carried through, got %q", bundle.Summary)
	}
	if bundle.Question != "what is go?" {
		t.Fatalf("unexpected question: %q", bundle.Question)
	}
}

func TestBuildContextPlanOverFetchesSoDuplicatesDoNotShrinkContext(t *testing.T) {
	userID := uuid.New()
	session := &types.ChatSession{ID: uuid.New(), UserID: userID}
	retriever := &fakeRetriever{passages: []Passage{
		{Content: "Goroutines are cheap.", Score: 0.9},
		{Content: "goroutines are CHEAP. ", Score: 0.85},
		{Content: "Channels carry values.", Score: 0.8},
		{Content: "Select multiplexes channels.", Score: 0.7},
	}}
	deps := ContextPlanDeps{
		DB:  &gorm.DB{},
		Log: newStepsLogger(t),
		AI: &fakeAI{completeFn: func(system, user string) (string, error) {
			return "", errors.New("model unavailable")
		}},
		Retriever: retriever,
		Sessions:  &fakeSessionRepo{},
		Messages:  &fakeMessageRepo{},
	}

	in := ContextPlanInput{UserID: userID, SessionID: session.ID, Question: "how does go do concurrency?"}
	bundle, err := BuildContextPlan(context.Background(), deps, in, session)
	if err != nil {
		t.Fatalf("BuildContextPlan: %v", err)
	}
	if retriever.gotTopK != RetrievalFetchLimit {
		t.Fatalf("store queried for %d matches, want %d", retriever.gotTopK, RetrievalFetchLimit)
	}
	// The near-duplicate hit must not cost a context slot: the raw fallback
	// still carries three distinct passages.
	for _, want := range []string{"Goroutines are cheap.", "Channels carry values.", "Select multiplexes channels."} {
		if !strings.Contains(bundle.Context, want) {
			t.Fatalf("context missing %q: %q", want, bundle.Context)
		}
	}
	if got := strings.Count(bundle.Context, "cheap"); got != 1 {
		t.Fatalf("duplicate passage survived dedup, %d occurrences: %q", got, bundle.Context)
	}
}
