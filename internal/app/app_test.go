package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leojay-net/chatshop/pkg/ai"
	"github.com/leojay-net/chatshop/pkg/domain"
	"github.com/leojay-net/chatshop/pkg/search"
	"github.com/leojay-net/chatshop/pkg/store"
)

type fakeModel struct {
	replies []string
	calls   int
	prompts []string
	history [][]ai.Turn
	err     error
}

func (m *fakeModel) SendTurn(_ context.Context, history []ai.Turn, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	m.history = append(m.history, history)
	if m.err != nil {
		return "", m.err
	}
	reply := m.replies[m.calls%len(m.replies)]
	m.calls++
	return reply, nil
}

type fakeSearcher struct {
	queries  []string
	products []domain.Product
	failures []search.Failure
}

func (s *fakeSearcher) Search(_ context.Context, query string, _ int) ([]domain.Product, []search.Failure) {
	s.queries = append(s.queries, query)
	return s.products, s.failures
}

func newTestApp(t *testing.T, model ai.ChatModel, searcher Searcher) *App {
	t.Helper()
	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	a, err := New(Config{Store: store.NewMemoryStore(), Model: model, Searcher: searcher})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func TestChatHistoryGrowsByTwoPerTurn(t *testing.T) {
	model := &fakeModel{replies: []string{"Could you tell me more?"}}
	a := newTestApp(t, model, nil)
	ctx := context.Background()

	result, err := a.Chat(ctx, "a@example.com", "", "I want a laptop")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	for turn := 2; turn <= 3; turn++ {
		if _, err := a.Chat(ctx, "a@example.com", result.SessionKey, "something gaming"); err != nil {
			t.Fatalf("turn %d: %v", turn, err)
		}
	}

	sessions, err := a.ListChats(ctx, store.Filter{SessionKey: result.SessionKey})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if got := len(sessions[0].History); got != 6 {
		t.Fatalf("history = %d messages after 3 turns, want 6", got)
	}
	for i, msg := range sessions[0].History {
		wantRole := domain.RoleUser
		if i%2 == 1 {
			wantRole = domain.RoleAssistant
		}
		if msg.Role != wantRole {
			t.Fatalf("message %d role = %s, want %s", i, msg.Role, wantRole)
		}
	}
}

func TestChatSelectsPromptVariantBySessionState(t *testing.T) {
	model := &fakeModel{replies: []string{"Hello! What are you shopping for?"}}
	a := newTestApp(t, model, nil)
	ctx := context.Background()

	result, err := a.Chat(ctx, "a@example.com", "", "hi")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if !result.IsNew {
		t.Fatalf("expected first turn to create the session")
	}
	if !strings.Contains(model.prompts[0], "Greet the user") {
		t.Fatalf("first prompt missing greeting instruction:\n%s", model.prompts[0])
	}

	result2, err := a.Chat(ctx, "a@example.com", result.SessionKey, "a laptop")
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if result2.IsNew {
		t.Fatalf("second turn must reuse the session")
	}
	if strings.Contains(model.prompts[1], "Greet the user") {
		t.Fatalf("continuing prompt must not repeat the greeting instruction")
	}
	if !strings.Contains(model.prompts[1], "Continue assisting") {
		t.Fatalf("second prompt is not the continuing variant:\n%s", model.prompts[1])
	}
}

func TestChatReplaysFullHistory(t *testing.T) {
	model := &fakeModel{replies: []string{"ok"}}
	a := newTestApp(t, model, nil)
	ctx := context.Background()

	result, err := a.Chat(ctx, "a@example.com", "", "first")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if _, err := a.Chat(ctx, "a@example.com", result.SessionKey, "second"); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	// Second invocation sees user+assistant from turn 1 plus the new user message.
	if got := len(model.history[1]); got != 3 {
		t.Fatalf("replayed history = %d turns, want 3", got)
	}
	if model.history[1][2].Role != domain.RoleUser || model.history[1][2].Text != "second" {
		t.Fatalf("last replayed turn = %+v", model.history[1][2])
	}
}

// gatedModel blocks inside the first SendTurn until released, so a second
// turn can overlap with the first while it is mid-flight.
type gatedModel struct {
	mu      sync.Mutex
	calls   int
	history [][]ai.Turn
	entered chan struct{}
	release chan struct{}
}

func (m *gatedModel) SendTurn(_ context.Context, history []ai.Turn, _ string) (string, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.history = append(m.history, history)
	m.mu.Unlock()
	if call == 1 {
		close(m.entered)
		<-m.release
	}
	return "ok", nil
}

func TestChatOverlappingTurnsReplayPriorExchange(t *testing.T) {
	model := &gatedModel{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	a := newTestApp(t, model, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = a.Chat(ctx, "a@example.com", "shared-key", "first")
	}()
	<-model.entered

	// The second turn arrives while the first is still inside the model call
	// and must wait for it, then replay the completed exchange.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = a.Chat(ctx, "a@example.com", "shared-key", "second")
	}()
	time.Sleep(50 * time.Millisecond)
	close(model.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("turn %d: %v", i+1, err)
		}
	}
	if len(model.history) != 2 {
		t.Fatalf("model calls = %d, want 2", len(model.history))
	}
	second := model.history[1]
	if len(second) != 3 {
		t.Fatalf("second turn replayed %d messages, want 3", len(second))
	}
	want := []struct{ role, text string }{
		{domain.RoleUser, "first"},
		{domain.RoleAssistant, "ok"},
		{domain.RoleUser, "second"},
	}
	for i, w := range want {
		if second[i].Role != w.role || second[i].Text != w.text {
			t.Fatalf("replayed turn %d = %+v, want %s %q", i, second[i], w.role, w.text)
		}
	}
}

func TestChatReleasesSessionLocks(t *testing.T) {
	model := &fakeModel{replies: []string{"ok"}}
	a := newTestApp(t, model, nil)
	ctx := context.Background()

	result, err := a.Chat(ctx, "a@example.com", "", "one")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if _, err := a.Chat(ctx, "b@example.com", result.SessionKey, "two"); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	a.mu.Lock()
	held := len(a.locks)
	a.mu.Unlock()
	if held != 0 {
		t.Fatalf("lock entries = %d after all turns finished, want 0", held)
	}
}

func TestChatDirectiveTriggersSearch(t *testing.T) {
	price := 5.0
	searcher := &fakeSearcher{
		products: []domain.Product{{Title: "Laptop", URL: "https://example.com/l", Price: &price}},
	}
	model := &fakeModel{replies: []string{`{"product": "gaming laptop 16gb ram"} Anything else?`}}
	a := newTestApp(t, model, searcher)

	result, err := a.Chat(context.Background(), "a@example.com", "", "find me one")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "gaming laptop 16gb ram" {
		t.Fatalf("queries = %v", searcher.queries)
	}
	if len(result.Products) != 1 {
		t.Fatalf("products = %d, want 1", len(result.Products))
	}
	if result.Reply != "Anything else?" {
		t.Fatalf("reply = %q, want text after directive", result.Reply)
	}
}

func TestChatNoDirectiveReturnsRawReply(t *testing.T) {
	searcher := &fakeSearcher{}
	model := &fakeModel{replies: []string{"What RAM size do you need?"}}
	a := newTestApp(t, model, searcher)

	result, err := a.Chat(context.Background(), "a@example.com", "", "a laptop")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(searcher.queries) != 0 {
		t.Fatalf("search must not run without a directive")
	}
	if result.Reply != "What RAM size do you need?" {
		t.Fatalf("reply = %q, want raw model text", result.Reply)
	}
	if result.Products != nil {
		t.Fatalf("products = %+v, want none", result.Products)
	}
}

func TestChatRanksSearchResults(t *testing.T) {
	cheap, pricey := 5.0, 50.0
	rating := 4.0
	searcher := &fakeSearcher{products: []domain.Product{
		{Title: "pricey", URL: "u1", Price: &pricey, Rating: &rating},
		{Title: "cheap", URL: "u2", Price: &cheap, Rating: &rating},
		{Title: "unrankable", URL: "u3"},
	}}
	model := &fakeModel{replies: []string{`{"product": "laptop"}`}}
	a := newTestApp(t, model, searcher)

	result, err := a.Chat(context.Background(), "a@example.com", "", "go")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(result.Products) != 2 {
		t.Fatalf("products = %d, want unrankable dropped", len(result.Products))
	}
	if result.Products[0].Title != "cheap" {
		t.Fatalf("first = %s, want cheap (price ascending)", result.Products[0].Title)
	}
}

func TestChatContentBlockedLeavesNoAssistantEntry(t *testing.T) {
	model := &fakeModel{err: ai.ErrContentBlocked}
	a := newTestApp(t, model, nil)
	ctx := context.Background()

	_, err := a.Chat(ctx, "a@example.com", "fixed-session-key", "something")
	if !errors.Is(err, ai.ErrContentBlocked) {
		t.Fatalf("expected ErrContentBlocked, got: %v", err)
	}

	sessions, listErr := a.ListChats(ctx, store.Filter{Email: "a@example.com"})
	if listErr != nil {
		t.Fatalf("list: %v", listErr)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	history := sessions[0].History
	if len(history) != 1 || history[0].Role != domain.RoleUser {
		t.Fatalf("history = %+v, want only the user message", history)
	}
}

func TestChatValidatesInput(t *testing.T) {
	a := newTestApp(t, &fakeModel{replies: []string{"x"}}, nil)
	if _, err := a.Chat(context.Background(), "", "", "hello"); !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got: %v", err)
	}
	if _, err := a.Chat(context.Background(), "a@example.com", "", "   "); !errors.Is(err, ErrInputRequired) {
		t.Fatalf("expected ErrInputRequired, got: %v", err)
	}
}

func TestDeleteChatsNotFound(t *testing.T) {
	a := newTestApp(t, &fakeModel{replies: []string{"x"}}, nil)
	_, err := a.DeleteChats(context.Background(), store.Filter{Email: "nobody@example.com"})
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got: %v", err)
	}
}
