// Package app implements the conversation-driven product search flow: it
// owns session history, decides when the model's output triggers a
// marketplace search, and assembles the turn's reply.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leojay-net/chatshop/pkg/ai"
	"github.com/leojay-net/chatshop/pkg/domain"
	"github.com/leojay-net/chatshop/pkg/search"
	"github.com/leojay-net/chatshop/pkg/store"
)

// Searcher runs one product query across every marketplace.
// *search.Aggregator satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, pages int) ([]domain.Product, []search.Failure)
}

// Config wires the controller's collaborators.
type Config struct {
	Store          store.Store
	Model          ai.ChatModel
	Searcher       Searcher
	PagesPerSource int
	Criteria       []domain.Criterion
}

// App is the conversation controller.
type App struct {
	store          store.Store
	model          ai.ChatModel
	searcher       Searcher
	pagesPerSource int
	criteria       []domain.Criterion

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// New constructs the controller.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("chat model required")
	}
	if cfg.Searcher == nil {
		return nil, fmt.Errorf("searcher required")
	}
	pages := cfg.PagesPerSource
	if pages <= 0 {
		pages = 3
	}
	criteria := cfg.Criteria
	if len(criteria) == 0 {
		criteria = domain.DefaultCriteria()
	}
	return &App{
		store:          cfg.Store,
		model:          cfg.Model,
		searcher:       cfg.Searcher,
		pagesPerSource: pages,
		criteria:       criteria,
		locks:          make(map[string]*sessionLock),
	}, nil
}

// Result is the outcome of one conversation turn.
type Result struct {
	Reply      string
	SessionKey string
	IsNew      bool
	Products   []domain.Product
	Failures   []search.Failure
}

// Chat runs one turn: append the user message, invoke the model over the
// full history, optionally run a product search when the model emits a
// directive, and append the assistant message. History appends for one
// session are serialized; different sessions proceed concurrently.
func (a *App) Chat(ctx context.Context, email, sessionKey, input string) (Result, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Result{}, ErrEmailRequired
	}
	if strings.TrimSpace(input) == "" {
		return Result{}, ErrInputRequired
	}

	session, isNew, err := a.store.GetOrCreate(ctx, email, strings.TrimSpace(sessionKey))
	if err != nil {
		return Result{}, fmt.Errorf("get or create session: %w", err)
	}

	unlock := a.lockSession(email, session.SessionKey)
	defer unlock()

	if !isNew {
		// Reload under the lock: a turn that waited here must replay the
		// exchange the previous holder appended, not its pre-lock snapshot.
		session, _, err = a.store.GetOrCreate(ctx, email, session.SessionKey)
		if err != nil {
			return Result{}, fmt.Errorf("reload session: %w", err)
		}
	}

	if err := a.append(ctx, session.Email, session.SessionKey, domain.RoleUser, input); err != nil {
		return Result{}, err
	}
	session.History = append(session.History, domain.Message{Role: domain.RoleUser, Content: input})

	prompt := continuingPrompt(input)
	if isNew {
		prompt = newSessionPrompt(input)
	}
	history := toTurns(session.History)
	reply, err := a.model.SendTurn(ctx, history, prompt)
	if err != nil {
		// A safety rejection is terminal for the turn; the history keeps
		// the user message but no partial assistant entry.
		return Result{}, fmt.Errorf("model turn: %w", err)
	}

	if err := a.append(ctx, session.Email, session.SessionKey, domain.RoleAssistant, reply); err != nil {
		return Result{}, err
	}

	result := Result{
		Reply:      reply,
		SessionKey: session.SessionKey,
		IsNew:      isNew,
	}
	directive, ok := ExtractDirective(reply)
	if !ok {
		return result, nil
	}
	products, failures := a.searcher.Search(ctx, directive.ProductDescription, a.pagesPerSource)
	result.Products = search.Rank(products, a.criteria)
	result.Failures = failures
	result.Reply = replyAfterDirective(reply)
	return result, nil
}

// ListChats returns sessions matching the filter.
func (a *App) ListChats(ctx context.Context, filter store.Filter) ([]domain.ChatSession, error) {
	sessions, err := a.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return sessions, nil
}

// DeleteChats removes sessions matching the filter. A filter that matches
// nothing reports store.ErrSessionNotFound.
func (a *App) DeleteChats(ctx context.Context, filter store.Filter) (int64, error) {
	deleted, err := a.store.Delete(ctx, filter)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, store.ErrSessionNotFound
	}
	return deleted, nil
}

func (a *App) append(ctx context.Context, email, sessionKey, role, content string) error {
	msg := domain.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AppendMessage(ctx, email, sessionKey, msg); err != nil {
		return fmt.Errorf("append %s message: %w", role, err)
	}
	return nil
}

// lockSession serializes turns on one (email, sessionKey) pair so history
// ordering is preserved under concurrent requests. Entries are refcounted and
// dropped once the last holder releases, keeping the map bounded by the
// number of in-flight turns.
func (a *App) lockSession(email, sessionKey string) func() {
	key := email + "\x00" + sessionKey
	a.mu.Lock()
	lock, ok := a.locks[key]
	if !ok {
		lock = &sessionLock{}
		a.locks[key] = lock
	}
	lock.refs++
	a.mu.Unlock()
	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		a.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(a.locks, key)
		}
		a.mu.Unlock()
	}
}

func toTurns(history []domain.Message) []ai.Turn {
	turns := make([]ai.Turn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, ai.Turn{Role: msg.Role, Text: msg.Content})
	}
	return turns
}
