package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/botinahealth/botina/internal/composer"
	"github.com/botinahealth/botina/internal/content"
	"github.com/botinahealth/botina/internal/intent"
	"github.com/botinahealth/botina/internal/model"
	"github.com/botinahealth/botina/internal/storage"
)

// Sender dispatches outbound text to a user. Implemented by the transport
// gateway.
type Sender interface {
	SendText(ctx context.Context, userID, text string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options tune router behavior; zero values pick the defaults.
type Options struct {
	Entry         EntryMode
	HistoryCap    int
	HistoryWindow int
	LookbackYears int
	Clock         Clock
}

// Router handles inbound messages: it loads the user record, runs the
// transition function, executes the resulting effects, and persists the
// updated record. Messages for the same user are serialized; different
// users proceed concurrently.
type Router struct {
	store  storage.UserStore
	table  *content.Table
	gen    model.Generator
	sender Sender

	rules         Rules
	historyCap    int
	historyWindow int
	lookbackYears int
	clock         Clock
	logger        *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Router with the given collaborators.
func New(store storage.UserStore, table *content.Table, gen model.Generator, sender Sender, opts Options) *Router {
	if opts.Entry == "" {
		opts.Entry = EntryFreeForm
	}
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = 20
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = composer.DefaultHistoryWindow
	}
	if opts.LookbackYears <= 0 {
		opts.LookbackYears = intent.DefaultLookbackYears
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Router{
		store:         store,
		table:         table,
		gen:           gen,
		sender:        sender,
		rules:         Rules{Entry: opts.Entry, Languages: content.Languages},
		historyCap:    opts.HistoryCap,
		historyWindow: opts.HistoryWindow,
		lookbackYears: opts.LookbackYears,
		clock:         opts.Clock,
		logger:        slog.Default(),
	}
}

// Handle processes one inbound message for userID. Safe to call from
// multiple goroutines; calls for the same user run one at a time.
func (r *Router) Handle(ctx context.Context, userID, text string) {
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := r.store.GetUser(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		rec = storage.UserRecord{
			ID:       userID,
			Language: intent.DetectLanguage(text),
			State:    string(StateUninitialized),
		}
	case err != nil:
		// Persistence failure must not kill the conversation: respond from
		// a fresh record and let the upsert below try to repair.
		r.logger.Error("loading user record failed", "user", userID, "error", err)
		rec = storage.UserRecord{
			ID:       userID,
			Language: intent.DetectLanguage(text),
			State:    string(StateUninitialized),
		}
	}
	if !State(rec.State).Valid() {
		rec.State = string(StateUninitialized)
	}

	in := Input{Kind: intent.Classify(text), Text: text}
	if bd, ok := intent.ExtractBirthDate(text, r.clock.Now(), r.lookbackYears); ok {
		in.BirthDate = bd
	}

	d := Decide(State(rec.State), rec, in, r.rules)
	rec.State = string(d.Next)

	for _, eff := range d.Effects {
		r.apply(ctx, &rec, eff, text)
	}

	if err := r.store.UpsertUser(ctx, rec); err != nil {
		r.logger.Error("persisting user record failed", "user", userID, "error", err)
	}
}

func (r *Router) apply(ctx context.Context, rec *storage.UserRecord, eff Effect, inboundText string) {
	switch e := eff.(type) {
	case SetLanguage:
		rec.Language = e.Lang
	case SetBirthDate:
		rec.ChildBirthDate = e.Date
	case ClearHistory:
		rec.ChatHistory = nil
	case ReplyKey:
		r.send(ctx, rec.ID, r.table.Format(r.lang(rec), e.Key, e.Subs))
	case AskModel:
		r.askModel(ctx, rec, inboundText)
	}
}

// askModel appends the user turn, calls the model with the windowed history,
// and sends either the reply or the canned unavailable message. The model
// reply only joins the history when the call succeeded.
func (r *Router) askModel(ctx context.Context, rec *storage.UserRecord, text string) {
	now := r.clock.Now()
	rec.ChatHistory = append(rec.ChatHistory, storage.ChatMessage{
		Role: storage.RoleUser, Text: text, At: now,
	})
	rec.TruncateHistory(r.historyCap)

	sys := composer.BuildSystemPrompt(r.lang(rec), rec.ChildBirthDate, now)
	reply, err := r.gen.Generate(ctx, sys, composer.Window(rec.ChatHistory, r.historyWindow))
	if err != nil {
		r.logger.Warn("model call failed, sending fallback", "user", rec.ID, "error", err)
		r.send(ctx, rec.ID, r.table.Get(r.lang(rec), "model_unavailable"))
		return
	}

	r.send(ctx, rec.ID, reply)
	rec.ChatHistory = append(rec.ChatHistory, storage.ChatMessage{
		Role: storage.RoleAssistant, Text: reply, At: r.clock.Now(),
	})
	rec.TruncateHistory(r.historyCap)
}

func (r *Router) send(ctx context.Context, userID, text string) {
	if err := r.sender.SendText(ctx, userID, text); err != nil {
		// Not retried here: the next inbound message re-triggers normal flow.
		r.logger.Error("outbound send failed", "user", userID, "error", err)
	}
}

func (r *Router) lang(rec *storage.UserRecord) string {
	if content.Known(rec.Language) {
		return rec.Language
	}
	return content.DefaultLanguage
}

func (r *Router) userLock(userID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks == nil {
		r.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := r.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[userID] = lock
	}
	return lock
}
