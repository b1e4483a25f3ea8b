package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/botinahealth/botina/internal/content"
	"github.com/botinahealth/botina/internal/model"
	"github.com/botinahealth/botina/internal/storage"
)

// --- Mocks ---

type mockSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (m *mockSender) SendText(ctx context.Context, userID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("gateway down")
	}
	m.sent = append(m.sent, text)
	return nil
}

func (m *mockSender) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type mockGenerator struct {
	reply string
	err   error
	calls int
}

func (m *mockGenerator) Generate(ctx context.Context, systemPrompt string, history []model.Message) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestRouter(t *testing.T, gen model.Generator, sender Sender) (*Router, *storage.MemStore) {
	t.Helper()
	tbl, err := content.Load()
	if err != nil {
		t.Fatalf("loading content: %v", err)
	}
	store := storage.NewMemStore()
	r := New(store, tbl, gen, sender, Options{
		Clock: fixedClock{now: time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)},
	})
	return r, store
}

// --- Tests ---

func TestHandle_FirstContactWelcome(t *testing.T) {
	sender := &mockSender{}
	r, store := newTestRouter(t, &mockGenerator{reply: "ok"}, sender)
	ctx := context.Background()

	r.Handle(ctx, "u1", "hello")

	rec, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if rec.State != string(StateFreeForm) {
		t.Errorf("state = %s, want free_form", rec.State)
	}
	if rec.Language != "en" {
		t.Errorf("language = %s, want en", rec.Language)
	}
	msgs := sender.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Sister Botina") {
		t.Errorf("expected welcome message, got %v", msgs)
	}
}

func TestHandle_FirstContactDetectsLanguage(t *testing.T) {
	sender := &mockSender{}
	r, store := newTestRouter(t, &mockGenerator{reply: "ok"}, sender)
	ctx := context.Background()

	r.Handle(ctx, "u-zu", "sawubona")

	rec, _ := store.GetUser(ctx, "u-zu")
	if rec.Language != "zu" {
		t.Errorf("language = %s, want zu", rec.Language)
	}
	msgs := sender.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Sawubona") {
		t.Errorf("welcome not in isiZulu: %v", msgs)
	}
}

func TestHandle_BirthDateConfirmationBeforeModelReply(t *testing.T) {
	sender := &mockSender{}
	gen := &mockGenerator{reply: "That is a great age for vaccines."}
	r, store := newTestRouter(t, gen, sender)
	ctx := context.Background()

	r.Handle(ctx, "u1", "hello")
	r.Handle(ctx, "u1", "My baby was born 2024-01-10")

	rec, _ := store.GetUser(ctx, "u1")
	if rec.ChildBirthDate != "2024-01-10" {
		t.Errorf("birth date = %q, want 2024-01-10", rec.ChildBirthDate)
	}

	msgs := sender.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected welcome + confirmation + model reply, got %v", msgs)
	}
	if !strings.Contains(msgs[1], "2024-01-10") {
		t.Errorf("confirmation should come before the model reply: %v", msgs)
	}
	if msgs[2] != gen.reply {
		t.Errorf("model reply last, got %q", msgs[2])
	}
}

func TestHandle_ModelUnavailableFallback(t *testing.T) {
	sender := &mockSender{}
	gen := &mockGenerator{err: model.ErrUnavailable}
	r, store := newTestRouter(t, gen, sender)
	ctx := context.Background()

	r.Handle(ctx, "u1", "hello")
	r.Handle(ctx, "u1", "is the flu vaccine safe?")

	msgs := sender.messages()
	last := msgs[len(msgs)-1]
	if !strings.Contains(last, "trouble answering") {
		t.Errorf("expected canned fallback, got %q", last)
	}

	// Failed model turn keeps the user message but no assistant reply.
	rec, _ := store.GetUser(ctx, "u1")
	if len(rec.ChatHistory) != 1 || rec.ChatHistory[0].Role != storage.RoleUser {
		t.Errorf("history after failed model call: %+v", rec.ChatHistory)
	}
	if rec.State != string(StateFreeForm) {
		t.Errorf("state changed on model failure: %s", rec.State)
	}
}

func TestHandle_MenuClearsHistory(t *testing.T) {
	sender := &mockSender{}
	r, store := newTestRouter(t, &mockGenerator{reply: "sure"}, sender)
	ctx := context.Background()

	r.Handle(ctx, "u1", "hello")
	r.Handle(ctx, "u1", "tell me about measles")
	r.Handle(ctx, "u1", "menu")

	rec, _ := store.GetUser(ctx, "u1")
	if rec.State != string(StateMenuRoot) {
		t.Errorf("state = %s, want menu_root", rec.State)
	}
	if len(rec.ChatHistory) != 0 {
		t.Errorf("history not cleared: %+v", rec.ChatHistory)
	}
}

func TestHandle_EmergencyWhileAwaitingBirthdate(t *testing.T) {
	sender := &mockSender{}
	r, store := newTestRouter(t, &mockGenerator{reply: "ok"}, sender)
	ctx := context.Background()

	r.Handle(ctx, "u1", "hello")
	r.Handle(ctx, "u1", "menu")
	r.Handle(ctx, "u1", "2") // save birth date
	r.Handle(ctx, "u1", "emergency")

	rec, _ := store.GetUser(ctx, "u1")
	if rec.State != string(StateAwaitingBirth) {
		t.Errorf("emergency interrupt consumed state: %s", rec.State)
	}
	msgs := sender.messages()
	if !strings.Contains(msgs[len(msgs)-1], "10177") {
		t.Errorf("expected emergency contacts, got %q", msgs[len(msgs)-1])
	}

	// Still accepts the birth date afterwards.
	r.Handle(ctx, "u1", "2023-05-14")
	rec, _ = store.GetUser(ctx, "u1")
	if rec.ChildBirthDate != "2023-05-14" {
		t.Errorf("birth date = %q, want 2023-05-14", rec.ChildBirthDate)
	}
	if rec.State != string(StateFreeForm) {
		t.Errorf("state = %s, want free_form after birth date", rec.State)
	}
}

func TestHandle_AwaitingBirthdateReprompt(t *testing.T) {
	sender := &mockSender{}
	r, store := newTestRouter(t, &mockGenerator{reply: "ok"}, sender)
	ctx := context.Background()

	r.Handle(ctx, "u1", "hello")
	r.Handle(ctx, "u1", "menu")
	r.Handle(ctx, "u1", "2")
	r.Handle(ctx, "u1", "she was born last winter")

	rec, _ := store.GetUser(ctx, "u1")
	if rec.State != string(StateAwaitingBirth) {
		t.Errorf("state = %s, want awaiting_birthdate", rec.State)
	}
	if rec.ChildBirthDate != "" {
		t.Errorf("birth date stored from unparseable text: %q", rec.ChildBirthDate)
	}
	msgs := sender.messages()
	if !strings.Contains(msgs[len(msgs)-1], "YYYY-MM-DD") {
		t.Errorf("expected re-prompt, got %q", msgs[len(msgs)-1])
	}
}

func TestHandle_LanguageChoiceConfirmsInNewLanguage(t *testing.T) {
	sender := &mockSender{}
	r, store := newTestRouter(t, &mockGenerator{reply: "ok"}, sender)
	ctx := context.Background()

	r.Handle(ctx, "u1", "hello")
	r.Handle(ctx, "u1", "menu")
	r.Handle(ctx, "u1", "3")
	r.Handle(ctx, "u1", "2") // Afrikaans

	rec, _ := store.GetUser(ctx, "u1")
	if rec.Language != "af" {
		t.Errorf("language = %s, want af", rec.Language)
	}
	msgs := sender.messages()
	if !strings.Contains(msgs[len(msgs)-1], "Afrikaans") {
		t.Errorf("confirmation not in Afrikaans: %q", msgs[len(msgs)-1])
	}
}

func TestHandle_HistoryCapEnforced(t *testing.T) {
	sender := &mockSender{}
	r, store := newTestRouter(t, &mockGenerator{reply: "an answer"}, sender)
	ctx := context.Background()

	r.Handle(ctx, "u1", "hello")
	for i := 0; i < 30; i++ {
		r.Handle(ctx, "u1", "tell me more about vaccines please")
	}

	rec, _ := store.GetUser(ctx, "u1")
	if len(rec.ChatHistory) > 20 {
		t.Errorf("history length %d exceeds cap", len(rec.ChatHistory))
	}
	// Newest entries retained.
	last := rec.ChatHistory[len(rec.ChatHistory)-1]
	if last.Role != storage.RoleAssistant || last.Text != "an answer" {
		t.Errorf("unexpected newest entry: %+v", last)
	}
}

func TestHandle_SendFailureDoesNotLoseState(t *testing.T) {
	sender := &mockSender{fail: true}
	r, store := newTestRouter(t, &mockGenerator{reply: "ok"}, sender)
	ctx := context.Background()

	r.Handle(ctx, "u1", "hello")

	rec, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("record not persisted despite send failure: %v", err)
	}
	if rec.State != string(StateFreeForm) {
		t.Errorf("state = %s, want free_form", rec.State)
	}
}

func TestHandle_ConcurrentDistinctUsers(t *testing.T) {
	sender := &mockSender{}
	r, store := newTestRouter(t, &mockGenerator{reply: "ok"}, sender)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r.Handle(ctx, id, "hello")
			r.Handle(ctx, id, "when is the next vaccine?")
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		rec, err := store.GetUser(ctx, id)
		if err != nil {
			t.Fatalf("user %s missing: %v", id, err)
		}
		if rec.State != string(StateFreeForm) {
			t.Errorf("user %s state = %s", id, rec.State)
		}
	}
}
