package composer

import (
	"strings"
	"testing"
	"time"

	"github.com/botinahealth/botina/internal/storage"
)

var now = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

func TestBuildSystemPrompt_LanguageInstruction(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"en", "English"},
		{"af", "Afrikaans"},
		{"zu", "isiZulu"},
		{"xh", "isiXhosa"},
		{"fr", "English"}, // unknown language falls back
	}
	for _, tt := range tests {
		p := BuildSystemPrompt(tt.lang, "", now)
		if !strings.Contains(p, "Respond ONLY in "+tt.want) {
			t.Errorf("prompt for %s missing language instruction %q", tt.lang, tt.want)
		}
	}
}

func TestBuildSystemPrompt_WithBirthDate(t *testing.T) {
	p := BuildSystemPrompt("en", "2024-01-10", now)
	if !strings.Contains(p, "2024-01-10") {
		t.Error("prompt missing birth date")
	}
	if !strings.Contains(p, "31 months old") {
		t.Errorf("prompt missing computed age: %s", p)
	}
}

func TestBuildSystemPrompt_WithoutBirthDate(t *testing.T) {
	p := BuildSystemPrompt("en", "", now)
	if !strings.Contains(p, "NOT provided yet") {
		t.Error("prompt should note missing birth date")
	}
	if !strings.Contains(p, "VACCINATION SCHEDULE") {
		t.Error("prompt missing schedule summary")
	}
}

func TestWindow_TruncatesToMostRecent(t *testing.T) {
	var history []storage.ChatMessage
	for i := 0; i < 10; i++ {
		history = append(history, storage.ChatMessage{Role: storage.RoleUser, Text: string(rune('a' + i))})
	}

	msgs := Window(history, 6)
	if len(msgs) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "e" || msgs[5].Content != "j" {
		t.Errorf("window took wrong slice: first=%q last=%q", msgs[0].Content, msgs[5].Content)
	}
}

func TestWindow_ShortHistoryUnchanged(t *testing.T) {
	history := []storage.ChatMessage{
		{Role: storage.RoleUser, Text: "hi"},
		{Role: storage.RoleAssistant, Text: "hello"},
	}
	msgs := Window(history, 6)
	if len(msgs) != 2 || msgs[1].Role != storage.RoleAssistant {
		t.Errorf("unexpected window: %+v", msgs)
	}
}
