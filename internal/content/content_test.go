package content

import (
	"strings"
	"testing"
)

func TestLoad_AllLanguagesHaveWelcome(t *testing.T) {
	tbl, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	for _, lang := range Languages {
		if s := tbl.Get(lang, "welcome"); s == "" {
			t.Errorf("language %s has no welcome string", lang)
		}
	}
}

func TestGet_FallbackToDefaultLanguage(t *testing.T) {
	tbl := &Table{strings: map[string]map[string]string{
		"en": {"welcome": "hello"},
		"zu": {},
	}}

	if got := tbl.Get("zu", "welcome"); got != "hello" {
		t.Errorf("expected English fallback, got %q", got)
	}
}

func TestGet_UnknownLanguageFallsBack(t *testing.T) {
	tbl, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	want := tbl.Get(DefaultLanguage, "emergency_contacts")
	if got := tbl.Get("fr", "emergency_contacts"); got != want {
		t.Errorf("unknown language should fall back to default: got %q", got)
	}
}

func TestGet_MissingKeyNeverEmpty(t *testing.T) {
	tbl, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := tbl.Get("en", "no_such_key"); got == "" {
		t.Error("missing key must fall back to a literal, not empty string")
	}
}

func TestFormat_Placeholders(t *testing.T) {
	tbl, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	msg := tbl.Format("en", "reminder_message", map[string]string{
		"VACCINE_NAME": "Measles",
		"VACCINE_DATE": "10 October 2024",
	})
	if !strings.Contains(msg, "Measles") || !strings.Contains(msg, "10 October 2024") {
		t.Errorf("placeholders not substituted: %q", msg)
	}
	if strings.Contains(msg, "%VACCINE_NAME%") || strings.Contains(msg, "%VACCINE_DATE%") {
		t.Errorf("raw placeholders left in output: %q", msg)
	}
}

func TestKnown(t *testing.T) {
	for _, lang := range Languages {
		if !Known(lang) {
			t.Errorf("Known(%q) = false", lang)
		}
	}
	if Known("fr") || Known("") {
		t.Error("unexpected language reported as known")
	}
}
