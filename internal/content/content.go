package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

//go:embed content.json
var contentFS embed.FS

// DefaultLanguage is the language every lookup ultimately falls back to.
const DefaultLanguage = "en"

// Languages supported by the assistant, in menu order.
var Languages = []string{"en", "af", "zu", "xh"}

// lastResort is returned when a key is missing from every language. The
// reply must never be an empty string on a live chat.
const lastResort = "Sorry, something went wrong. Please visit your nearest clinic for help."

// Table holds per-language reply strings keyed by message name.
type Table struct {
	strings map[string]map[string]string
}

// Load parses the embedded content table.
func Load() (*Table, error) {
	data, err := contentFS.ReadFile("content.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded content: %w", err)
	}
	var m map[string]map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing content table: %w", err)
	}
	if _, ok := m[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("content table missing default language %q", DefaultLanguage)
	}
	return &Table{strings: m}, nil
}

// Known reports whether lang is one of the supported language codes.
func Known(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Get returns the string for (lang, key), falling back to the default
// language and finally to a hardcoded literal. It never returns "".
func (t *Table) Get(lang, key string) string {
	if s, ok := t.strings[lang][key]; ok && s != "" {
		return s
	}
	if s, ok := t.strings[DefaultLanguage][key]; ok && s != "" {
		if lang != DefaultLanguage {
			slog.Warn("content key missing for language, using default", "key", key, "language", lang)
		}
		return s
	}
	slog.Error("content key missing entirely", "key", key, "language", lang)
	return lastResort
}

// Format returns Get(lang, key) with %PLACEHOLDER% substitutions applied.
func (t *Table) Format(lang, key string, subs map[string]string) string {
	s := t.Get(lang, key)
	for name, val := range subs {
		s = strings.ReplaceAll(s, "%"+name+"%", val)
	}
	return s
}
