// Package composer assembles the system prompt and message window sent to
// the language model for free-form questions.
package composer

import (
	"fmt"
	"strings"
	"time"

	"github.com/botinahealth/botina/internal/model"
	"github.com/botinahealth/botina/internal/storage"
)

// DefaultHistoryWindow is how many recent turns accompany a model call.
const DefaultHistoryWindow = 6

var languageNames = map[string]string{
	"en": "English",
	"af": "Afrikaans",
	"zu": "isiZulu",
	"xh": "isiXhosa",
}

const promptHeader = `You are Sister Botina, a friendly chat assistant helping South African parents with child immunizations.

CRITICAL RULES:
1. Respond ONLY in %s
2. Keep responses SHORT - maximum 3-4 sentences
3. Use VERY SIMPLE language
4. Be warm and kind
5. For serious medical concerns, always say "Please visit your clinic"`

const scheduleSummary = `SOUTH AFRICAN VACCINATION SCHEDULE:
- Birth: BCG, OPV
- 6 weeks: OPV, Rotavirus, 6-in-1, Pneumonia
- 10 weeks: 6-in-1 (2nd), Pneumonia (2nd)
- 14 weeks: 6-in-1 (3rd), Pneumonia (3rd), Rotavirus (2nd)
- 9 months: Measles
- 18 months: Boosters + Measles (2nd)`

// BuildSystemPrompt renders the persona, language instruction, user context
// and schedule summary. birthDate may be "" when not yet known.
func BuildSystemPrompt(lang, birthDate string, now time.Time) string {
	name, ok := languageNames[lang]
	if !ok {
		name = languageNames["en"]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, promptHeader, name)
	sb.WriteString("\n\nCONTEXT ABOUT THIS USER:")

	if birthDate != "" {
		if months, err := ageInMonths(birthDate, now); err == nil {
			fmt.Fprintf(&sb, "\n- Child's birth date: %s (%d months old)", birthDate, months)
		} else {
			fmt.Fprintf(&sb, "\n- Child's birth date: %s", birthDate)
		}
	} else {
		sb.WriteString("\n- Child's birth date NOT provided yet")
	}

	sb.WriteString("\n\n")
	sb.WriteString(scheduleSummary)
	return sb.String()
}

// Window converts the most recent n history entries to model messages.
func Window(history []storage.ChatMessage, n int) []model.Message {
	if n <= 0 {
		n = DefaultHistoryWindow
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]model.Message, len(history))
	for i, m := range history {
		out[i] = model.Message{Role: m.Role, Content: m.Text}
	}
	return out
}

func ageInMonths(birthDate string, now time.Time) (int, error) {
	birth, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return 0, err
	}
	months := (now.Year()-birth.Year())*12 + int(now.Month()) - int(birth.Month())
	if now.Day() < birth.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	return months, nil
}
