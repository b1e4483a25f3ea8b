// Package intent classifies inbound chat text with deterministic keyword
// heuristics. There is no model call here: classification must behave the
// same on every run so the conversation router stays testable.
package intent

import "strings"

// Kind labels an inbound message for the conversation router.
type Kind int

const (
	// FreeForm is the default: nothing recognized, forward to the model.
	FreeForm Kind = iota
	// Greeting is a short standalone salutation.
	Greeting
	// Emergency asks for urgent help or emergency numbers.
	Emergency
	// Website asks for the parent website or community links.
	Website
	// MenuCommand is the literal menu-reopen keyword.
	MenuCommand
)

func (k Kind) String() string {
	switch k {
	case Greeting:
		return "greeting"
	case Emergency:
		return "emergency"
	case Website:
		return "website"
	case MenuCommand:
		return "menu"
	default:
		return "free_form"
	}
}

// Greeting words across the supported languages. A greeting only counts when
// the whole message is the greeting, or a short message starts with it at a
// word boundary: "hello" and "hello sister" match, but "hellooo" and longer
// sentences like "hello I need help with schedule" do not.
var greetings = []string{
	"hi", "hello", "hey", "molo", "sawubona", "hallo",
	"molweni", "sanibonani", "heita", "howzit", "good morning",
	"good afternoon", "good evening", "goeiedag", "goeiemore",
}

var emergencyKeywords = []string{
	"emergency", "urgent", "help me", "emergency number", "ambulance",
	"noodgeval", "dringend", "help my", "ambulans",
	"isimo esiphuthumayo", "ngishesha", "ngisize", "i-ambulensi",
	"ungxamiseko", "ngxamisekile",
}

var websiteKeywords = []string{
	"website", "webwerf", "iwebhusayithi", "online", "link", "url",
	"community", "forum",
}

// menuCommands reopen the root menu from any state.
var menuCommands = []string{"menu", "0"}

// Classify labels text. Order matters: menu command and greeting are
// whole-message matches checked first, then the substring interrupts.
func Classify(text string) Kind {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" {
		return FreeForm
	}

	for _, cmd := range menuCommands {
		if trimmed == cmd {
			return MenuCommand
		}
	}
	if isGreeting(trimmed) {
		return Greeting
	}
	for _, k := range emergencyKeywords {
		if strings.Contains(trimmed, k) {
			return Emergency
		}
	}
	for _, k := range websiteKeywords {
		if strings.Contains(trimmed, k) {
			return Website
		}
	}
	return FreeForm
}

// isGreeting matches only standalone greetings: the whole string, or a
// greeting prefix immediately followed by a space. Longer sentences that
// merely contain a greeting word elsewhere do not count.
func isGreeting(lower string) bool {
	for _, g := range greetings {
		if lower == g {
			return true
		}
	}
	// Prefix match with a word boundary, but only for short messages: a
	// full question like "hello I need help with schedule" should reach
	// the model, not the canned welcome.
	if len(strings.Fields(lower)) > 3 {
		return false
	}
	for _, g := range greetings {
		if strings.HasPrefix(lower, g+" ") {
			return true
		}
	}
	return false
}
