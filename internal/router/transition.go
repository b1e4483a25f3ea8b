package router

import (
	"strconv"
	"strings"

	"github.com/botinahealth/botina/internal/intent"
	"github.com/botinahealth/botina/internal/storage"
)

// Input is a classified inbound message.
type Input struct {
	Kind      intent.Kind
	Text      string
	BirthDate string // validated YYYY-MM-DD extracted from Text, or ""
}

// Effect is a declarative action produced by Decide and executed by the
// Router shell, in order.
type Effect interface{ effect() }

// ReplyKey sends the content-table string for Key in the user's language,
// with optional %PLACEHOLDER% substitutions.
type ReplyKey struct {
	Key  string
	Subs map[string]string
}

// AskModel forwards the message to the language-model collaborator with the
// windowed chat history.
type AskModel struct{}

// SetBirthDate persists the child's birth date.
type SetBirthDate struct{ Date string }

// SetLanguage switches the user's language. Replies emitted after this
// effect resolve in the new language.
type SetLanguage struct{ Lang string }

// ClearHistory empties the chat history (context reset on menu reopen).
type ClearHistory struct{}

func (ReplyKey) effect()     {}
func (AskModel) effect()     {}
func (SetBirthDate) effect() {}
func (SetLanguage) effect()  {}
func (ClearHistory) effect() {}

// Decision is the outcome of one transition.
type Decision struct {
	Next    State
	Effects []Effect
}

// Rules carries the configuration the transition function depends on.
type Rules struct {
	Entry     EntryMode
	Languages []string // menu order for the language chooser
}

// Decide computes the next state and effects for one inbound message. Pure:
// no I/O, no clock, no mutation of rec.
func Decide(st State, rec storage.UserRecord, in Input, rules Rules) Decision {
	// First contact: welcome in the detected language, then enter the
	// configured entry state. The welcome consumes the message entirely.
	if st == StateUninitialized {
		return Decision{
			Next:    rules.Entry.EntryState(),
			Effects: []Effect{ReplyKey{Key: "welcome"}},
		}
	}

	// Side-channel interrupts: reply without consuming the state machine's
	// position.
	switch in.Kind {
	case intent.Emergency:
		return Decision{Next: st, Effects: []Effect{ReplyKey{Key: "emergency_contacts"}}}
	case intent.Website:
		return Decision{Next: st, Effects: []Effect{ReplyKey{Key: "website_info"}}}
	case intent.MenuCommand:
		return Decision{
			Next:    StateMenuRoot,
			Effects: []Effect{ClearHistory{}, ReplyKey{Key: "menu_root"}},
		}
	}

	switch st {
	case StateMenuRoot:
		return decideMenuRoot(in)
	case StateMenuInfo:
		return decideMenuInfo(in)
	case StateAwaitingBirth:
		return decideAwaitingBirth(rec, in, rules)
	case StateAwaitingLang:
		return decideAwaitingLang(in, rules)
	default:
		return decideFreeForm(rec, in)
	}
}

func decideMenuRoot(in Input) Decision {
	switch strings.TrimSpace(in.Text) {
	case "1":
		return Decision{Next: StateMenuInfo, Effects: []Effect{ReplyKey{Key: "menu_info"}}}
	case "2":
		return Decision{Next: StateAwaitingBirth, Effects: []Effect{ReplyKey{Key: "birthdate_prompt"}}}
	case "3":
		return Decision{Next: StateAwaitingLang, Effects: []Effect{ReplyKey{Key: "language_prompt"}}}
	case "4":
		return Decision{Next: StateFreeForm, Effects: []Effect{ReplyKey{Key: "freeform_ack"}}}
	default:
		return Decision{Next: StateMenuRoot, Effects: []Effect{ReplyKey{Key: "menu_invalid"}}}
	}
}

func decideMenuInfo(in Input) Decision {
	// "0" reopens the root menu and is already handled as a menu command.
	keys := map[string]string{
		"1": "menu_info_schedule",
		"2": "menu_info_side_effects",
		"3": "menu_info_why",
	}
	if key, ok := keys[strings.TrimSpace(in.Text)]; ok {
		return Decision{Next: StateMenuInfo, Effects: []Effect{ReplyKey{Key: key}}}
	}
	return Decision{Next: StateMenuInfo, Effects: []Effect{ReplyKey{Key: "menu_invalid"}}}
}

func decideAwaitingBirth(rec storage.UserRecord, in Input, rules Rules) Decision {
	if in.BirthDate == "" {
		return Decision{Next: StateAwaitingBirth, Effects: []Effect{ReplyKey{Key: "birthdate_invalid"}}}
	}

	// Once set, the stored date is authoritative: confirm it rather than
	// overwrite.
	if rec.ChildBirthDate != "" {
		return Decision{
			Next: rules.Entry.EntryState(),
			Effects: []Effect{ReplyKey{
				Key:  "birthdate_confirmed",
				Subs: map[string]string{"BIRTHDATE": rec.ChildBirthDate},
			}},
		}
	}
	return Decision{
		Next: rules.Entry.EntryState(),
		Effects: []Effect{
			SetBirthDate{Date: in.BirthDate},
			ReplyKey{Key: "birthdate_confirmed", Subs: map[string]string{"BIRTHDATE": in.BirthDate}},
		},
	}
}

func decideAwaitingLang(in Input, rules Rules) Decision {
	sel := strings.TrimSpace(in.Text)
	for i, lang := range rules.Languages {
		if sel == strconv.Itoa(i+1) {
			return Decision{
				Next: rules.Entry.EntryState(),
				Effects: []Effect{
					SetLanguage{Lang: lang},
					ReplyKey{Key: "language_confirmed"},
				},
			}
		}
	}
	return Decision{Next: StateAwaitingLang, Effects: []Effect{ReplyKey{Key: "language_prompt"}}}
}

func decideFreeForm(rec storage.UserRecord, in Input) Decision {
	if in.Kind == intent.Greeting {
		return Decision{Next: StateFreeForm, Effects: []Effect{ReplyKey{Key: "welcome"}}}
	}

	var effects []Effect
	// A birth date volunteered mid-conversation is stored and confirmed
	// before the model reply, so the user sees the fact acknowledged first.
	if in.BirthDate != "" && rec.ChildBirthDate == "" {
		effects = append(effects,
			SetBirthDate{Date: in.BirthDate},
			ReplyKey{Key: "birthdate_confirmed", Subs: map[string]string{"BIRTHDATE": in.BirthDate}},
		)
	}
	effects = append(effects, AskModel{})
	return Decision{Next: StateFreeForm, Effects: effects}
}
