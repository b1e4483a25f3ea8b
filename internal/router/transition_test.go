package router

import (
	"testing"

	"github.com/botinahealth/botina/internal/intent"
	"github.com/botinahealth/botina/internal/storage"
)

var freeFormRules = Rules{Entry: EntryFreeForm, Languages: []string{"en", "af", "zu", "xh"}}
var menuRules = Rules{Entry: EntryMenu, Languages: []string{"en", "af", "zu", "xh"}}

func classify(text string) Input {
	return Input{Kind: intent.Classify(text), Text: text}
}

func replyKeys(d Decision) []string {
	var keys []string
	for _, e := range d.Effects {
		if rk, ok := e.(ReplyKey); ok {
			keys = append(keys, rk.Key)
		}
	}
	return keys
}

func hasEffect[T Effect](d Decision) bool {
	for _, e := range d.Effects {
		if _, ok := e.(T); ok {
			return true
		}
	}
	return false
}

func TestDecide_FirstContact(t *testing.T) {
	d := Decide(StateUninitialized, storage.UserRecord{}, classify("hello"), freeFormRules)
	if d.Next != StateFreeForm {
		t.Errorf("next = %s, want free_form", d.Next)
	}
	if keys := replyKeys(d); len(keys) != 1 || keys[0] != "welcome" {
		t.Errorf("expected welcome reply, got %v", keys)
	}

	d = Decide(StateUninitialized, storage.UserRecord{}, classify("hello"), menuRules)
	if d.Next != StateMenuRoot {
		t.Errorf("menu-first entry: next = %s, want menu_root", d.Next)
	}
}

func TestDecide_EmergencyInterruptKeepsState(t *testing.T) {
	states := []State{StateMenuRoot, StateMenuInfo, StateAwaitingBirth, StateAwaitingLang, StateFreeForm}
	for _, st := range states {
		d := Decide(st, storage.UserRecord{}, classify("I need an ambulance"), freeFormRules)
		if d.Next != st {
			t.Errorf("emergency in %s moved state to %s", st, d.Next)
		}
		if keys := replyKeys(d); len(keys) != 1 || keys[0] != "emergency_contacts" {
			t.Errorf("emergency in %s: replies %v", st, keys)
		}
	}
}

func TestDecide_WebsiteInterruptKeepsState(t *testing.T) {
	d := Decide(StateAwaitingBirth, storage.UserRecord{}, classify("do you have a website"), freeFormRules)
	if d.Next != StateAwaitingBirth {
		t.Errorf("website interrupt consumed state: %s", d.Next)
	}
	if keys := replyKeys(d); len(keys) != 1 || keys[0] != "website_info" {
		t.Errorf("replies %v", keys)
	}
}

func TestDecide_MenuCommandFromAnyStateClearsHistory(t *testing.T) {
	for _, text := range []string{"menu", "MENU", "0"} {
		for _, st := range []State{StateMenuInfo, StateAwaitingBirth, StateAwaitingLang, StateFreeForm} {
			d := Decide(st, storage.UserRecord{}, classify(text), freeFormRules)
			if d.Next != StateMenuRoot {
				t.Errorf("%q in %s: next = %s, want menu_root", text, st, d.Next)
			}
			if !hasEffect[ClearHistory](d) {
				t.Errorf("%q in %s: history not cleared", text, st)
			}
		}
	}
}

func TestDecide_MenuRootDispatch(t *testing.T) {
	tests := []struct {
		sel  string
		next State
		key  string
	}{
		{"1", StateMenuInfo, "menu_info"},
		{"2", StateAwaitingBirth, "birthdate_prompt"},
		{"3", StateAwaitingLang, "language_prompt"},
		{"4", StateFreeForm, "freeform_ack"},
		{"9", StateMenuRoot, "menu_invalid"},
		{"abc", StateMenuRoot, "menu_invalid"},
	}
	for _, tt := range tests {
		d := Decide(StateMenuRoot, storage.UserRecord{}, classify(tt.sel), freeFormRules)
		if d.Next != tt.next {
			t.Errorf("menu_root %q: next = %s, want %s", tt.sel, d.Next, tt.next)
		}
		if keys := replyKeys(d); len(keys) != 1 || keys[0] != tt.key {
			t.Errorf("menu_root %q: replies %v, want %s", tt.sel, keys, tt.key)
		}
	}
}

func TestDecide_MenuInfoTopics(t *testing.T) {
	d := Decide(StateMenuInfo, storage.UserRecord{}, classify("2"), freeFormRules)
	if d.Next != StateMenuInfo {
		t.Errorf("topic reply left menu_info: %s", d.Next)
	}
	if keys := replyKeys(d); len(keys) != 1 || keys[0] != "menu_info_side_effects" {
		t.Errorf("replies %v", keys)
	}
}

func TestDecide_AwaitingBirthdate(t *testing.T) {
	// Unparseable text: re-prompt, no advance.
	d := Decide(StateAwaitingBirth, storage.UserRecord{}, classify("next tuesday"), freeFormRules)
	if d.Next != StateAwaitingBirth {
		t.Errorf("invalid date advanced state to %s", d.Next)
	}
	if keys := replyKeys(d); len(keys) != 1 || keys[0] != "birthdate_invalid" {
		t.Errorf("replies %v", keys)
	}

	// Valid date: store, confirm with the date, move to the entry state.
	in := classify("2023-05-14")
	in.BirthDate = "2023-05-14"
	d = Decide(StateAwaitingBirth, storage.UserRecord{}, in, freeFormRules)
	if d.Next != StateFreeForm {
		t.Errorf("valid date: next = %s, want free_form", d.Next)
	}
	if !hasEffect[SetBirthDate](d) {
		t.Error("valid date: SetBirthDate effect missing")
	}
	var confirmed bool
	for _, e := range d.Effects {
		if rk, ok := e.(ReplyKey); ok && rk.Key == "birthdate_confirmed" && rk.Subs["BIRTHDATE"] == "2023-05-14" {
			confirmed = true
		}
	}
	if !confirmed {
		t.Error("confirmation must carry the stored date")
	}
}

func TestDecide_AwaitingBirthdate_AlreadySet(t *testing.T) {
	rec := storage.UserRecord{ChildBirthDate: "2024-01-10"}
	in := classify("2024-06-01")
	in.BirthDate = "2024-06-01"

	d := Decide(StateAwaitingBirth, rec, in, freeFormRules)
	if hasEffect[SetBirthDate](d) {
		t.Error("stored birth date must not be overwritten")
	}
	for _, e := range d.Effects {
		if rk, ok := e.(ReplyKey); ok && rk.Key == "birthdate_confirmed" {
			if rk.Subs["BIRTHDATE"] != "2024-01-10" {
				t.Errorf("confirmation shows %q, want stored date", rk.Subs["BIRTHDATE"])
			}
		}
	}
}

func TestDecide_AwaitingLanguage(t *testing.T) {
	d := Decide(StateAwaitingLang, storage.UserRecord{}, classify("3"), freeFormRules)
	if d.Next != StateFreeForm {
		t.Errorf("valid selector: next = %s", d.Next)
	}
	var set SetLanguage
	for _, e := range d.Effects {
		if sl, ok := e.(SetLanguage); ok {
			set = sl
		}
	}
	if set.Lang != "zu" {
		t.Errorf("selector 3 picked %q, want zu", set.Lang)
	}

	d = Decide(StateAwaitingLang, storage.UserRecord{}, classify("7"), freeFormRules)
	if d.Next != StateAwaitingLang || hasEffect[SetLanguage](d) {
		t.Error("invalid selector must re-prompt without setting language")
	}
}

func TestDecide_FreeFormForwardsToModel(t *testing.T) {
	d := Decide(StateFreeForm, storage.UserRecord{}, classify("when is measles due?"), freeFormRules)
	if d.Next != StateFreeForm || !hasEffect[AskModel](d) {
		t.Errorf("free-form text should stay and ask the model: %+v", d)
	}
}

func TestDecide_FreeFormBirthDateConfirmationPrecedesModel(t *testing.T) {
	in := classify("My baby was born 2024-01-10")
	in.BirthDate = "2024-01-10"

	d := Decide(StateFreeForm, storage.UserRecord{}, in, freeFormRules)

	var order []string
	for _, e := range d.Effects {
		switch e.(type) {
		case SetBirthDate:
			order = append(order, "set")
		case ReplyKey:
			order = append(order, "confirm")
		case AskModel:
			order = append(order, "model")
		}
	}
	want := []string{"set", "confirm", "model"}
	if len(order) != 3 || order[0] != want[0] || order[1] != want[1] || order[2] != want[2] {
		t.Errorf("effect order %v, want %v", order, want)
	}
}

func TestDecide_FreeFormBirthDateAlreadyStored(t *testing.T) {
	rec := storage.UserRecord{ChildBirthDate: "2023-05-14"}
	in := classify("she was born 2024-01-10 actually")
	in.BirthDate = "2024-01-10"

	d := Decide(StateFreeForm, rec, in, freeFormRules)
	if hasEffect[SetBirthDate](d) {
		t.Error("extraction must not overwrite a stored birth date")
	}
	if !hasEffect[AskModel](d) {
		t.Error("message should still reach the model")
	}
}

func TestDecide_FreeFormStandaloneGreeting(t *testing.T) {
	d := Decide(StateFreeForm, storage.UserRecord{}, classify("hello"), freeFormRules)
	if hasEffect[AskModel](d) {
		t.Error("standalone greeting should not reach the model")
	}
	if keys := replyKeys(d); len(keys) != 1 || keys[0] != "welcome" {
		t.Errorf("replies %v", keys)
	}
}
