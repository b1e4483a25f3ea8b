// Package router implements the per-user conversation state machine. The
// transition logic is a pure function from (state, classified input) to
// (next state, ordered effects); the Router is the shell that executes
// effects against storage, content, the model, and the message transport.
package router

// State is the tagged conversation state stored on each user record.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateMenuRoot      State = "menu_root"
	StateMenuInfo      State = "menu_info"
	StateAwaitingBirth State = "awaiting_birthdate"
	StateAwaitingLang  State = "awaiting_language_choice"
	StateFreeForm      State = "free_form"
)

// Valid reports whether s is one of the enumerated states.
func (s State) Valid() bool {
	switch s {
	case StateUninitialized, StateMenuRoot, StateMenuInfo,
		StateAwaitingBirth, StateAwaitingLang, StateFreeForm:
		return true
	}
	return false
}

// EntryMode selects where a conversation lands after first contact and
// after completing an input flow.
type EntryMode string

const (
	EntryFreeForm EntryMode = "free_form"
	EntryMenu     EntryMode = "menu"
)

// EntryState maps the configured entry mode to its conversation state.
func (m EntryMode) EntryState() State {
	if m == EntryMenu {
		return StateMenuRoot
	}
	return StateFreeForm
}
