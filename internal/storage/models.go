package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ChatMessage is one turn of a user's conversation history.
type ChatMessage struct {
	Role string    `json:"role"` // "user" or "assistant"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UserRecord is the persisted state for one contact handle. Upserts replace
// the whole record, so concurrent writers never interleave partial updates
// within a row.
type UserRecord struct {
	ID               string        // external contact handle, immutable
	Language         string        // "" until detected or chosen
	State            string        // conversation state tag, never "" once persisted
	ChildBirthDate   string        // "" or YYYY-MM-DD; set-once
	ChatHistory      []ChatMessage // bounded FIFO, newest last
	LastReminderSent string        // "" or YYYY-MM-DD
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TruncateHistory drops the oldest entries so at most cap remain.
func (u *UserRecord) TruncateHistory(cap int) {
	if cap > 0 && len(u.ChatHistory) > cap {
		u.ChatHistory = u.ChatHistory[len(u.ChatHistory)-cap:]
	}
}

// UserStore is the persistence contract for user records. Implemented by the
// SQLite Store and by MemStore, the degraded-mode fallback.
type UserStore interface {
	GetUser(ctx context.Context, id string) (UserRecord, error)
	GetAllUsers(ctx context.Context) ([]UserRecord, error)
	UpsertUser(ctx context.Context, rec UserRecord) error
}
