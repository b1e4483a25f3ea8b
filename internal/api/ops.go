package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/botinahealth/botina/internal/storage"
)

// OpsUserStore abstracts the user reads the ops API needs.
type OpsUserStore interface {
	GetUser(ctx context.Context, id string) (storage.UserRecord, error)
	GetAllUsers(ctx context.Context) ([]storage.UserRecord, error)
}

// Sweeper runs a reminder sweep on demand.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// OpsDeps holds dependencies for the operational HTTP API.
type OpsDeps struct {
	Store   OpsUserStore
	Sweeper Sweeper
	Token   string
}

// userView is the wire shape for user records. Chat history stays
// internal; only its length is exposed.
type userView struct {
	ID               string `json:"id"`
	Language         string `json:"language"`
	State            string `json:"state"`
	ChildBirthDate   string `json:"child_birth_date,omitempty"`
	LastReminderSent string `json:"last_reminder_sent,omitempty"`
	HistoryLength    int    `json:"history_length"`
}

// NewOpsHandler returns the operational API. The health check is open;
// everything else requires the bearer token.
func NewOpsHandler(deps OpsDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/users", handleListUsers(deps))
		r.Get("/users/{id}", handleGetUser(deps))
		r.Post("/sweep", handleSweep(deps))
	})

	return r
}

func handleListUsers(deps OpsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := deps.Store.GetAllUsers(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing users: %v", err)
			return
		}

		views := make([]userView, len(users))
		for i, u := range users {
			views[i] = toUserView(u)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(views)
	}
}

func handleGetUser(deps OpsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		u, err := deps.Store.GetUser(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "invalid_request_error", "user %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading user: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toUserView(u))
	}
}

func handleSweep(deps OpsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sent, err := deps.Sweeper.Sweep(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "sweep failed: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"reminders_sent": sent})
	}
}

func toUserView(u storage.UserRecord) userView {
	return userView{
		ID:               u.ID,
		Language:         u.Language,
		State:            u.State,
		ChildBirthDate:   u.ChildBirthDate,
		LastReminderSent: u.LastReminderSent,
		HistoryLength:    len(u.ChatHistory),
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
