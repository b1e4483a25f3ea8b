package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/botinahealth/botina/internal/content"
	"github.com/botinahealth/botina/internal/schedule"
	"github.com/botinahealth/botina/internal/storage"
)

// reminderDateLayout is the human-readable date put in reminder texts,
// e.g. "04 September 2026". Stored dates keep the ISO layout.
const reminderDateLayout = "02 January 2006"

// UserStore abstracts the user operations the sweep needs.
type UserStore interface {
	GetAllUsers(ctx context.Context) ([]storage.UserRecord, error)
	UpsertUser(ctx context.Context, rec storage.UserRecord) error
}

// Sender delivers reminder messages to users.
type Sender interface {
	SendText(ctx context.Context, userID, text string) error
}

// Clock supplies the current time. Tests inject a fixed one.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Engine walks all users once per sweep, computes due dates from the
// vaccine schedule, and sends reminders seven days before and on the
// due date itself. All date comparisons happen at day granularity.
type Engine struct {
	store    UserStore
	vaccines []schedule.Vaccine
	table    *content.Table
	sender   Sender
	clock    Clock
	logger   *slog.Logger
}

// NewEngine creates an Engine with the given dependencies.
func NewEngine(store UserStore, vaccines []schedule.Vaccine, table *content.Table, sender Sender, clock Clock) *Engine {
	if clock == nil {
		clock = realClock{}
	}
	return &Engine{
		store:    store,
		vaccines: vaccines,
		table:    table,
		sender:   sender,
		clock:    clock,
		logger:   slog.Default(),
	}
}

// Sweep runs a single pass over all users and returns the number of
// reminders sent. Per-user failures are logged and skipped so one bad
// record never blocks the rest.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	users, err := e.store.GetAllUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading users: %w", err)
	}

	today := truncateToDay(e.clock.Now())
	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if u.ChildBirthDate == "" || u.Language == "" {
			e.logger.Debug("skipping user with incomplete record", "user_id", u.ID)
			continue
		}
		n, err := e.sweepUser(ctx, u, today)
		if err != nil {
			e.logger.Warn("reminder sweep failed for user", "user_id", u.ID, "error", err)
			continue
		}
		sent += n
	}
	return sent, nil
}

func (e *Engine) sweepUser(ctx context.Context, u storage.UserRecord, today time.Time) (int, error) {
	lastSent, err := parseLastSent(u.LastReminderSent)
	if err != nil {
		return 0, fmt.Errorf("parsing last reminder date %q: %w", u.LastReminderSent, err)
	}

	sent := 0
	for _, v := range e.vaccines {
		due, err := schedule.DueDate(u.ChildBirthDate, v)
		if err != nil {
			return sent, fmt.Errorf("computing due date for %s: %w", v.Name, err)
		}
		due = truncateToDay(due)

		// Evaluated against the value loaded at the start of the pass;
		// vaccines sharing a due date each get their own reminder.
		if !shouldRemind(due, today, lastSent) {
			continue
		}

		text := e.table.Format(u.Language, "reminder_message", map[string]string{
			"VACCINE_NAME": v.Name,
			"VACCINE_DATE": due.Format(reminderDateLayout),
		})
		if err := e.sender.SendText(ctx, u.ID, text); err != nil {
			e.logger.Warn("sending reminder failed", "user_id", u.ID, "vaccine", v.Name, "error", err)
			continue
		}
		sent++

		// Persist immediately; a sweep restarted mid-run must
		// not repeat the send.
		u.LastReminderSent = today.Format(schedule.DateLayout)
		if err := e.store.UpsertUser(ctx, u); err != nil {
			return sent, fmt.Errorf("recording reminder: %w", err)
		}
	}
	return sent, nil
}

// shouldRemind reports whether a reminder is due today for a vaccine
// due on the given date. A week-ahead reminder fires exactly seven
// days out unless one already went out within the past week; a
// due-day reminder fires on the date itself unless one already went
// out today.
func shouldRemind(due, today, lastSent time.Time) bool {
	switch {
	case due.Equal(today.AddDate(0, 0, 7)):
		return lastSent.IsZero() || lastSent.Before(today.AddDate(0, 0, -7))
	case due.Equal(today):
		return lastSent.IsZero() || lastSent.Before(today)
	default:
		return false
	}
}

func parseLastSent(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(schedule.DateLayout, s, time.UTC)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
