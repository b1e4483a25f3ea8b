package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/botinahealth/botina/internal/schedule"
	"github.com/botinahealth/botina/internal/storage"
)

// MCPUserStore abstracts the user reads the MCP layer needs.
type MCPUserStore interface {
	GetAllUsers(ctx context.Context) ([]storage.UserRecord, error)
}

// MCPClock supplies the current time for due-date calculations.
type MCPClock interface {
	Now() time.Time
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    MCPUserStore
	Vaccines []schedule.Vaccine
	Clock    MCPClock
}

// NewMCPServer creates an MCP server exposing the vaccine schedule and
// reminder pipeline to MCP clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"botina",
		"2.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("botina, a childhood immunization assistant: vaccine schedules and reminder status."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("vaccine_schedule",
			mcp.WithDescription("Compute the full vaccination schedule for a child born on the given date."),
			mcp.WithString("birth_date", mcp.Description("Child's date of birth as YYYY-MM-DD"), mcp.Required()),
		),
		mcpVaccineSchedule(deps),
	)

	s.AddTool(
		mcp.NewTool("due_reminders",
			mcp.WithDescription("List users with a vaccine due today or exactly one week from today."),
		),
		mcpDueReminders(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"schedule://vaccines",
			"Vaccine Schedule",
			mcp.WithResourceDescription("The immunization schedule definitions as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceVaccines(deps),
	)

	return s
}

func mcpVaccineSchedule(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		birthDate, err := req.RequireString("birth_date")
		if err != nil {
			return mcpError("birth_date is required"), nil
		}
		if _, err := time.Parse(schedule.DateLayout, birthDate); err != nil {
			return mcpError(fmt.Sprintf("invalid birth_date %q: expected YYYY-MM-DD", birthDate)), nil
		}

		type entry struct {
			Name    string `json:"name"`
			Dose    int    `json:"dose"`
			DueDate string `json:"due_date"`
		}

		entries := make([]entry, len(deps.Vaccines))
		for i, v := range deps.Vaccines {
			due, err := schedule.DueDate(birthDate, v)
			if err != nil {
				return mcpError(fmt.Sprintf("computing due date for %s: %v", v.Name, err)), nil
			}
			entries[i] = entry{
				Name:    v.Name,
				Dose:    v.Dose,
				DueDate: due.Format(schedule.DateLayout),
			}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal schedule: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpDueReminders(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		users, err := deps.Store.GetAllUsers(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("loading users: %v", err)), nil
		}

		now := deps.Clock.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		weekOut := today.AddDate(0, 0, 7)

		type dueEntry struct {
			UserID  string `json:"user_id"`
			Vaccine string `json:"vaccine"`
			Dose    int    `json:"dose"`
			DueDate string `json:"due_date"`
		}

		var entries []dueEntry
		for _, u := range users {
			if u.ChildBirthDate == "" {
				continue
			}
			for _, v := range deps.Vaccines {
				due, err := schedule.DueDate(u.ChildBirthDate, v)
				if err != nil {
					continue
				}
				due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
				if due.Equal(today) || due.Equal(weekOut) {
					entries = append(entries, dueEntry{
						UserID:  u.ID,
						Vaccine: v.Name,
						Dose:    v.Dose,
						DueDate: due.Format(schedule.DateLayout),
					})
				}
			}
		}

		if len(entries) == 0 {
			return mcpText("[]"), nil
		}
		b, err := json.Marshal(entries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceVaccines(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Vaccines)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal vaccines: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
