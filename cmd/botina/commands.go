package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/botinahealth/botina/internal/config"
	"github.com/botinahealth/botina/internal/schedule"
)

// --- schedule ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the vaccination schedule for a birth date",
	Long: `Print the vaccination schedule for a child born on the given date.

Examples:
  botina schedule --birth-date 2024-01-10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		birthDate, _ := cmd.Flags().GetString("birth-date")
		if birthDate == "" {
			return fmt.Errorf("--birth-date is required")
		}
		if _, err := time.Parse(schedule.DateLayout, birthDate); err != nil {
			return fmt.Errorf("invalid birth date %q: expected YYYY-MM-DD", birthDate)
		}

		vaccines, err := schedule.Load()
		if err != nil {
			return fmt.Errorf("loading vaccine schedule: %w", err)
		}

		fmt.Printf("Vaccination schedule for a child born %s:\n\n", birthDate)
		for _, v := range vaccines {
			due, err := schedule.DueDate(birthDate, v)
			if err != nil {
				return fmt.Errorf("computing due date for %s: %w", v.Name, err)
			}
			fmt.Printf("  %s  %s (dose %d)\n",
				colorize(colorBold, due.Format(schedule.DateLayout)),
				v.Name,
				v.Dose,
			)
		}
		return nil
	},
}

func init() {
	scheduleCmd.Flags().String("birth-date", "", "child's date of birth (YYYY-MM-DD)")
}

// --- sweep ---

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a reminder sweep on the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sweep", nil)
		if err != nil {
			return err
		}

		var result map[string]int
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Sweep complete, %d reminders sent", result["reminders_sent"])
		return nil
	},
}

// --- users ---

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect registered users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/users")
		if err != nil {
			return err
		}

		var users []struct {
			ID             string `json:"id"`
			Language       string `json:"language"`
			State          string `json:"state"`
			ChildBirthDate string `json:"child_birth_date"`
		}
		if err := decodeJSON(resp, &users); err != nil {
			return err
		}

		if len(users) == 0 {
			fmt.Println("No users found.")
			return nil
		}

		for _, u := range users {
			birth := u.ChildBirthDate
			if birth == "" {
				birth = "-"
			}
			fmt.Printf("%s  %s  %s  %s\n",
				colorize(colorCyan, u.ID),
				u.Language,
				u.State,
				birth,
			)
		}
		return nil
	},
}

var usersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/users/"+args[0])
		if err != nil {
			return err
		}

		var user any
		if err := decodeJSON(resp, &user); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(user)
	},
}

func init() {
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersShowCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
