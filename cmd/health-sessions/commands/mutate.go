package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/strrl/health-sessions/pkg/models"
)

// NewAddCommand creates the add command
func NewAddCommand() *cobra.Command {
	var (
		name     string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a session ending now",
		Long: `Add a session that ends now. Without flags the configured sample
session (sample.name, sample.duration) is added.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cliConsole(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			insert := a.controller.InsertSession
			if name != "" || duration > 0 {
				if name == "" {
					name = a.cfg.Sample.Name
				}
				if duration <= 0 {
					duration = a.cfg.Sample.Duration
				}
				end := time.Now()
				record := models.SessionRecord{Name: name, Start: end.Add(-duration), End: end}
				insert = func() error { return a.controller.InsertRecord(record) }
			}

			state, err := a.runSteps(cmd.Context(), insert)
			if err != nil {
				return fmt.Errorf("failed to add session: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added session. %d session(s) recorded.\n", len(state.Records))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Session name")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Session length, e.g. 45m")
	return cmd
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uid>",
		Short: "Delete a session by uid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := args[0]

			a, err := newApp(cmd, cliConsole(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			// the uid must come from a listing, so load before deleting
			_, err = a.runSteps(cmd.Context(),
				a.controller.Activate,
				func() error { return a.controller.DeleteSession(uid) },
			)
			if err != nil {
				return fmt.Errorf("failed to delete session '%s': %w", uid, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", uid)
			return nil
		},
	}
}

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <glob>",
		Short: "Import sessions from newline-delimited JSON files (duckdb store)",
		Long: `Import sessions from newline-delimited JSON files matching glob.
Each line holds uid (optional), name, start and end. Requires --store duckdb.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			glob := args[0]

			a, err := newApp(cmd, cliConsole(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			before, err := a.runSteps(cmd.Context(), a.controller.Activate)
			if err != nil {
				return fmt.Errorf("failed to load sessions: %w", err)
			}

			after, err := a.runSteps(cmd.Context(), func() error { return a.controller.ImportSessions(glob) })
			if err != nil {
				return fmt.Errorf("failed to import sessions: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d session(s)\n", len(after.Records)-len(before.Records))
			return nil
		},
	}
}
