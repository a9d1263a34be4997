package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/strrl/health-sessions/pkg/models"
)

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions without TUI",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, cliConsole(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.runSteps(cmd.Context(), a.controller.LoadSessions)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	printSessions(cmd.OutOrStdout(), state.Records)
	return nil
}

func printSessions(w io.Writer, records []models.SessionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No sessions found")
		return
	}

	fmt.Fprintln(w, "Sessions:")
	fmt.Fprintln(w, "=========")
	for i, record := range records {
		fmt.Fprintf(w, "%d. %s\n", i+1, record.Name)
		fmt.Fprintf(w, "   UID: %s\n", record.UID)
		fmt.Fprintf(w, "   %s - %s (%s)\n",
			record.Start.Format("2006-01-02 15:04"),
			record.End.Format("2006-01-02 15:04"),
			record.Duration())
	}
}

// cliConsole sends JSON logs to stderr only when --debug is given
func cliConsole(cmd *cobra.Command) io.Writer {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		return os.Stderr
	}
	return nil
}
