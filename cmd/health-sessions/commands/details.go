package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDetailsCommand creates the details command
func NewDetailsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "details <uid>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetails,
	}
}

func runDetails(cmd *cobra.Command, args []string) error {
	uid := args[0]

	a, err := newApp(cmd, cliConsole(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.runSteps(cmd.Context(), a.controller.LoadSessions)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	record, ok := state.Find(uid)
	if !ok {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session '%s' not found\n", uid)
		fmt.Fprintf(out, "\nAvailable sessions:\n")
		for i, r := range state.Records {
			if i >= 10 {
				fmt.Fprintf(out, "... and %d more sessions\n", len(state.Records)-10)
				break
			}
			fmt.Fprintf(out, "  - %s (%s)\n", r.UID, r.Name)
		}
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session: %s\n", record.Name)
	fmt.Fprintln(out, "==========================================")
	fmt.Fprintf(out, "UID:      %s\n", record.UID)
	fmt.Fprintf(out, "Start:    %s\n", record.Start.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "End:      %s\n", record.End.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Duration: %s\n", record.Duration())
	return nil
}
