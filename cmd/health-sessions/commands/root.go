package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/strrl/health-sessions/internal/notify"
	"github.com/strrl/health-sessions/internal/tui"
)

var cfgFile string

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "health-sessions",
		Short: "Browse, add and delete recorded health sessions",
		Long: `health-sessions is a TUI application for listing, adding and deleting
fitness/health session records kept by a health data store.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("store", "memory", "Session store: memory, duckdb or sqlite")
	flags.String("dsn", "", "Store location (file path for duckdb/sqlite)")
	flags.Bool("read-only", false, "Start without write permission to the store")
	flags.String("checkpoint", "", "File that keeps the last notified failure across restarts")
	flags.String("log-file", "", "Append JSON logs to this file")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")

	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewAddCommand())
	rootCmd.AddCommand(NewDeleteCommand())
	rootCmd.AddCommand(NewDetailsCommand())
	rootCmd.AddCommand(NewImportCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	// the terminal belongs to the screen, so logs only go to --log-file
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	err = tui.ShowTUI(cmd.Context(), a.controller, tui.Options{
		Tokens:   a.tokens,
		Notifier: notify.RecoveryNotifier{Requester: a.guard, Next: notify.LogNotifier{Metrics: a.metrics}},
	})
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
