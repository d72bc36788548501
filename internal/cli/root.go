// Package cli is the lazyboard command line. Every command resolves its
// settings, opens the store and delegates to the task engine.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
)

var version = "dev"

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dsn        string
	driver     string
	agent      string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "lazyboard",
		Short: "Kanban board for humans and coding agents",
		Long: `lazyboard keeps a project's task board in a local database.

Agents and people share one board: tasks move between columns with WIP limits,
updates are versioned, and every change is recorded in the task history.
Run without a command to open the terminal board.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd, opts, true)
		},
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default .lazyboard/config.json)")
	rootCmd.PersistentFlags().StringVar(&opts.dsn, "db", "", "Database path or connection string")
	rootCmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "Storage driver (sqlite or postgres)")
	rootCmd.PersistentFlags().StringVarP(&opts.agent, "agent", "a", "", "Acting agent (default $LAZYBOARD_AGENT or config)")

	rootCmd.AddCommand(newInitCommand(opts))
	rootCmd.AddCommand(newAddCommand(opts))
	rootCmd.AddCommand(newListCommand(opts))
	rootCmd.AddCommand(newShowCommand(opts))
	rootCmd.AddCommand(newMoveCommand(opts))
	rootCmd.AddCommand(newDoneCommand(opts))
	rootCmd.AddCommand(newUpdateCommand(opts))
	rootCmd.AddCommand(newBlockCommand(opts))
	rootCmd.AddCommand(newUnblockCommand(opts))
	rootCmd.AddCommand(newDeleteCommand(opts))
	rootCmd.AddCommand(newArchiveCommand(opts))
	rootCmd.AddCommand(newRestoreCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))
	rootCmd.AddCommand(newStatusCommand(opts))
	rootCmd.AddCommand(newTUICommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))

	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute(v string) int {
	if v != "" {
		version = v
	}
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", apperr.Message(err))
		return apperr.ExitCode(err)
	}
	return 0
}
