package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazyboard/internal/config"
	"github.com/Joseda-hg/lazyboard/internal/model"
)

func newInitCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a board in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}
	cmd.Flags().StringP("name", "n", "", "Board name")
	return cmd
}

func runInit(cmd *cobra.Command, opts *globalOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, opts, allowEmpty, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	existing, err := a.dir.GetBoard(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("Board already exists in this directory")
	}

	cfg := a.cfg
	name, _ := cmd.Flags().GetString("name")
	if name != "" {
		cfg.Board.Name = name
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	if name != "" || !config.Exists(a.cfgPath) {
		// Storage is written as configured, not as resolved or overridden by flags.
		onDisk, err := config.Load(a.cfgPath)
		if err != nil {
			return err
		}
		saved := cfg
		saved.Storage = onDisk.Storage
		if err := config.Save(a.cfgPath, saved); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	}

	b, err := a.dir.InitializeBoard(ctx, cfg.Board)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized board: %s\n", b.Name)
	fmt.Fprintf(out, "  Database: %s\n", cfg.Storage.DSN)
	fmt.Fprintf(out, "  Config: %s\n", a.cfgPath)
	return nil
}

func newStatusCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show task counts per column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return runStatus(ctx, cmd, a)
			})
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

type columnStatus struct {
	Column  model.Column `json:"column"`
	Active  int          `json:"active"`
	Blocked int          `json:"blocked"`
}

type boardStatus struct {
	Board    model.Board    `json:"board"`
	Columns  []columnStatus `json:"columns"`
	Archived int            `json:"archived"`
}

func runStatus(ctx context.Context, cmd *cobra.Command, a *app) error {
	b, err := a.dir.GetBoard(ctx)
	if err != nil {
		return err
	}
	columns, err := a.dir.GetColumns(ctx)
	if err != nil {
		return err
	}
	tasks, err := a.engine.ListTasks(ctx, model.TaskFilter{})
	if err != nil {
		return err
	}

	status := boardStatus{Board: *b, Columns: make([]columnStatus, 0, len(columns))}
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col.ID] = i
		status.Columns = append(status.Columns, columnStatus{Column: col})
	}
	for _, t := range tasks {
		if t.Archived {
			status.Archived++
			continue
		}
		i, ok := index[t.ColumnID]
		if !ok {
			continue
		}
		status.Columns[i].Active++
		if t.Blocked() {
			status.Columns[i].Blocked++
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), status)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, status.Board.Name)
	for _, cs := range status.Columns {
		count := fmt.Sprintf("%d", cs.Active)
		if cs.Column.WIPLimit != nil {
			count = fmt.Sprintf("%d/%d", cs.Active, *cs.Column.WIPLimit)
		}
		line := fmt.Sprintf("  %-16s %s", cs.Column.Name, count)
		if cs.Blocked > 0 {
			line += fmt.Sprintf(" (%d blocked)", cs.Blocked)
		}
		fmt.Fprintln(out, line)
	}
	if status.Archived > 0 {
		fmt.Fprintf(out, "  %d archived\n", status.Archived)
	}
	return nil
}
