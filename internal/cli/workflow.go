package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
	"github.com/Joseda-hg/lazyboard/internal/model"
)

func newMoveCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> [column]",
		Short: "Move a task to a different column",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return runMove(ctx, cmd, a, args)
			})
		},
	}
	cmd.Flags().BoolP("next", "n", false, "Move to the next column")
	cmd.Flags().BoolP("force", "f", false, "Move even if the WIP limit is reached")
	return cmd
}

func runMove(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	id, err := resolveTaskID(ctx, a.engine, args[0])
	if err != nil {
		return err
	}
	next, _ := cmd.Flags().GetBool("next")
	force, _ := cmd.Flags().GetBool("force")

	target := ""
	if len(args) > 1 {
		target = args[1]
	}
	if next {
		current, err := a.engine.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return apperr.NotFound("Task '%s' not found", id)
		}
		col, err := a.dir.NextColumn(ctx, current.ColumnID)
		if err != nil {
			return err
		}
		if col == nil {
			return apperr.Validation("Task is already in the last column")
		}
		target = col.ID
	}
	if target == "" {
		return apperr.Validation("Specify a column or use --next")
	}

	moved, err := a.engine.MoveTask(ctx, id, target, model.MoveOptions{Force: force, Actor: a.agent})
	if err != nil {
		return err
	}

	name := moved.ColumnID
	if col, err := a.dir.GetColumn(ctx, moved.ColumnID); err == nil && col != nil {
		name = col.Name
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Moved [%s] to %s\n", shortID(moved.ID), name)
	return nil
}

func newDoneCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Move a task to the terminal column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				id, err := resolveTaskID(ctx, a.engine, args[0])
				if err != nil {
					return err
				}
				terminal, err := a.dir.GetTerminalColumn(ctx)
				if err != nil {
					return err
				}
				if terminal == nil {
					return fmt.Errorf("no terminal column configured")
				}
				moved, err := a.engine.MoveTask(ctx, id, terminal.ID, model.MoveOptions{Actor: a.agent})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Completed [%s] %q\n", shortID(moved.ID), moved.Title)
				return nil
			})
		},
	}
}

func newArchiveCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive tasks matching all given criteria",
		Long: `Archive tasks matching all given criteria.

--older-than takes a Go duration (36h) or a number of days (7d).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return runArchive(ctx, cmd, a)
			})
		},
	}
	cmd.Flags().String("status", "", "Column to archive from")
	cmd.Flags().String("older-than", "", "Only tasks created before this age")
	cmd.Flags().StringSlice("ids", nil, "Task IDs or prefixes")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func runArchive(ctx context.Context, cmd *cobra.Command, a *app) error {
	var criteria model.ArchiveCriteria
	criteria.Status, _ = cmd.Flags().GetString("status")

	if olderThan, _ := cmd.Flags().GetString("older-than"); olderThan != "" {
		age, err := parseAge(olderThan)
		if err != nil {
			return err
		}
		cutoff := time.Now().Add(-age)
		criteria.OlderThan = &cutoff
	}

	refs, _ := cmd.Flags().GetStringSlice("ids")
	for _, ref := range refs {
		id, err := resolveTaskID(ctx, a.engine, ref)
		if err != nil {
			return err
		}
		criteria.TaskIDs = append(criteria.TaskIDs, id)
	}

	result, err := a.engine.ArchiveTasks(ctx, criteria)
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Archived %d task(s)\n", result.ArchivedCount)
	return nil
}

// parseAge reads a Go duration or a whole number of days such as "7d".
func parseAge(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, apperr.Validation("Invalid age '%s'", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, apperr.Validation("Invalid age '%s'", value)
	}
	return d, nil
}

func newRestoreCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore an archived task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				id, err := resolveTaskID(ctx, a.engine, args[0])
				if err != nil {
					return err
				}
				column, _ := cmd.Flags().GetString("column")
				restored, err := a.engine.RestoreTask(ctx, id, column)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored [%s] to %s\n", shortID(restored.ID), restored.ColumnID)
				return nil
			})
		},
	}
	cmd.Flags().StringP("column", "c", "", "Column to restore into (default: previous column)")
	return cmd
}
