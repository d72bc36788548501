package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
	"github.com/Joseda-hg/lazyboard/internal/model"
)

func newAddCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a new task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return runAdd(ctx, cmd, a, args[0])
			})
		},
	}
	cmd.Flags().StringP("column", "c", "", "Column to add the task to")
	cmd.Flags().StringP("description", "D", "", "Task description")
	cmd.Flags().StringP("depends-on", "d", "", "Comma-separated task IDs this depends on")
	cmd.Flags().StringSlice("label", nil, "Label (repeatable)")
	cmd.Flags().StringSlice("file", nil, "Related file (repeatable)")
	cmd.Flags().String("parent", "", "Parent task ID")
	cmd.Flags().BoolP("force", "f", false, "Create even if a similar task exists")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func runAdd(ctx context.Context, cmd *cobra.Command, a *app, title string) error {
	column, _ := cmd.Flags().GetString("column")
	labels, _ := cmd.Flags().GetStringSlice("label")
	files, _ := cmd.Flags().GetStringSlice("file")
	dependsOn, _ := cmd.Flags().GetString("depends-on")
	force, _ := cmd.Flags().GetBool("force")
	asJSON, _ := cmd.Flags().GetBool("json")

	in := model.AddTaskInput{
		Title:    title,
		ColumnID: column,
		Agent:    a.agent,
		Files:    files,
		Labels:   labels,
	}
	if cmd.Flags().Changed("description") {
		desc, _ := cmd.Flags().GetString("description")
		in.Description = &desc
	}
	if dependsOn != "" {
		in.DependsOn = splitList(dependsOn)
	}
	if parent, _ := cmd.Flags().GetString("parent"); parent != "" {
		parentID, err := resolveTaskID(ctx, a.engine, parent)
		if err != nil {
			return err
		}
		in.ParentID = &parentID
	}

	result, err := a.engine.AddTaskChecked(ctx, in, model.CheckedAddOptions{Force: force})
	if err != nil {
		return err
	}
	if result.Rejected {
		if !asJSON {
			fmt.Fprintln(cmd.ErrOrStderr(), "Use --force to create anyway.")
		}
		return apperr.Conflict("%s", result.RejectionReason)
	}

	created := *result.Task
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), created)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created task [%s] %q\n", shortID(created.ID), created.Title)
	fmt.Fprintf(out, "  Column: %s\n", created.ColumnID)
	fmt.Fprintf(out, "  Agent: %s\n", created.CreatedBy)
	if n := len(result.SimilarTasks); n > 0 {
		fmt.Fprintf(out, "  Note: Found %d similar task(s)\n", n)
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func newListCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks, active ones by default.

-a/--agent filters by creator here rather than setting the acting agent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return runList(ctx, cmd, a)
			})
		},
	}
	cmd.Flags().StringP("column", "c", "", "Filter by column")
	cmd.Flags().String("assignee", "", "Filter by assignee")
	cmd.Flags().BoolP("blocked", "b", false, "Show only blocked tasks")
	cmd.Flags().Bool("archived", false, "Show only archived tasks")
	cmd.Flags().Bool("all", false, "Show active and archived tasks")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	cmd.MarkFlagsMutuallyExclusive("archived", "all")
	return cmd
}

func runList(ctx context.Context, cmd *cobra.Command, a *app) error {
	filter := model.TaskFilter{}
	filter.ColumnID, _ = cmd.Flags().GetString("column")
	filter.Assignee, _ = cmd.Flags().GetString("assignee")
	filter.Blocked, _ = cmd.Flags().GetBool("blocked")
	if cmd.Flags().Changed("agent") {
		filter.Agent = a.agent
	}

	archived, _ := cmd.Flags().GetBool("archived")
	all, _ := cmd.Flags().GetBool("all")
	if !all {
		filter.Archived = &archived
	}

	tasks, err := a.engine.ListTasks(ctx, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(out, tasks)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found")
		return nil
	}

	columns, err := a.dir.GetColumns(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		writeTaskLine(out, t, a.engine.DefaultAgent(), columns)
	}
	return nil
}

func newShowCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				id, err := resolveTaskID(ctx, a.engine, args[0])
				if err != nil {
					return err
				}
				t, err := a.engine.GetTask(ctx, id)
				if err != nil {
					return err
				}
				if t == nil {
					return apperr.NotFound("Task '%s' not found", id)
				}
				if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
					return writeJSON(cmd.OutOrStdout(), t)
				}
				columns, err := a.dir.GetColumns(ctx)
				if err != nil {
					return err
				}
				writeTaskDetail(cmd.OutOrStdout(), *t, columns)
				return nil
			})
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func newUpdateCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields",
		Long: `Update task fields. Only the given flags change.

An empty --description or --assign clears the field. With --expect-version the
update is refused if another agent changed the task first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return runUpdate(ctx, cmd, a, args[0])
			})
		},
	}
	cmd.Flags().String("title", "", "New title")
	cmd.Flags().String("description", "", "New description")
	cmd.Flags().String("assign", "", "Assign to agent")
	cmd.Flags().String("files", "", "Comma-separated related files")
	cmd.Flags().String("labels", "", "Comma-separated labels")
	cmd.Flags().Int64("expect-version", 0, "Fail unless the task is at this version")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func runUpdate(ctx context.Context, cmd *cobra.Command, a *app, ref string) error {
	id, err := resolveTaskID(ctx, a.engine, ref)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	var patch model.TaskPatch
	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		patch.Title = &v
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		patch.Description = &v
	}
	if flags.Changed("assign") {
		v, _ := flags.GetString("assign")
		patch.AssignedTo = &v
	}
	if flags.Changed("files") {
		v, _ := flags.GetString("files")
		patch.Files = splitList(v)
	}
	if flags.Changed("labels") {
		v, _ := flags.GetString("labels")
		patch.Labels = splitList(v)
	}
	if patch.Empty() {
		return apperr.Validation("Nothing to update. Pass at least one field flag")
	}

	updated, err := a.engine.UpdateTask(ctx, id, patch, expectedVersion(cmd))
	if err != nil {
		return err
	}
	if asJSON, _ := flags.GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), updated)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated [%s] %q (version %d)\n", shortID(updated.ID), updated.Title, updated.Version)
	return nil
}

func expectedVersion(cmd *cobra.Command) *int64 {
	if !cmd.Flags().Changed("expect-version") {
		return nil
	}
	v, _ := cmd.Flags().GetInt64("expect-version")
	return &v
}

func newBlockCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block <id> <reason>",
		Short: "Mark a task as blocked",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				reason := strings.Join(args[1:], " ")
				if strings.TrimSpace(reason) == "" {
					return apperr.Validation("Blocked reason cannot be empty")
				}
				return runSetBlocked(ctx, cmd, a, args[0], &reason)
			})
		},
	}
	cmd.Flags().Int64("expect-version", 0, "Fail unless the task is at this version")
	return cmd
}

func newUnblockCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unblock <id>",
		Short: "Clear a task's blocked reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return runSetBlocked(ctx, cmd, a, args[0], nil)
			})
		},
	}
	cmd.Flags().Int64("expect-version", 0, "Fail unless the task is at this version")
	return cmd
}

func runSetBlocked(ctx context.Context, cmd *cobra.Command, a *app, ref string, reason *string) error {
	id, err := resolveTaskID(ctx, a.engine, ref)
	if err != nil {
		return err
	}
	updated, err := a.engine.SetBlocked(ctx, id, reason, expectedVersion(cmd))
	if err != nil {
		return err
	}
	if updated.Blocked() {
		fmt.Fprintf(cmd.OutOrStdout(), "Blocked [%s] %s\n", shortID(updated.ID), *updated.BlockedReason)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Unblocked [%s] %q\n", shortID(updated.ID), updated.Title)
	}
	return nil
}

func newDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				id, err := resolveTaskID(ctx, a.engine, args[0])
				if err != nil {
					return err
				}
				if err := a.engine.DeleteTask(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted [%s]\n", shortID(id))
				return nil
			})
		},
	}
}

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show a task's history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				id, err := resolveTaskID(ctx, a.engine, args[0])
				if err != nil {
					return err
				}
				entries, err := a.engine.History(ctx, id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
					return writeJSON(out, entries)
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s  %-12s  %-9s  %s\n", formatTime(&e.CreatedAt), e.Actor, e.EventType, e.Details)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}
