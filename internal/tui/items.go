package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyboard/internal/model"
)

const timeLayout = "2006-01-02 15:04"

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTaskSummary(task model.Task) string {
	var b strings.Builder
	b.WriteString(task.Title)
	if task.AssignedTo != nil {
		fmt.Fprintf(&b, " @%s", *task.AssignedTo)
	}
	if task.Blocked() {
		b.WriteString(" [blocked]")
	}
	if len(task.Labels) > 0 {
		fmt.Fprintf(&b, " #%s", strings.Join(task.Labels, " #"))
	}
	return b.String()
}

// columnTitle shows the pane's key, name, task count and WIP limit.
func columnTitle(index int, col model.Column, count int) string {
	limit := ""
	if col.WIPLimit != nil {
		limit = fmt.Sprintf("/%d", *col.WIPLimit)
	}
	return fmt.Sprintf("%d %s (%d%s)", index+1, col.Name, count, limit)
}

func atLimit(col model.Column, count int) bool {
	return col.WIPLimit != nil && count >= *col.WIPLimit
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func detailLines(task model.Task, columnName string) []string {
	lines := []string{
		task.Title,
		fmt.Sprintf("ID: %s  Version: %d", task.ID, task.Version),
		fmt.Sprintf("Column: %s", columnName),
		fmt.Sprintf("Created by: %s", task.CreatedBy),
	}
	if task.AssignedTo != nil {
		lines = append(lines, fmt.Sprintf("Assigned: %s", *task.AssignedTo))
	}
	if task.BlockedReason != nil {
		lines = append(lines, fmt.Sprintf("Blocked: %s", *task.BlockedReason))
	}
	if len(task.DependsOn) > 0 {
		lines = append(lines, fmt.Sprintf("Depends on: %s", strings.Join(task.DependsOn, ", ")))
	}
	if len(task.Labels) > 0 {
		lines = append(lines, fmt.Sprintf("Labels: %s", strings.Join(task.Labels, ", ")))
	}
	if len(task.Files) > 0 {
		lines = append(lines, fmt.Sprintf("Files: %s", strings.Join(task.Files, ", ")))
	}
	lines = append(lines, fmt.Sprintf("Created: %s  Updated: %s", formatTime(&task.CreatedAt), formatTime(&task.UpdatedAt)))
	if task.StartedAt != nil || task.CompletedAt != nil {
		lines = append(lines, fmt.Sprintf("Started: %s  Completed: %s", formatTime(task.StartedAt), formatTime(task.CompletedAt)))
	}
	if task.Archived {
		lines = append(lines, fmt.Sprintf("Archived: %s", formatTime(task.ArchivedAt)))
	}
	if task.Description != nil {
		lines = append(lines, "", *task.Description)
	}
	return lines
}

// groupByColumn buckets tasks per column id, keeping list order.
func groupByColumn(columns []model.Column, tasks []model.Task) map[string][]model.Task {
	grouped := make(map[string][]model.Task, len(columns))
	for _, col := range columns {
		grouped[col.ID] = nil
	}
	for _, task := range tasks {
		grouped[task.ColumnID] = append(grouped[task.ColumnID], task)
	}
	return grouped
}
