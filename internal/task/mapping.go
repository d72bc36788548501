package task

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyboard/internal/db/query"
	"github.com/Joseda-hg/lazyboard/internal/model"
)

func mapTask(row query.Task) (model.Task, error) {
	task := model.Task{
		ID:            row.ID,
		Title:         row.Title,
		Description:   nullString(row.Description),
		ColumnID:      row.ColumnID,
		Position:      row.Position,
		CreatedBy:     row.CreatedBy,
		AssignedTo:    nullString(row.AssignedTo),
		ParentID:      nullString(row.ParentID),
		BlockedReason: nullString(row.BlockedReason),
		Version:       row.Version,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
		StartedAt:     nullTime(row.StartedAt),
		CompletedAt:   nullTime(row.CompletedAt),
		Archived:      row.Archived,
		ArchivedAt:    nullTime(row.ArchivedAt),
	}

	var err error
	if task.DependsOn, err = decodeList(row.DependsOn); err != nil {
		return model.Task{}, fmt.Errorf("task %s depends_on: %w", row.ID, err)
	}
	if task.Files, err = decodeList(row.Files); err != nil {
		return model.Task{}, fmt.Errorf("task %s files: %w", row.ID, err)
	}
	if task.Labels, err = decodeList(row.Labels); err != nil {
		return model.Task{}, fmt.Errorf("task %s labels: %w", row.ID, err)
	}
	return task, nil
}

func mapHistory(row query.TaskHistory) model.HistoryEntry {
	return model.HistoryEntry{
		ID:        row.ID,
		TaskID:    row.TaskID,
		EventType: row.EventType,
		Actor:     row.Actor,
		Details:   row.Details,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeList(raw string) ([]string, error) {
	values := []string{}
	if strings.TrimSpace(raw) == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func formatCreatedDetails(task model.Task) string {
	return fmt.Sprintf("created: title='%s' column=%s agent=%s", task.Title, task.ColumnID, task.CreatedBy)
}

func formatMovedDetails(from, to string, forced bool) string {
	details := fmt.Sprintf("moved: %s -> %s", from, to)
	if forced {
		details += " (forced)"
	}
	return details
}

func formatTaskDiff(before, after model.Task) string {
	changes := []string{}
	if before.Title != after.Title {
		changes = append(changes, formatChange("title", before.Title, after.Title))
	}
	if deref(before.Description) != deref(after.Description) {
		changes = append(changes, formatChange("description", deref(before.Description), deref(after.Description)))
	}
	if deref(before.AssignedTo) != deref(after.AssignedTo) {
		changes = append(changes, formatChange("assignee", deref(before.AssignedTo), deref(after.AssignedTo)))
	}
	if formatList(before.Files) != formatList(after.Files) {
		changes = append(changes, formatChange("files", formatList(before.Files), formatList(after.Files)))
	}
	if formatList(before.Labels) != formatList(after.Labels) {
		changes = append(changes, formatChange("labels", formatList(before.Labels), formatList(after.Labels)))
	}

	if len(changes) == 0 {
		return "updated: no changes"
	}

	return "updated: " + strings.Join(changes, "; ")
}

func formatChange(field, before, after string) string {
	return fmt.Sprintf("%s: '%s' -> '%s'", field, valueOrNone(before), valueOrNone(after))
}

func valueOrNone(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "none"
	}
	return trimmed
}

func formatList(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ",")
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
