package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyboard/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func columnName(columns []model.Column, id string) string {
	for _, col := range columns {
		if col.ID == id {
			return col.Name
		}
	}
	return id
}

// writeTaskLine prints the two line summary used by list.
func writeTaskLine(w io.Writer, t model.Task, defaultAgent string, columns []model.Column) {
	agent := ""
	if t.CreatedBy != defaultAgent {
		agent = " @" + t.CreatedBy
	}
	blocked := ""
	if t.Blocked() {
		blocked = " [blocked]"
	}
	archived := ""
	if t.Archived {
		archived = " [archived]"
	}
	fmt.Fprintf(w, "[%s] %s%s%s%s\n", shortID(t.ID), t.Title, agent, blocked, archived)
	fmt.Fprintf(w, "         %s\n", columnName(columns, t.ColumnID))
}

func writeTaskDetail(w io.Writer, t model.Task, columns []model.Column) {
	fmt.Fprintf(w, "[%s] %s\n", t.ID, t.Title)
	fmt.Fprintf(w, "  Column:     %s\n", columnName(columns, t.ColumnID))
	fmt.Fprintf(w, "  Version:    %d\n", t.Version)
	fmt.Fprintf(w, "  Created by: %s\n", t.CreatedBy)
	if t.AssignedTo != nil {
		fmt.Fprintf(w, "  Assigned:   %s\n", *t.AssignedTo)
	}
	if t.ParentID != nil {
		fmt.Fprintf(w, "  Parent:     %s\n", *t.ParentID)
	}
	if len(t.DependsOn) > 0 {
		fmt.Fprintf(w, "  Depends on: %s\n", strings.Join(t.DependsOn, ", "))
	}
	if len(t.Labels) > 0 {
		fmt.Fprintf(w, "  Labels:     %s\n", strings.Join(t.Labels, ", "))
	}
	if len(t.Files) > 0 {
		fmt.Fprintf(w, "  Files:      %s\n", strings.Join(t.Files, ", "))
	}
	if t.BlockedReason != nil {
		fmt.Fprintf(w, "  Blocked:    %s\n", *t.BlockedReason)
	}
	fmt.Fprintf(w, "  Created:    %s\n", formatTime(&t.CreatedAt))
	fmt.Fprintf(w, "  Updated:    %s\n", formatTime(&t.UpdatedAt))
	if t.StartedAt != nil {
		fmt.Fprintf(w, "  Started:    %s\n", formatTime(t.StartedAt))
	}
	if t.CompletedAt != nil {
		fmt.Fprintf(w, "  Completed:  %s\n", formatTime(t.CompletedAt))
	}
	if t.Archived {
		fmt.Fprintf(w, "  Archived:   %s\n", formatTime(t.ArchivedAt))
	}
	if t.Description != nil {
		fmt.Fprintf(w, "\n%s\n", *t.Description)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
