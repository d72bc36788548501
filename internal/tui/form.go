package tui

import (
	"slices"
	"strings"

	"github.com/Joseda-hg/lazyboard/internal/model"
)

type formField struct {
	Label string
	Value string
}

type formMode int

const (
	formAdd formMode = iota
	formEdit
	formBlock
)

const (
	fieldTitle = iota
	fieldDescription
	fieldAssignee
	fieldLabels
	fieldFiles
)

func buildTaskFormFields(task *model.Task) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Description"},
		{Label: "Assignee"},
		{Label: "Labels (comma separated)"},
		{Label: "Files (comma separated)"},
	}
	if task == nil {
		return fields
	}

	fields[fieldTitle].Value = task.Title
	fields[fieldDescription].Value = deref(task.Description)
	fields[fieldAssignee].Value = deref(task.AssignedTo)
	fields[fieldLabels].Value = strings.Join(task.Labels, ", ")
	fields[fieldFiles].Value = strings.Join(task.Files, ", ")
	return fields
}

func buildBlockFormFields(task model.Task) []formField {
	return []formField{{Label: "Blocked reason", Value: deref(task.BlockedReason)}}
}

func addInputFromForm(fields []formField, columnID, agent string) model.AddTaskInput {
	in := model.AddTaskInput{
		Title:    strings.TrimSpace(fields[fieldTitle].Value),
		ColumnID: columnID,
		Agent:    agent,
		Labels:   parseList(fields[fieldLabels].Value),
		Files:    parseList(fields[fieldFiles].Value),
	}
	if desc := strings.TrimSpace(fields[fieldDescription].Value); desc != "" {
		in.Description = &desc
	}
	return in
}

// patchFromForm returns only the fields that differ from before.
func patchFromForm(before model.Task, fields []formField) model.TaskPatch {
	var patch model.TaskPatch

	if title := strings.TrimSpace(fields[fieldTitle].Value); title != before.Title {
		patch.Title = &title
	}
	if desc := strings.TrimSpace(fields[fieldDescription].Value); desc != deref(before.Description) {
		patch.Description = &desc
	}
	if assignee := strings.TrimSpace(fields[fieldAssignee].Value); assignee != deref(before.AssignedTo) {
		patch.AssignedTo = &assignee
	}
	if labels := parseList(fields[fieldLabels].Value); !slices.Equal(labels, before.Labels) {
		patch.Labels = labels
	}
	if files := parseList(fields[fieldFiles].Value); !slices.Equal(files, before.Files) {
		patch.Files = files
	}
	return patch
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
