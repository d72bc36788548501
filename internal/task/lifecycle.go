package task

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/db/query"
	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/validate"
)

// MoveTask places a task at the end of columnID. A column with a WIP limit
// refuses the move once it holds that many tasks, unless opts.Force is set.
// Moves carry no version check.
func (e *Engine) MoveTask(ctx context.Context, id, columnID string, opts model.MoveOptions) (model.Task, error) {
	actor := opts.Actor
	if actor == "" {
		actor = e.actor(ctx)
	}
	fields := logrus.Fields{"task_id": id, "column_id": columnID}

	var (
		moved model.Task
		from  string
	)
	err := e.inTx(ctx, func(ctx context.Context, s txScope) error {
		current, err := loadTask(ctx, s.q, id)
		if err != nil {
			return err
		}
		from = current.ColumnID

		if _, err := validate.ColumnID(columnID); err != nil {
			return err
		}
		column, err := s.dir.GetColumn(ctx, columnID)
		if err != nil {
			return err
		}
		if column == nil {
			return columnNotFound(columnID)
		}

		if column.WIPLimit != nil && !opts.Force {
			count, err := s.q.CountTasksInColumn(ctx, columnID)
			if err != nil {
				return fmt.Errorf("count tasks in %s: %w", columnID, db.MapError(err))
			}
			if count >= int64(*column.WIPLimit) {
				return apperr.Conflict("Column '%s' at WIP limit (%d/%d). Move a task out first.", column.Name, count, *column.WIPLimit)
			}
		}

		position, err := s.q.NextPosition(ctx, columnID)
		if err != nil {
			return fmt.Errorf("next position: %w", db.MapError(err))
		}

		now := e.timestamp()
		params := query.MoveTaskParams{ID: id, ColumnID: columnID, Position: position, At: now}
		if column.IsTerminal {
			params.CompletedAt = sql.NullTime{Time: now, Valid: true}
		}
		if columnID == e.inProgressColumn {
			params.StartedAt = sql.NullTime{Time: now, Valid: true}
		}
		n, err := s.q.MoveTask(ctx, params)
		if err != nil {
			return fmt.Errorf("move task: %w", db.MapError(err))
		}
		if n == 0 {
			return taskNotFound(id)
		}

		if moved, err = loadTask(ctx, s.q, id); err != nil {
			return err
		}
		return e.recordHistory(ctx, s.q, id, model.EventMoved, actor, formatMovedDetails(from, columnID, opts.Force))
	})
	if err != nil {
		return model.Task{}, e.fail("move", err, fields)
	}

	e.log.WithFields(logrus.Fields{
		"task_id":   moved.ID,
		"from":      from,
		"column_id": moved.ColumnID,
		"version":   moved.Version,
		"forced":    opts.Force,
	}).Info("task moved")
	e.publish(ctx, model.EventMoved, moved, actor)
	return moved, nil
}

// UpdateTask applies patch in one conditional statement. With expectedVersion
// set, a stale version is rejected with a Conflict and nothing is written.
func (e *Engine) UpdateTask(ctx context.Context, id string, patch model.TaskPatch, expectedVersion *int64) (model.Task, error) {
	actor := e.actor(ctx)
	fields := logrus.Fields{"task_id": id}

	var before, after model.Task
	err := e.inTx(ctx, func(ctx context.Context, s txScope) error {
		var err error
		if before, err = loadTask(ctx, s.q, id); err != nil {
			return err
		}

		params, err := buildUpdateParams(id, patch)
		if err != nil {
			return err
		}
		params.At = e.timestamp()
		params.ExpectedVersion = expectedVersion

		n, err := s.q.UpdateTask(ctx, params)
		if err != nil {
			return fmt.Errorf("update task: %w", db.MapError(err))
		}
		if n == 0 {
			return staleOrMissing(ctx, s.q, id)
		}

		if after, err = loadTask(ctx, s.q, id); err != nil {
			return err
		}
		return e.recordHistory(ctx, s.q, id, model.EventUpdated, actor, formatTaskDiff(before, after))
	})
	if err != nil {
		return model.Task{}, e.fail("update", err, fields)
	}

	e.log.WithFields(logrus.Fields{"task_id": after.ID, "column_id": after.ColumnID, "version": after.Version}).Info("task updated")
	e.publish(ctx, model.EventUpdated, after, actor)
	return after, nil
}

func buildUpdateParams(id string, patch model.TaskPatch) (query.UpdateTaskParams, error) {
	params := query.UpdateTaskParams{ID: id}

	if patch.Title != nil {
		title, err := validate.Title(*patch.Title)
		if err != nil {
			return params, err
		}
		params.Title = &title
	}
	if patch.Description != nil {
		desc := clearable(*patch.Description)
		params.Description = &desc
	}
	if patch.AssignedTo != nil {
		assignee := clearable(*patch.AssignedTo)
		if assignee.Valid {
			if _, err := validate.AgentName(assignee.String); err != nil {
				return params, err
			}
		}
		params.AssignedTo = &assignee
	}
	if patch.Files != nil {
		files, err := encodeList(validate.StringList(patch.Files))
		if err != nil {
			return params, err
		}
		params.Files = &files
	}
	if patch.Labels != nil {
		labels, err := encodeList(validate.StringList(patch.Labels))
		if err != nil {
			return params, err
		}
		params.Labels = &labels
	}
	return params, nil
}

// clearable maps a blank value to NULL.
func clearable(v string) sql.NullString {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: trimmed, Valid: true}
}

// staleOrMissing explains why a conditional update touched no rows.
func staleOrMissing(ctx context.Context, q *query.Queries, id string) error {
	current, err := loadTask(ctx, q, id)
	if err != nil {
		return err
	}
	return apperr.Conflict("Task modified by another agent, re-read required. Current version: %d", current.Version)
}

// SetBlocked sets or, when reason is nil or blank, clears the blocked reason.
func (e *Engine) SetBlocked(ctx context.Context, id string, reason *string, expectedVersion *int64) (model.Task, error) {
	actor := e.actor(ctx)
	value := sql.NullString{}
	if reason != nil {
		value = clearable(*reason)
	}
	eventType := model.EventUnblocked
	if value.Valid {
		eventType = model.EventBlocked
	}

	var updated model.Task
	err := e.inTx(ctx, func(ctx context.Context, s txScope) error {
		if _, err := loadTask(ctx, s.q, id); err != nil {
			return err
		}
		n, err := s.q.SetBlockedReason(ctx, query.SetBlockedReasonParams{
			ID:              id,
			Reason:          value,
			At:              e.timestamp(),
			ExpectedVersion: expectedVersion,
		})
		if err != nil {
			return fmt.Errorf("set blocked reason: %w", db.MapError(err))
		}
		if n == 0 {
			return staleOrMissing(ctx, s.q, id)
		}
		if updated, err = loadTask(ctx, s.q, id); err != nil {
			return err
		}
		details := eventType
		if value.Valid {
			details = fmt.Sprintf("blocked: %s", value.String)
		}
		return e.recordHistory(ctx, s.q, id, eventType, actor, details)
	})
	if err != nil {
		return model.Task{}, e.fail(eventType, err, logrus.Fields{"task_id": id})
	}

	e.log.WithFields(logrus.Fields{"task_id": updated.ID, "version": updated.Version}).Info("task " + eventType)
	e.publish(ctx, eventType, updated, actor)
	return updated, nil
}

// ArchiveTasks archives every active task matching all given criteria.
// Archival leaves version and column untouched.
func (e *Engine) ArchiveTasks(ctx context.Context, criteria model.ArchiveCriteria) (model.ArchiveResult, error) {
	if criteria.Empty() {
		return model.ArchiveResult{}, e.fail("archive", apperr.Validation("At least one criteria must be provided"), nil)
	}
	ids := validate.StringList(criteria.TaskIDs)
	if len(criteria.TaskIDs) > 0 && len(ids) == 0 {
		return model.ArchiveResult{}, e.fail("archive", apperr.Validation("Task IDs cannot be blank"), nil)
	}
	var olderThan *time.Time
	if criteria.OlderThan != nil {
		cutoff := criteria.OlderThan.UTC()
		olderThan = &cutoff
	}
	actor := e.actor(ctx)

	result := model.ArchiveResult{TaskIDs: []string{}}
	var archived []model.Task
	err := e.inTx(ctx, func(ctx context.Context, s txScope) error {
		matched, err := s.q.ListArchivableTaskIDs(ctx, query.ListArchivableParams{
			ColumnID:  criteria.Status,
			OlderThan: olderThan,
			IDs:       ids,
		})
		if err != nil {
			return fmt.Errorf("select archivable tasks: %w", db.MapError(err))
		}
		if len(matched) == 0 {
			return nil
		}

		if _, err := s.q.ArchiveTasks(ctx, matched, e.timestamp()); err != nil {
			return fmt.Errorf("archive tasks: %w", db.MapError(err))
		}
		for _, id := range matched {
			if err := e.recordHistory(ctx, s.q, id, model.EventArchived, actor, "archived"); err != nil {
				return err
			}
			task, err := loadTask(ctx, s.q, id)
			if err != nil {
				return err
			}
			archived = append(archived, task)
		}
		result.TaskIDs = matched
		result.ArchivedCount = len(matched)
		return nil
	})
	if err != nil {
		return model.ArchiveResult{}, e.fail("archive", err, nil)
	}

	e.log.WithField("count", result.ArchivedCount).Info("tasks archived")
	for _, task := range archived {
		e.publish(ctx, model.EventArchived, task, actor)
	}
	return result, nil
}

// RestoreTask reactivates an archived task in targetColumnID, or in its
// previous column when targetColumnID is empty. WIP limits are not checked.
func (e *Engine) RestoreTask(ctx context.Context, id, targetColumnID string) (model.Task, error) {
	actor := e.actor(ctx)
	fields := logrus.Fields{"task_id": id, "column_id": targetColumnID}

	var restored model.Task
	err := e.inTx(ctx, func(ctx context.Context, s txScope) error {
		current, err := loadTask(ctx, s.q, id)
		if err != nil {
			return err
		}
		if !current.Archived {
			return apperr.Validation("Task '%s' is not archived", id)
		}

		columnID := current.ColumnID
		if targetColumnID != "" {
			if _, err := validate.ColumnID(targetColumnID); err != nil {
				return err
			}
			column, err := s.dir.GetColumn(ctx, targetColumnID)
			if err != nil {
				return err
			}
			if column == nil {
				return columnNotFound(targetColumnID)
			}
			columnID = targetColumnID
		}

		if _, err := s.q.RestoreTask(ctx, query.RestoreTaskParams{ID: id, ColumnID: columnID, At: e.timestamp()}); err != nil {
			return fmt.Errorf("restore task: %w", db.MapError(err))
		}
		if restored, err = loadTask(ctx, s.q, id); err != nil {
			return err
		}
		return e.recordHistory(ctx, s.q, id, model.EventRestored, actor, fmt.Sprintf("restored to %s", columnID))
	})
	if err != nil {
		return model.Task{}, e.fail("restore", err, fields)
	}

	e.log.WithFields(logrus.Fields{"task_id": restored.ID, "column_id": restored.ColumnID, "version": restored.Version}).Info("task restored")
	e.publish(ctx, model.EventRestored, restored, actor)
	return restored, nil
}
