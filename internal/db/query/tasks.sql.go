package query

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const taskColumns = `id, title, description, column_id, position, created_by, assigned_to, parent_id,
	depends_on, files, labels, blocked_reason, version, created_at, updated_at,
	started_at, completed_at, archived, archived_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.ColumnID,
		&t.Position,
		&t.CreatedBy,
		&t.AssignedTo,
		&t.ParentID,
		&t.DependsOn,
		&t.Files,
		&t.Labels,
		&t.BlockedReason,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.StartedAt,
		&t.CompletedAt,
		&t.Archived,
		&t.ArchivedAt,
	)
	return t, err
}

func (q *Queries) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertTask = `
INSERT INTO tasks (
	id, title, description, column_id, position, created_by, assigned_to, parent_id,
	depends_on, files, labels, version, created_at, updated_at, archived
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
`

type InsertTaskParams struct {
	ID          string
	Title       string
	Description sql.NullString
	ColumnID    string
	Position    int64
	CreatedBy   string
	AssignedTo  sql.NullString
	ParentID    sql.NullString
	DependsOn   string
	Files       string
	Labels      string
	CreatedAt   time.Time
}

func (q *Queries) InsertTask(ctx context.Context, arg InsertTaskParams) error {
	_, err := q.db.ExecContext(ctx, q.rebind(insertTask),
		arg.ID,
		arg.Title,
		arg.Description,
		arg.ColumnID,
		arg.Position,
		arg.CreatedBy,
		arg.AssignedTo,
		arg.ParentID,
		arg.DependsOn,
		arg.Files,
		arg.Labels,
		arg.CreatedAt,
		arg.CreatedAt,
		false,
	)
	return err
}

const getTask = `
SELECT ` + taskColumns + `
FROM tasks
WHERE id = ?
`

func (q *Queries) GetTask(ctx context.Context, id string) (Task, error) {
	return scanTask(q.db.QueryRowContext(ctx, q.rebind(getTask), id))
}

// ListTaskIDsWithPrefix returns up to limit ids starting with prefix.
func (q *Queries) ListTaskIDsWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	return q.queryIDs(ctx, `SELECT id FROM tasks WHERE id LIKE ? ORDER BY id LIMIT ?`, prefix+"%", limit)
}

type ListTasksParams struct {
	ColumnID    string
	CreatedBy   string
	AssignedTo  string
	BlockedOnly bool
	Archived    *bool
}

// ListTasks ANDs every non-empty filter and orders by column, then position.
func (q *Queries) ListTasks(ctx context.Context, arg ListTasksParams) ([]Task, error) {
	var (
		where []string
		args  []any
	)
	if arg.ColumnID != "" {
		where = append(where, "column_id = ?")
		args = append(args, arg.ColumnID)
	}
	if arg.CreatedBy != "" {
		where = append(where, "created_by = ?")
		args = append(args, arg.CreatedBy)
	}
	if arg.AssignedTo != "" {
		where = append(where, "assigned_to = ?")
		args = append(args, arg.AssignedTo)
	}
	if arg.BlockedOnly {
		where = append(where, "blocked_reason IS NOT NULL")
	}
	if arg.Archived != nil {
		where = append(where, "archived = ?")
		args = append(args, *arg.Archived)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(taskColumns)
	b.WriteString(" FROM tasks")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY column_id, position, created_at, id")
	return q.queryTasks(ctx, b.String(), args...)
}

const nextPosition = `
SELECT COALESCE(MAX(position), -1) + 1
FROM tasks
WHERE column_id = ?
`

func (q *Queries) NextPosition(ctx context.Context, columnID string) (int64, error) {
	var pos int64
	err := q.db.QueryRowContext(ctx, q.rebind(nextPosition), columnID).Scan(&pos)
	return pos, err
}

// Archived rows still count toward a column's WIP total.
const countTasksInColumn = `
SELECT COUNT(*)
FROM tasks
WHERE column_id = ?
`

func (q *Queries) CountTasksInColumn(ctx context.Context, columnID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, q.rebind(countTasksInColumn), columnID).Scan(&n)
	return n, err
}

const moveTask = `
UPDATE tasks
SET column_id = ?,
	position = ?,
	version = version + 1,
	updated_at = ?,
	completed_at = COALESCE(?, completed_at),
	started_at = COALESCE(started_at, ?)
WHERE id = ?
`

type MoveTaskParams struct {
	ID       string
	ColumnID string
	Position int64
	At       time.Time
	// CompletedAt replaces completed_at when valid and leaves it alone otherwise.
	CompletedAt sql.NullTime
	// StartedAt fills started_at only when it is still NULL.
	StartedAt sql.NullTime
}

func (q *Queries) MoveTask(ctx context.Context, arg MoveTaskParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(moveTask),
		arg.ColumnID, arg.Position, arg.At, arg.CompletedAt, arg.StartedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateTaskParams sets only the non-nil fields. A nullable field given as an
// invalid sql.NullString is cleared.
type UpdateTaskParams struct {
	ID              string
	Title           *string
	Description     *sql.NullString
	AssignedTo      *sql.NullString
	Files           *string
	Labels          *string
	At              time.Time
	ExpectedVersion *int64
}

func (q *Queries) UpdateTask(ctx context.Context, arg UpdateTaskParams) (int64, error) {
	var (
		sets []string
		args []any
	)
	if arg.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *arg.Title)
	}
	if arg.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *arg.Description)
	}
	if arg.AssignedTo != nil {
		sets = append(sets, "assigned_to = ?")
		args = append(args, *arg.AssignedTo)
	}
	if arg.Files != nil {
		sets = append(sets, "files = ?")
		args = append(args, *arg.Files)
	}
	if arg.Labels != nil {
		sets = append(sets, "labels = ?")
		args = append(args, *arg.Labels)
	}
	sets = append(sets, "version = version + 1", "updated_at = ?")
	args = append(args, arg.At)

	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, arg.ID)
	if arg.ExpectedVersion != nil {
		query += " AND version = ?"
		args = append(args, *arg.ExpectedVersion)
	}

	res, err := q.db.ExecContext(ctx, q.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type SetBlockedReasonParams struct {
	ID              string
	Reason          sql.NullString
	At              time.Time
	ExpectedVersion *int64
}

func (q *Queries) SetBlockedReason(ctx context.Context, arg SetBlockedReasonParams) (int64, error) {
	query := "UPDATE tasks SET blocked_reason = ?, version = version + 1, updated_at = ? WHERE id = ?"
	args := []any{arg.Reason, arg.At, arg.ID}
	if arg.ExpectedVersion != nil {
		query += " AND version = ?"
		args = append(args, *arg.ExpectedVersion)
	}
	res, err := q.db.ExecContext(ctx, q.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type ListArchivableParams struct {
	ColumnID  string
	OlderThan *time.Time
	IDs       []string
}

// ListArchivableTaskIDs returns the active tasks matching every given criterion.
func (q *Queries) ListArchivableTaskIDs(ctx context.Context, arg ListArchivableParams) ([]string, error) {
	where := []string{"archived = ?"}
	args := []any{false}
	if arg.ColumnID != "" {
		where = append(where, "column_id = ?")
		args = append(args, arg.ColumnID)
	}
	if arg.OlderThan != nil {
		where = append(where, "created_at < ?")
		args = append(args, *arg.OlderThan)
	}
	if len(arg.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(arg.IDs))+")")
		for _, id := range arg.IDs {
			args = append(args, id)
		}
	}
	query := "SELECT id FROM tasks WHERE " + strings.Join(where, " AND ") + " ORDER BY column_id, position, id"
	return q.queryIDs(ctx, query, args...)
}

func (q *Queries) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ArchiveTasks marks ids archived without touching version or column.
func (q *Queries) ArchiveTasks(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{true, at, at}
	for _, id := range ids {
		args = append(args, id)
	}
	query := "UPDATE tasks SET archived = ?, archived_at = ?, updated_at = ? WHERE id IN (" + placeholders(len(ids)) + ")"
	res, err := q.db.ExecContext(ctx, q.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const restoreTask = `
UPDATE tasks
SET archived = ?,
	archived_at = NULL,
	column_id = ?,
	version = version + 1,
	updated_at = ?
WHERE id = ?
`

type RestoreTaskParams struct {
	ID       string
	ColumnID string
	At       time.Time
}

func (q *Queries) RestoreTask(ctx context.Context, arg RestoreTaskParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(restoreTask), false, arg.ColumnID, arg.At, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTask = `
DELETE FROM tasks
WHERE id = ?
`

func (q *Queries) DeleteTask(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(deleteTask), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
