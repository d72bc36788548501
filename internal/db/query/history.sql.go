package query

import (
	"context"
	"time"
)

const insertHistory = `
INSERT INTO task_history (task_id, event_type, actor, details, created_at)
VALUES (?, ?, ?, ?, ?)
`

type InsertHistoryParams struct {
	TaskID    string
	EventType string
	Actor     string
	Details   string
	CreatedAt time.Time
}

func (q *Queries) InsertHistory(ctx context.Context, arg InsertHistoryParams) error {
	_, err := q.db.ExecContext(ctx, q.rebind(insertHistory),
		arg.TaskID, arg.EventType, arg.Actor, arg.Details, arg.CreatedAt)
	return err
}

const listHistory = `
SELECT id, task_id, event_type, actor, details, created_at
FROM task_history
WHERE task_id = ?
ORDER BY id DESC
`

func (q *Queries) ListHistory(ctx context.Context, taskID string) ([]TaskHistory, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(listHistory), taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TaskHistory
	for rows.Next() {
		var h TaskHistory
		if err := rows.Scan(&h.ID, &h.TaskID, &h.EventType, &h.Actor, &h.Details, &h.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
