package query

import (
	"context"
	"database/sql"
	"time"
)

const insertBoard = `
INSERT INTO boards (id, name, created_at, updated_at)
VALUES (?, ?, ?, ?)
`

type InsertBoardParams struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

func (q *Queries) InsertBoard(ctx context.Context, arg InsertBoardParams) error {
	_, err := q.db.ExecContext(ctx, q.rebind(insertBoard), arg.ID, arg.Name, arg.CreatedAt, arg.CreatedAt)
	return err
}

const getBoard = `
SELECT id, name, created_at, updated_at
FROM boards
ORDER BY created_at
LIMIT 1
`

func (q *Queries) GetBoard(ctx context.Context) (Board, error) {
	var b Board
	err := q.db.QueryRowContext(ctx, getBoard).Scan(&b.ID, &b.Name, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

const insertColumn = `
INSERT INTO columns (id, board_id, name, position, wip_limit, is_terminal)
VALUES (?, ?, ?, ?, ?, ?)
`

type InsertColumnParams struct {
	ID         string
	BoardID    string
	Name       string
	Position   int64
	WipLimit   sql.NullInt64
	IsTerminal bool
}

func (q *Queries) InsertColumn(ctx context.Context, arg InsertColumnParams) error {
	_, err := q.db.ExecContext(ctx, q.rebind(insertColumn),
		arg.ID, arg.BoardID, arg.Name, arg.Position, arg.WipLimit, arg.IsTerminal)
	return err
}

const columnColumns = `id, board_id, name, position, wip_limit, is_terminal`

const listColumns = `
SELECT ` + columnColumns + `
FROM columns
ORDER BY position, id
`

func (q *Queries) ListColumns(ctx context.Context) ([]Column, error) {
	rows, err := q.db.QueryContext(ctx, listColumns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.ID, &c.BoardID, &c.Name, &c.Position, &c.WipLimit, &c.IsTerminal); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getColumn = `
SELECT ` + columnColumns + `
FROM columns
WHERE id = ?
`

func (q *Queries) GetColumn(ctx context.Context, id string) (Column, error) {
	var c Column
	err := q.db.QueryRowContext(ctx, q.rebind(getColumn), id).
		Scan(&c.ID, &c.BoardID, &c.Name, &c.Position, &c.WipLimit, &c.IsTerminal)
	return c, err
}
