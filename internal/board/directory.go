// Package board answers questions about the board and its columns.
package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
	"github.com/Joseda-hg/lazyboard/internal/config"
	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/db/query"
	"github.com/Joseda-hg/lazyboard/internal/ids"
	"github.com/Joseda-hg/lazyboard/internal/model"
)

// Directory reads column metadata. Column lists are re-queried on every call.
type Directory struct {
	store   *db.DB
	queries *query.Queries
	conn    db.DBTX
	log     *logrus.Entry
	now     func() time.Time
}

func New(store *db.DB) *Directory {
	return &Directory{
		store:   store,
		queries: query.New(store.DB, store.Dialect),
		conn:    store.DB,
		log:     logrus.WithField("component", "board"),
		now:     time.Now,
	}
}

// WithTx returns a Directory bound to tx, for use inside an open transaction.
func (d *Directory) WithTx(tx db.DBTX) *Directory {
	return &Directory{
		store:   d.store,
		queries: query.New(tx, d.store.Dialect),
		conn:    tx,
		log:     d.log,
		now:     d.now,
	}
}

func (d *Directory) SetLogger(log *logrus.Entry) {
	d.log = log
}

func (d *Directory) GetColumns(ctx context.Context) ([]model.Column, error) {
	rows, err := d.queries.ListColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", db.MapError(err))
	}
	columns := make([]model.Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, mapColumn(row))
	}
	return columns, nil
}

// GetColumn returns nil, nil when no column has the given id.
func (d *Directory) GetColumn(ctx context.Context, id string) (*model.Column, error) {
	row, err := d.queries.GetColumn(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get column %s: %w", id, db.MapError(err))
	}
	col := mapColumn(row)
	return &col, nil
}

// GetTerminalColumn returns the first terminal column by position, or nil.
func (d *Directory) GetTerminalColumn(ctx context.Context) (*model.Column, error) {
	columns, err := d.GetColumns(ctx)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		if columns[i].IsTerminal {
			return &columns[i], nil
		}
	}
	return nil, nil
}

func (d *Directory) GetBoard(ctx context.Context) (*model.Board, error) {
	row, err := d.queries.GetBoard(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get board: %w", db.MapError(err))
	}
	return &model.Board{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}

// InitializeBoard writes the board row and its columns in one transaction.
// Calling it on an initialised store fails with db.ErrDuplicate.
func (d *Directory) InitializeBoard(ctx context.Context, cfg config.BoardConfig) (model.Board, error) {
	board := model.Board{ID: ids.New(), Name: cfg.Name, CreatedAt: d.now().UTC()}
	board.UpdatedAt = board.CreatedAt

	seed := func(ctx context.Context, q *query.Queries) error {
		if err := q.InsertBoard(ctx, query.InsertBoardParams{ID: board.ID, Name: board.Name, CreatedAt: board.CreatedAt}); err != nil {
			return fmt.Errorf("insert board: %w", db.MapError(err))
		}
		for i, col := range cfg.Columns {
			var limit sql.NullInt64
			if col.WIPLimit != nil {
				limit = sql.NullInt64{Int64: int64(*col.WIPLimit), Valid: true}
			}
			if err := q.InsertColumn(ctx, query.InsertColumnParams{
				ID:         col.ID,
				BoardID:    board.ID,
				Name:       col.Name,
				Position:   int64(i),
				WipLimit:   limit,
				IsTerminal: col.IsTerminal,
			}); err != nil {
				return fmt.Errorf("insert column %s: %w", col.ID, db.MapError(err))
			}
		}
		return nil
	}

	if tx, ok := d.conn.(*sql.Tx); ok {
		if err := seed(ctx, d.queries.WithTx(tx)); err != nil {
			return model.Board{}, err
		}
	} else if err := d.store.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return seed(ctx, d.queries.WithTx(tx))
	}); err != nil {
		return model.Board{}, err
	}

	d.log.WithField("board_id", board.ID).WithField("columns", len(cfg.Columns)).Info("board initialised")
	return board, nil
}

// NextColumn returns the column after id, or nil when id is the last one.
func (d *Directory) NextColumn(ctx context.Context, id string) (*model.Column, error) {
	return d.neighbour(ctx, id, 1)
}

// PrevColumn returns the column before id, or nil when id is the first one.
func (d *Directory) PrevColumn(ctx context.Context, id string) (*model.Column, error) {
	return d.neighbour(ctx, id, -1)
}

func (d *Directory) neighbour(ctx context.Context, id string, step int) (*model.Column, error) {
	columns, err := d.GetColumns(ctx)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		if columns[i].ID != id {
			continue
		}
		j := i + step
		if j < 0 || j >= len(columns) {
			return nil, nil
		}
		return &columns[j], nil
	}
	return nil, apperr.NotFound("Column '%s' does not exist", id)
}

func mapColumn(row query.Column) model.Column {
	col := model.Column{
		ID:         row.ID,
		Name:       row.Name,
		Position:   int(row.Position),
		IsTerminal: row.IsTerminal,
	}
	if row.WipLimit.Valid {
		limit := int(row.WipLimit.Int64)
		col.WIPLimit = &limit
	}
	return col
}
