package query

import (
	"database/sql"
	"time"
)

type Board struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Column struct {
	ID         string
	BoardID    string
	Name       string
	Position   int64
	WipLimit   sql.NullInt64
	IsTerminal bool
}

// Task mirrors a tasks row. List columns hold JSON arrays.
type Task struct {
	ID            string
	Title         string
	Description   sql.NullString
	ColumnID      string
	Position      int64
	CreatedBy     string
	AssignedTo    sql.NullString
	ParentID      sql.NullString
	DependsOn     string
	Files         string
	Labels        string
	BlockedReason sql.NullString
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     sql.NullTime
	CompletedAt   sql.NullTime
	Archived      bool
	ArchivedAt    sql.NullTime
}

type TaskHistory struct {
	ID        int64
	TaskID    string
	EventType string
	Actor     string
	Details   string
	CreatedAt time.Time
}
