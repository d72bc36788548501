// Package task implements the task lifecycle: creation, column moves with WIP
// admission, versioned updates, blocking, archival and restore.
//
// Every mutation runs in a single store transaction. Column metadata is read
// through the same transaction, so the engine holds no locks of its own.
package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
	"github.com/Joseda-hg/lazyboard/internal/board"
	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/db/query"
	"github.com/Joseda-hg/lazyboard/internal/ids"
	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/notify"
	"github.com/Joseda-hg/lazyboard/internal/validate"
)

const (
	DefaultColumn           = "todo"
	DefaultAgent            = "user"
	DefaultInProgressColumn = "in_progress"
	DefaultSimilarity       = 0.5
	DefaultRejectSimilarity = 0.8
)

type Engine struct {
	store   *db.DB
	queries *query.Queries
	dir     *board.Directory

	defaultColumn    string
	defaultAgent     string
	inProgressColumn string
	similarity       float64
	rejectSimilarity float64

	newID     func() string
	now       func() time.Time
	publisher notify.Publisher
	log       *logrus.Entry
}

type Option func(*Engine)

func WithDefaults(column, agent string) Option {
	return func(e *Engine) {
		if column != "" {
			e.defaultColumn = column
		}
		if agent != "" {
			e.defaultAgent = agent
		}
	}
}

// WithInProgressColumn names the column whose first entry stamps startedAt.
func WithInProgressColumn(id string) Option {
	return func(e *Engine) { e.inProgressColumn = id }
}

func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

func WithPublisher(p notify.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithSimilarity sets the thresholds used by AddTaskChecked. Zero keeps the default.
func WithSimilarity(threshold, reject float64) Option {
	return func(e *Engine) {
		if threshold > 0 {
			e.similarity = threshold
		}
		if reject > 0 {
			e.rejectSimilarity = reject
		}
	}
}

func New(store *db.DB, dir *board.Directory, opts ...Option) *Engine {
	e := &Engine{
		store:            store,
		queries:          query.New(store.DB, store.Dialect),
		dir:              dir,
		defaultColumn:    DefaultColumn,
		defaultAgent:     DefaultAgent,
		inProgressColumn: DefaultInProgressColumn,
		similarity:       DefaultSimilarity,
		rejectSimilarity: DefaultRejectSimilarity,
		newID:            ids.New,
		now:              time.Now,
		publisher:        notify.Nop{},
		log:              logrus.WithField("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Directory returns the board directory the engine reads columns from.
func (e *Engine) Directory() *board.Directory {
	return e.dir
}

func (e *Engine) DefaultAgent() string {
	return e.defaultAgent
}

type actorKey struct{}

// ContextWithActor records who is acting for operations that take no explicit agent.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func (e *Engine) actor(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return e.defaultAgent
}

// txScope bundles the queries and directory bound to one transaction.
type txScope struct {
	q   *query.Queries
	dir *board.Directory
}

func (e *Engine) inTx(ctx context.Context, fn func(ctx context.Context, s txScope) error) error {
	return e.store.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, txScope{q: e.queries.WithTx(tx), dir: e.dir.WithTx(tx)})
	})
}

func (e *Engine) timestamp() time.Time {
	return e.now().UTC()
}

// fail logs err at a level matching its kind and returns it unchanged.
func (e *Engine) fail(op string, err error, fields logrus.Fields) error {
	entry := e.log.WithFields(fields).WithField("op", op)
	if apperr.KindOf(err) == apperr.KindInternal {
		entry.WithError(err).Error("store operation failed")
	} else {
		entry.WithField("reason", apperr.Message(err)).Debug("request rejected")
	}
	return err
}

func (e *Engine) publish(ctx context.Context, eventType string, task model.Task, actor string) {
	ev := notify.Event{
		Type:     eventType,
		TaskID:   task.ID,
		ColumnID: task.ColumnID,
		Version:  task.Version,
		Actor:    actor,
		At:       e.timestamp(),
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.log.WithError(err).WithField("task_id", task.ID).Warn("unable to publish change event")
	}
}

func taskNotFound(id string) error {
	return apperr.NotFound("Task '%s' not found", id)
}

func columnNotFound(id string) error {
	return apperr.NotFound("Column '%s' does not exist", id)
}

// loadTask reads id inside the scope, returning a NotFound error when absent.
func loadTask(ctx context.Context, q *query.Queries, id string) (model.Task, error) {
	row, err := q.GetTask(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, taskNotFound(id)
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task %s: %w", id, db.MapError(err))
	}
	return mapTask(row)
}

func (e *Engine) recordHistory(ctx context.Context, q *query.Queries, taskID, eventType, actor, details string) error {
	if err := q.InsertHistory(ctx, query.InsertHistoryParams{
		TaskID:    taskID,
		EventType: eventType,
		Actor:     actor,
		Details:   details,
		CreatedAt: e.timestamp(),
	}); err != nil {
		return fmt.Errorf("record %s history: %w", eventType, db.MapError(err))
	}
	return nil
}

// AddTask validates input and appends a new task to the end of its column.
func (e *Engine) AddTask(ctx context.Context, in model.AddTaskInput) (model.Task, error) {
	fields := logrus.Fields{"column_id": in.ColumnID}

	title, err := validate.Title(in.Title)
	if err != nil {
		return model.Task{}, e.fail("add", err, fields)
	}

	columnID := in.ColumnID
	if columnID == "" {
		columnID = e.defaultColumn
	}
	fields["column_id"] = columnID
	if _, err := validate.ColumnID(columnID); err != nil {
		return model.Task{}, e.fail("add", err, fields)
	}

	agent := in.Agent
	if agent == "" {
		agent = e.defaultAgent
	}
	if _, err := validate.AgentName(agent); err != nil {
		return model.Task{}, e.fail("add", err, fields)
	}

	var parentID *string
	if in.ParentID != nil && *in.ParentID != "" {
		if _, err := validate.TaskID(*in.ParentID); err != nil {
			return model.Task{}, e.fail("add", err, fields)
		}
		parentID = in.ParentID
	}

	dependsOn, err := encodeList(validate.StringList(in.DependsOn))
	if err != nil {
		return model.Task{}, e.fail("add", err, fields)
	}
	files, err := encodeList(validate.StringList(in.Files))
	if err != nil {
		return model.Task{}, e.fail("add", err, fields)
	}
	labels, err := encodeList(validate.StringList(in.Labels))
	if err != nil {
		return model.Task{}, e.fail("add", err, fields)
	}

	id := e.newID()
	var created model.Task
	err = e.inTx(ctx, func(ctx context.Context, s txScope) error {
		column, err := s.dir.GetColumn(ctx, columnID)
		if err != nil {
			return err
		}
		if column == nil {
			return columnNotFound(columnID)
		}

		position, err := s.q.NextPosition(ctx, columnID)
		if err != nil {
			return fmt.Errorf("next position: %w", db.MapError(err))
		}

		if err := s.q.InsertTask(ctx, query.InsertTaskParams{
			ID:          id,
			Title:       title,
			Description: toNullString(in.Description),
			ColumnID:    columnID,
			Position:    position,
			CreatedBy:   agent,
			ParentID:    toNullString(parentID),
			DependsOn:   dependsOn,
			Files:       files,
			Labels:      labels,
			CreatedAt:   e.timestamp(),
		}); err != nil {
			return fmt.Errorf("insert task: %w", db.MapError(err))
		}

		created, err = loadTask(ctx, s.q, id)
		if err != nil {
			return err
		}
		return e.recordHistory(ctx, s.q, id, model.EventCreated, agent, formatCreatedDetails(created))
	})
	if err != nil {
		return model.Task{}, e.fail("add", err, fields)
	}

	e.log.WithFields(logrus.Fields{"task_id": created.ID, "column_id": created.ColumnID, "version": created.Version}).Info("task created")
	e.publish(ctx, model.EventCreated, created, agent)
	return created, nil
}

// GetTask returns nil, nil when no task has the given id.
func (e *Engine) GetTask(ctx context.Context, id string) (*model.Task, error) {
	row, err := e.queries.GetTask(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, e.fail("get", fmt.Errorf("get task %s: %w", id, db.MapError(err)), logrus.Fields{"task_id": id})
	}
	task, err := mapTask(row)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks returns the tasks matching every set filter, ordered by column then position.
func (e *Engine) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	rows, err := e.queries.ListTasks(ctx, query.ListTasksParams{
		ColumnID:    filter.ColumnID,
		CreatedBy:   filter.Agent,
		AssignedTo:  filter.Assignee,
		BlockedOnly: filter.Blocked,
		Archived:    filter.Archived,
	})
	if err != nil {
		return nil, e.fail("list", fmt.Errorf("list tasks: %w", db.MapError(err)), nil)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		task, err := mapTask(row)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// FindByPrefix returns up to limit task ids that start with prefix.
func (e *Engine) FindByPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	found, err := e.queries.ListTaskIDsWithPrefix(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("find task ids: %w", db.MapError(err))
	}
	return found, nil
}

// DeleteTask removes a task and its history. Other tasks' dependsOn lists are left alone.
func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	var deleted model.Task
	err := e.inTx(ctx, func(ctx context.Context, s txScope) error {
		var err error
		if deleted, err = loadTask(ctx, s.q, id); err != nil {
			return err
		}
		n, err := s.q.DeleteTask(ctx, id)
		if err != nil {
			return fmt.Errorf("delete task: %w", db.MapError(err))
		}
		if n == 0 {
			return taskNotFound(id)
		}
		return nil
	})
	if err != nil {
		return e.fail("delete", err, logrus.Fields{"task_id": id})
	}

	actor := e.actor(ctx)
	e.log.WithFields(logrus.Fields{"task_id": id, "column_id": deleted.ColumnID}).Info("task deleted")
	e.publish(ctx, model.EventDeleted, deleted, actor)
	return nil
}

// History returns the task's history, newest first.
func (e *Engine) History(ctx context.Context, id string) ([]model.HistoryEntry, error) {
	if _, err := loadTask(ctx, e.queries, id); err != nil {
		return nil, e.fail("history", err, logrus.Fields{"task_id": id})
	}
	rows, err := e.queries.ListHistory(ctx, id)
	if err != nil {
		return nil, e.fail("history", fmt.Errorf("list history: %w", db.MapError(err)), logrus.Fields{"task_id": id})
	}
	entries := make([]model.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, mapHistory(row))
	}
	return entries, nil
}
