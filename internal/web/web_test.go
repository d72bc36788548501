package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazyboard/internal/board"
	"github.com/Joseda-hg/lazyboard/internal/config"
	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/task"
)

type testServer struct {
	engine  *task.Engine
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	store, err := db.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	dir := board.New(store)
	_, err = dir.InitializeBoard(ctx, cfg.Board)
	require.NoError(t, err)

	engine := task.New(store, dir,
		task.WithDefaults(cfg.Defaults.Column, cfg.Defaults.Agent),
		task.WithInProgressColumn(cfg.Workflow.InProgressColumn),
		task.WithSimilarity(cfg.Workflow.SimilarityThreshold, cfg.Workflow.RejectThreshold),
	)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &testServer{
		engine:  engine,
		handler: NewServer(engine, logrus.NewEntry(log)).Handler(),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) add(t *testing.T, title, column string) model.Task {
	t.Helper()
	created, err := s.engine.AddTask(context.Background(), model.AddTaskInput{Title: title, ColumnID: column})
	require.NoError(t, err)
	return created
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, kind string) errorDetail {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	assert.Equal(t, kind, body.Error.Kind)
	return body.Error
}

func TestListColumns(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/columns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	columns := decode[[]model.Column](t, rec)
	require.Len(t, columns, 5)
	assert.Equal(t, "backlog", columns[0].ID)
	require.NotNil(t, columns[2].WIPLimit)
	assert.Equal(t, 3, *columns[2].WIPLimit)
	assert.True(t, columns[4].IsTerminal)
}

func TestCreateTask(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/tasks", map[string]any{
		"title":  "Write release notes",
		"labels": []string{"docs"},
	}, AgentHeader, "claude")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	result := decode[model.CheckedAddResult](t, rec)
	require.NotNil(t, result.Task)
	assert.Equal(t, "Write release notes", result.Task.Title)
	assert.Equal(t, "todo", result.Task.ColumnID)
	assert.Equal(t, "claude", result.Task.CreatedBy)
	assert.Equal(t, []string{"docs"}, result.Task.Labels)

	history, err := s.engine.History(context.Background(), result.Task.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "claude", history[0].Actor)
}

func TestCreateTaskRejectsSimilar(t *testing.T) {
	s := newTestServer(t)
	s.add(t, "Fix login redirect bug", "todo")

	rec := s.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "Fix login redirect bug"})
	detail := assertError(t, rec, http.StatusConflict, "conflict")
	assert.Contains(t, detail.Message, "Similar task already exists")

	var body struct {
		SimilarTasks []model.SimilarTask `json:"similarTasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.SimilarTasks, 1)

	rec = s.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "Fix login redirect bug", "force": true})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "blank title", body: map[string]any{"title": "   "}, want: "Title cannot be empty"},
		{name: "unknown column", body: map[string]any{"title": "Ok", "column": "Bad Column"}, want: "Invalid column ID"},
		{name: "unknown field", body: map[string]any{"title": "Ok", "priority": 1}, want: "Invalid request body"},
		{name: "malformed", body: "{", want: "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/tasks", tt.body)
			detail := assertError(t, rec, http.StatusBadRequest, "validation")
			assert.Contains(t, detail.Message, tt.want)
		})
	}
}

func TestInvalidAgentHeader(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/tasks", nil, AgentHeader, "not valid!")
	detail := assertError(t, rec, http.StatusBadRequest, "validation")
	assert.Contains(t, detail.Message, "Invalid agent name")
}

func TestListTasksFilters(t *testing.T) {
	s := newTestServer(t)
	first := s.add(t, "Parse config", "todo")
	s.add(t, "Review schema", "review")
	archived := s.add(t, "Old spike", "done")
	_, err := s.engine.ArchiveTasks(context.Background(), model.ArchiveCriteria{TaskIDs: []string{archived.ID}})
	require.NoError(t, err)
	reason := "waiting on review"
	_, err = s.engine.SetBlocked(context.Background(), first.ID, &reason, nil)
	require.NoError(t, err)

	tests := []struct {
		query string
		want  int
	}{
		{query: "", want: 2},
		{query: "?column=todo", want: 1},
		{query: "?blocked=true", want: 1},
		{query: "?archived=true", want: 1},
		{query: "?archived=all", want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/tasks"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, decode[[]model.Task](t, rec), tt.want)
		})
	}

	rec := s.do(t, http.MethodGet, "/api/tasks?archived=maybe", nil)
	assertError(t, rec, http.StatusBadRequest, "validation")
}

func TestGetTask(t *testing.T) {
	s := newTestServer(t)
	created := s.add(t, "Document API", "todo")

	rec := s.do(t, http.MethodGet, "/api/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[taskDetail](t, rec)
	assert.Equal(t, created.ID, detail.Task.ID)
	require.Len(t, detail.History, 1)
	assert.Equal(t, model.EventCreated, detail.History[0].EventType)

	missing := "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	rec = s.do(t, http.MethodGet, "/api/tasks/"+missing, nil)
	detailErr := assertError(t, rec, http.StatusNotFound, "not_found")
	assert.Equal(t, "Task '"+missing+"' not found", detailErr.Message)

	rec = s.do(t, http.MethodGet, "/api/tasks/nope", nil)
	assertError(t, rec, http.StatusBadRequest, "validation")
}

func TestUpdateTask(t *testing.T) {
	s := newTestServer(t)
	created := s.add(t, "Draft", "todo")

	rec := s.do(t, http.MethodPatch, "/api/tasks/"+created.ID, map[string]any{
		"title":           "Final",
		"assignedTo":      "alice",
		"expectedVersion": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.Task](t, rec)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, int64(2), updated.Version)

	rec = s.do(t, http.MethodPatch, "/api/tasks/"+created.ID, map[string]any{"title": "Stale", "expectedVersion": 1})
	detail := assertError(t, rec, http.StatusConflict, "conflict")
	assert.Contains(t, detail.Message, "Current version: 2")

	rec = s.do(t, http.MethodPatch, "/api/tasks/"+created.ID, map[string]any{"expectedVersion": 0})
	assertError(t, rec, http.StatusBadRequest, "validation")
}

func TestMoveTask(t *testing.T) {
	s := newTestServer(t)
	created := s.add(t, "Build pipeline", "todo")

	rec := s.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/move", map[string]any{"next": true}, AgentHeader, "bot")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decode[model.Task](t, rec)
	assert.Equal(t, "in_progress", moved.ColumnID)
	assert.NotNil(t, moved.StartedAt)

	rec = s.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/move", map[string]any{"column": "done"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[model.Task](t, rec).CompletedAt)

	rec = s.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/move", map[string]any{"next": true})
	assertError(t, rec, http.StatusBadRequest, "validation")

	rec = s.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/move", map[string]any{})
	detail := assertError(t, rec, http.StatusBadRequest, "validation")
	assert.Equal(t, "Field 'column' is required", detail.Message)

	rec = s.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/move", map[string]any{"column": "nowhere"})
	assertError(t, rec, http.StatusNotFound, "not_found")

	history, err := s.engine.History(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "bot", history[1].Actor)
}

func TestMoveTaskWIPLimit(t *testing.T) {
	s := newTestServer(t)
	for _, title := range []string{"First slot", "Second slot", "Third slot"} {
		s.add(t, title, "in_progress")
	}
	waiting := s.add(t, "Waiting work", "todo")

	rec := s.do(t, http.MethodPost, "/api/tasks/"+waiting.ID+"/move", map[string]any{"column": "in_progress"})
	detail := assertError(t, rec, http.StatusConflict, "conflict")
	assert.Equal(t, "Column 'In Progress' at WIP limit (3/3). Move a task out first.", detail.Message)

	rec = s.do(t, http.MethodPost, "/api/tasks/"+waiting.ID+"/move", map[string]any{"column": "in_progress", "force": true})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBlockTask(t *testing.T) {
	s := newTestServer(t)
	created := s.add(t, "Integrate vendor SDK", "todo")

	rec := s.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/block", map[string]any{"reason": "waiting for keys"})
	require.Equal(t, http.StatusOK, rec.Code)
	blocked := decode[model.Task](t, rec)
	require.NotNil(t, blocked.BlockedReason)
	assert.Equal(t, "waiting for keys", *blocked.BlockedReason)

	rec = s.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/block", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[model.Task](t, rec).BlockedReason)
}

func TestArchiveAndRestore(t *testing.T) {
	s := newTestServer(t)
	created := s.add(t, "Retire old endpoint", "done")

	rec := s.do(t, http.MethodPost, "/api/tasks/archive", map[string]any{})
	assertError(t, rec, http.StatusBadRequest, "validation")

	rec = s.do(t, http.MethodPost, "/api/tasks/archive", map[string]any{"taskIds": []string{""}})
	detail := assertError(t, rec, http.StatusBadRequest, "validation")
	assert.Equal(t, "Task IDs cannot be blank", detail.Message)

	rec = s.do(t, http.MethodPost, "/api/tasks/archive", map[string]any{"status": "done"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[model.ArchiveResult](t, rec)
	assert.Equal(t, 1, result.ArchivedCount)
	assert.Equal(t, []string{created.ID}, result.TaskIDs)

	rec = s.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/restore", map[string]any{"column": "review"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	restored := decode[model.Task](t, rec)
	assert.False(t, restored.Archived)
	assert.Equal(t, "review", restored.ColumnID)

	rec = s.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/restore", nil)
	assertError(t, rec, http.StatusBadRequest, "validation")
}

func TestDeleteTask(t *testing.T) {
	s := newTestServer(t)
	created := s.add(t, "Throwaway", "todo")

	rec := s.do(t, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	assertError(t, rec, http.StatusNotFound, "not_found")

	rec = s.do(t, http.MethodGet, "/api/tasks/"+created.ID+"/history", nil)
	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestIndexRendersBoard(t *testing.T) {
	s := newTestServer(t)
	s.add(t, "Visible <task>", "todo")

	rec := s.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Kanban Board")
	assert.Contains(t, body, "In Progress (0/3)")
	assert.Contains(t, body, "Visible &lt;task&gt;")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/nothing", nil)
	assertError(t, rec, http.StatusNotFound, "not_found")
}
