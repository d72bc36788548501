package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
	"github.com/Joseda-hg/lazyboard/internal/config"
	"github.com/Joseda-hg/lazyboard/internal/model"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// newProject returns a config path inside a fresh project directory.
func newProject(t *testing.T) string {
	t.Helper()
	t.Setenv(AgentEnv, "")
	return filepath.Join(t.TempDir(), config.DirName, config.FileName)
}

func lazyboard(t *testing.T, cfgPath string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--config", cfgPath}, args...), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func initProject(t *testing.T) string {
	t.Helper()
	cfgPath := newProject(t)
	res := lazyboard(t, cfgPath, "init")
	require.Equal(t, 0, res.code, res.stderr)
	return cfgPath
}

func addTask(t *testing.T, cfgPath, title string, extra ...string) model.Task {
	t.Helper()
	res := lazyboard(t, cfgPath, append([]string{"add", title, "--json"}, extra...)...)
	require.Equal(t, 0, res.code, res.stderr)
	var created model.Task
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &created))
	return created
}

func listTasks(t *testing.T, cfgPath string, extra ...string) []model.Task {
	t.Helper()
	res := lazyboard(t, cfgPath, append([]string{"list", "--json"}, extra...)...)
	require.Equal(t, 0, res.code, res.stderr)
	var tasks []model.Task
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &tasks))
	return tasks
}

func showTask(t *testing.T, cfgPath, id string) model.Task {
	t.Helper()
	res := lazyboard(t, cfgPath, "show", id, "--json")
	require.Equal(t, 0, res.code, res.stderr)
	var got model.Task
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	return got
}

func TestInitCreatesBoard(t *testing.T) {
	cfgPath := newProject(t)

	res := lazyboard(t, cfgPath, "init", "--name", "Agents")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Initialized board: Agents")
	assert.FileExists(t, cfgPath)
	assert.FileExists(t, filepath.Join(filepath.Dir(cfgPath), "board.db"))

	saved, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "Agents", saved.Board.Name)
	assert.Equal(t, config.Default().Storage.DSN, saved.Storage.DSN)

	again := lazyboard(t, cfgPath, "init")
	assert.Equal(t, apperr.ExitGeneral, again.code)
	assert.Contains(t, again.stderr, "Board already exists")
}

func TestCommandsRequireInitializedBoard(t *testing.T) {
	cfgPath := newProject(t)

	res := lazyboard(t, cfgPath, "list")
	assert.Equal(t, apperr.ExitGeneral, res.code)
	assert.Contains(t, res.stderr, "Run 'lazyboard init' first")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(cfgPath), "board.db"))
}

func TestEndToEndWorkflow(t *testing.T) {
	cfgPath := initProject(t)

	created := addTask(t, cfgPath, "Write release notes", "-D", "for v2", "--label", "docs")
	assert.Equal(t, "todo", created.ColumnID)
	assert.Equal(t, "user", created.CreatedBy)
	assert.Equal(t, []string{"docs"}, created.Labels)

	tasks := listTasks(t, cfgPath)
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)

	res := lazyboard(t, cfgPath, "move", created.ID, "in_progress")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Moved ["+created.ID[:8]+"] to In Progress")

	res = lazyboard(t, cfgPath, "done", created.ID[:10])
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Completed")

	got := showTask(t, cfgPath, created.ID)
	assert.Equal(t, "done", got.ColumnID)
	assert.Equal(t, int64(3), got.Version)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)

	res = lazyboard(t, cfgPath, "history", created.ID)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "moved: in_progress -> done")
	assert.Contains(t, res.stdout, "created")

	res = lazyboard(t, cfgPath, "status")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Kanban Board")
	assert.Contains(t, res.stdout, "0/3")
}

func TestListTextOutput(t *testing.T) {
	cfgPath := initProject(t)

	res := lazyboard(t, cfgPath, "list")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "No tasks found\n", res.stdout)

	created := addTask(t, cfgPath, "Profile the importer", "--agent", "claude")
	res = lazyboard(t, cfgPath, "block", created.ID, "waiting", "on", "data")
	require.Equal(t, 0, res.code, res.stderr)

	res = lazyboard(t, cfgPath, "list")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "["+created.ID[:8]+"] Profile the importer @claude [blocked]")
	assert.Contains(t, res.stdout, "Todo")
}

func TestListFilters(t *testing.T) {
	cfgPath := initProject(t)

	addTask(t, cfgPath, "Human task")
	byAgent := addTask(t, cfgPath, "Agent task", "-a", "claude", "-c", "backlog")

	assert.Len(t, listTasks(t, cfgPath), 2)

	mine := listTasks(t, cfgPath, "-a", "claude")
	require.Len(t, mine, 1)
	assert.Equal(t, byAgent.ID, mine[0].ID)

	backlog := listTasks(t, cfgPath, "-c", "backlog")
	require.Len(t, backlog, 1)
	assert.Equal(t, byAgent.ID, backlog[0].ID)

	assert.Empty(t, listTasks(t, cfgPath, "--blocked"))
}

func TestAgentFromEnvironment(t *testing.T) {
	cfgPath := initProject(t)
	t.Setenv(AgentEnv, "codex")

	created := addTask(t, cfgPath, "Agent from env")
	assert.Equal(t, "codex", created.CreatedBy)

	t.Setenv(AgentEnv, "not valid!")
	res := lazyboard(t, cfgPath, "list")
	assert.Equal(t, apperr.ExitValidation, res.code)
	assert.Contains(t, res.stderr, "Invalid agent name")
}

func TestAddRejectsSimilarTask(t *testing.T) {
	cfgPath := initProject(t)
	addTask(t, cfgPath, "Fix login bug on mobile")

	res := lazyboard(t, cfgPath, "add", "Fix login bug on mobile")
	assert.Equal(t, apperr.ExitConflict, res.code)
	assert.Contains(t, res.stderr, "Similar task already exists")
	assert.Contains(t, res.stderr, "Use --force")

	res = lazyboard(t, cfgPath, "add", "Fix login bug on mobile", "--force")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Note: Found 1 similar task(s)")
}

func TestAddValidationExitCode(t *testing.T) {
	cfgPath := initProject(t)

	res := lazyboard(t, cfgPath, "add", "   ")
	assert.Equal(t, apperr.ExitValidation, res.code)
	assert.Contains(t, res.stderr, "Title cannot be empty")

	res = lazyboard(t, cfgPath, "add", "Somewhere else", "-c", "nowhere")
	assert.Equal(t, apperr.ExitNotFound, res.code)
}

func TestMoveRespectsWIPLimit(t *testing.T) {
	cfgPath := initProject(t)

	titles := []string{"Parse headers", "Render charts", "Rotate keys", "Tune cache"}
	var ids []string
	for _, title := range titles {
		ids = append(ids, addTask(t, cfgPath, title).ID)
	}
	for _, id := range ids[:3] {
		res := lazyboard(t, cfgPath, "move", id, "--next")
		require.Equal(t, 0, res.code, res.stderr)
	}

	res := lazyboard(t, cfgPath, "move", ids[3], "in_progress")
	assert.Equal(t, apperr.ExitConflict, res.code)
	assert.Contains(t, res.stderr, "Column 'In Progress' at WIP limit (3/3)")

	res = lazyboard(t, cfgPath, "move", ids[3], "in_progress", "-f")
	require.Equal(t, 0, res.code, res.stderr)
}

func TestMoveArguments(t *testing.T) {
	cfgPath := initProject(t)
	created := addTask(t, cfgPath, "Ship it", "-c", "done")

	res := lazyboard(t, cfgPath, "move", created.ID)
	assert.Equal(t, apperr.ExitValidation, res.code)
	assert.Contains(t, res.stderr, "Specify a column or use --next")

	res = lazyboard(t, cfgPath, "move", created.ID, "--next")
	assert.Equal(t, apperr.ExitValidation, res.code)
	assert.Contains(t, res.stderr, "already in the last column")
}

func TestTaskReferenceResolution(t *testing.T) {
	cfgPath := initProject(t)
	first := addTask(t, cfgPath, "Alpha migration")
	addTask(t, cfgPath, "Beta rollout")

	res := lazyboard(t, cfgPath, "show", first.ID[:1])
	assert.Equal(t, apperr.ExitValidation, res.code)
	assert.Contains(t, res.stderr, "ambiguous")

	res = lazyboard(t, cfgPath, "show", "ZZZZ")
	assert.Equal(t, apperr.ExitNotFound, res.code)

	res = lazyboard(t, cfgPath, "show", "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	assert.Equal(t, apperr.ExitNotFound, res.code)

	lower := showTask(t, cfgPath, strings.ToLower(first.ID[:12]))
	assert.Equal(t, first.ID, lower.ID)
}

func TestUpdateWithExpectedVersion(t *testing.T) {
	cfgPath := initProject(t)
	created := addTask(t, cfgPath, "Draft plan")

	res := lazyboard(t, cfgPath, "update", created.ID)
	assert.Equal(t, apperr.ExitValidation, res.code)

	res = lazyboard(t, cfgPath, "update", created.ID, "--title", "Final plan", "--expect-version", "7")
	assert.Equal(t, apperr.ExitConflict, res.code)
	assert.Contains(t, res.stderr, "Current version: 1")

	res = lazyboard(t, cfgPath, "update", created.ID, "--title", "Final plan", "--assign", "claude", "--labels", "a, b", "--expect-version", "1")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "(version 2)")

	got := showTask(t, cfgPath, created.ID)
	assert.Equal(t, "Final plan", got.Title)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, "claude", *got.AssignedTo)
	assert.Equal(t, []string{"a", "b"}, got.Labels)

	res = lazyboard(t, cfgPath, "update", created.ID, "--assign", "")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Nil(t, showTask(t, cfgPath, created.ID).AssignedTo)
}

func TestBlockAndUnblock(t *testing.T) {
	cfgPath := initProject(t)
	created := addTask(t, cfgPath, "Call vendor")

	res := lazyboard(t, cfgPath, "block", created.ID, "no", "reply")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Blocked ["+created.ID[:8]+"] no reply")

	res = lazyboard(t, cfgPath, "unblock", created.ID)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Nil(t, showTask(t, cfgPath, created.ID).BlockedReason)
}

func TestArchiveAndRestore(t *testing.T) {
	cfgPath := initProject(t)
	created := addTask(t, cfgPath, "Old spike")

	res := lazyboard(t, cfgPath, "archive")
	assert.Equal(t, apperr.ExitValidation, res.code)

	res = lazyboard(t, cfgPath, "archive", "--ids", created.ID[:12])
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Archived 1 task(s)")

	assert.Empty(t, listTasks(t, cfgPath))
	archived := listTasks(t, cfgPath, "--archived")
	require.Len(t, archived, 1)
	assert.True(t, archived[0].Archived)
	assert.Len(t, listTasks(t, cfgPath, "--all"), 1)

	res = lazyboard(t, cfgPath, "restore", created.ID, "-c", "backlog")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "to backlog")

	restored := showTask(t, cfgPath, created.ID)
	assert.False(t, restored.Archived)
	assert.Equal(t, "backlog", restored.ColumnID)

	res = lazyboard(t, cfgPath, "restore", created.ID)
	assert.Equal(t, apperr.ExitValidation, res.code)
}

func TestDeleteTask(t *testing.T) {
	cfgPath := initProject(t)
	created := addTask(t, cfgPath, "Throwaway")

	res := lazyboard(t, cfgPath, "delete", created.ID)
	require.Equal(t, 0, res.code, res.stderr)

	res = lazyboard(t, cfgPath, "history", created.ID)
	assert.Equal(t, apperr.ExitNotFound, res.code)
}

func TestParseAge(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "7d", want: 7 * 24 * time.Hour},
		{in: "36h", want: 36 * time.Hour},
		{in: "0d", want: 0},
		{in: "xd", wantErr: true},
		{in: "-2h", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseAge(tc.in)
			if tc.wantErr {
				assert.True(t, apperr.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveDSN(t *testing.T) {
	sqlite := config.StorageConfig{Driver: "sqlite", DSN: ".lazyboard/board.db"}
	assert.Equal(t, filepath.Join("proj", ".lazyboard", "board.db"), resolveDSN(filepath.Join("proj", ".lazyboard", "config.json"), sqlite))
	assert.Equal(t, filepath.Join(".lazyboard", "board.db"), resolveDSN(config.DefaultConfigPath(), sqlite))

	abs := config.StorageConfig{Driver: "sqlite", DSN: "/var/lib/board.db"}
	assert.Equal(t, "/var/lib/board.db", resolveDSN("proj/.lazyboard/config.json", abs))

	pg := config.StorageConfig{Driver: "postgres", DSN: "postgres://localhost/board"}
	assert.Equal(t, pg.DSN, resolveDSN("proj/.lazyboard/config.json", pg))
}
