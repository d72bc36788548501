package model

import "time"

type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	ColumnID      string     `json:"columnId"`
	Position      int64      `json:"position"`
	CreatedBy     string     `json:"createdBy"`
	AssignedTo    *string    `json:"assignedTo"`
	ParentID      *string    `json:"parentId"`
	DependsOn     []string   `json:"dependsOn"`
	Files         []string   `json:"files"`
	Labels        []string   `json:"labels"`
	BlockedReason *string    `json:"blockedReason"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	StartedAt     *time.Time `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt"`
	Archived      bool       `json:"archived"`
	ArchivedAt    *time.Time `json:"archivedAt"`
}

// Blocked reports whether the task carries a blocked reason.
func (t Task) Blocked() bool {
	return t.BlockedReason != nil
}

type Column struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
	WIPLimit   *int   `json:"wipLimit"`
	IsTerminal bool   `json:"isTerminal"`
}

type Board struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type HistoryEntry struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"taskId"`
	EventType string    `json:"eventType"`
	Actor     string    `json:"actor"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

// History event types.
const (
	EventCreated   = "created"
	EventMoved     = "moved"
	EventUpdated   = "updated"
	EventBlocked   = "blocked"
	EventUnblocked = "unblocked"
	EventArchived  = "archived"
	EventRestored  = "restored"
	EventDeleted   = "deleted"
)

type AddTaskInput struct {
	Title       string
	Description *string
	ColumnID    string
	Agent       string
	ParentID    *string
	DependsOn   []string
	Files       []string
	Labels      []string
}

// TaskPatch holds the fields UpdateTask may change. Nil means "leave as is".
// An empty AssignedTo clears the assignee.
type TaskPatch struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	AssignedTo  *string  `json:"assignedTo,omitempty"`
	Files       []string `json:"files,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.AssignedTo == nil && p.Files == nil && p.Labels == nil
}

type TaskFilter struct {
	ColumnID string `json:"columnId"`
	Agent    string `json:"agent"`
	Assignee string `json:"assignee"`
	Blocked  bool   `json:"blocked"`
	Archived *bool  `json:"archived"`
}

type MoveOptions struct {
	Force bool
	Actor string
}

type ArchiveCriteria struct {
	Status    string     `json:"status"`
	OlderThan *time.Time `json:"olderThan"`
	TaskIDs   []string   `json:"taskIds"`
}

// Empty reports whether no criterion was supplied.
func (c ArchiveCriteria) Empty() bool {
	return c.Status == "" && c.OlderThan == nil && len(c.TaskIDs) == 0
}

type ArchiveResult struct {
	ArchivedCount int      `json:"archivedCount"`
	TaskIDs       []string `json:"taskIds"`
}

type CheckedAddOptions struct {
	Force bool
}

type SimilarTask struct {
	Task       Task    `json:"task"`
	Similarity float64 `json:"similarity"`
}

type CheckedAddResult struct {
	Task            *Task         `json:"task"`
	Rejected        bool          `json:"rejected"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
	SimilarTasks    []SimilarTask `json:"similarTasks"`
}
