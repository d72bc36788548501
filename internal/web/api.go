package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/validate"
)

type createTaskRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Column      string   `json:"column"`
	Agent       string   `json:"agent"`
	ParentID    *string  `json:"parentId"`
	DependsOn   []string `json:"dependsOn"`
	Files       []string `json:"files"`
	Labels      []string `json:"labels"`
	Force       bool     `json:"force"`
}

type updateTaskRequest struct {
	model.TaskPatch
	ExpectedVersion *int64 `json:"expectedVersion" validate:"omitnil,gt=0"`
}

type moveTaskRequest struct {
	Column string `json:"column" validate:"required_without=Next,excluded_with=Next"`
	Next   bool   `json:"next"`
	Force  bool   `json:"force"`
}

type blockTaskRequest struct {
	Reason          *string `json:"reason"`
	ExpectedVersion *int64  `json:"expectedVersion" validate:"omitnil,gt=0"`
}

type restoreTaskRequest struct {
	Column string `json:"column"`
}

type taskDetail struct {
	Task    model.Task           `json:"task"`
	History []model.HistoryEntry `json:"history"`
}

// taskID reads the {id} path parameter. Ids are case-insensitive.
func taskID(r *http.Request) (string, error) {
	return validate.TaskID(strings.ToUpper(chi.URLParam(r, "id")))
}

func (s *Server) listColumns(w http.ResponseWriter, r *http.Request) {
	columns, err := s.engine.Directory().GetColumns(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, columns)
}

// listTasks serves active tasks unless archived=true or archived=all is given.
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TaskFilter{
		ColumnID: q.Get("column"),
		Agent:    q.Get("createdBy"),
		Assignee: q.Get("assignee"),
	}
	blocked, err := boolParam(r, "blocked")
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	filter.Blocked = blocked != nil && *blocked

	if q.Get("archived") != "all" {
		archived, err := boolParam(r, "archived")
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		if archived == nil {
			active := false
			archived = &active
		}
		filter.Archived = archived
	}

	tasks, err := s.engine.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	agent := req.Agent
	if agent == "" {
		agent = s.actorOf(r)
	}
	result, err := s.engine.AddTaskChecked(r.Context(), model.AddTaskInput{
		Title:       req.Title,
		Description: req.Description,
		ColumnID:    req.Column,
		Agent:       agent,
		ParentID:    req.ParentID,
		DependsOn:   req.DependsOn,
		Files:       req.Files,
		Labels:      req.Labels,
	}, model.CheckedAddOptions{Force: req.Force})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if result.Rejected {
		writeJSON(w, http.StatusConflict, struct {
			errorBody
			SimilarTasks []model.SimilarTask `json:"similarTasks"`
		}{
			errorBody:    errorBody{Error: errorDetail{Kind: apperr.KindConflict.String(), Message: result.RejectionReason}},
			SimilarTasks: result.SimilarTasks,
		})
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	found, err := s.engine.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if found == nil {
		writeError(w, r, s.log, apperr.NotFound("Task '%s' not found", id))
		return
	}
	history, err := s.engine.History(r.Context(), id)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, taskDetail{Task: *found, History: history})
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	updated, err := s.engine.UpdateTask(r.Context(), id, req.TaskPatch, req.ExpectedVersion)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := s.engine.DeleteTask(r.Context(), id); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moveTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	var req moveTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	target := req.Column
	if req.Next {
		current, err := s.engine.GetTask(r.Context(), id)
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		if current == nil {
			writeError(w, r, s.log, apperr.NotFound("Task '%s' not found", id))
			return
		}
		next, err := s.engine.Directory().NextColumn(r.Context(), current.ColumnID)
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		if next == nil {
			writeError(w, r, s.log, apperr.Validation("Task is already in the last column"))
			return
		}
		target = next.ID
	}

	moved, err := s.engine.MoveTask(r.Context(), id, target, model.MoveOptions{Force: req.Force, Actor: s.actorOf(r)})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

// blockTask sets the blocked reason; a missing or blank reason unblocks.
func (s *Server) blockTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	var req blockTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	updated, err := s.engine.SetBlocked(r.Context(), id, req.Reason, req.ExpectedVersion)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) archiveTasks(w http.ResponseWriter, r *http.Request) {
	var criteria model.ArchiveCriteria
	if err := decodeJSON(r, &criteria); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	for i, id := range criteria.TaskIDs {
		criteria.TaskIDs[i] = strings.ToUpper(strings.TrimSpace(id))
	}
	result, err := s.engine.ArchiveTasks(r.Context(), criteria)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) restoreTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	var req restoreTaskRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, s.log, err)
			return
		}
	}
	restored, err := s.engine.RestoreTask(r.Context(), id, req.Column)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, restored)
}

func (s *Server) taskHistory(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	history, err := s.engine.History(r.Context(), id)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
