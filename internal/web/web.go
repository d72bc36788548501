package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/task"
	"github.com/Joseda-hg/lazyboard/internal/validate"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.New("index.tmpl").Funcs(template.FuncMap{
	"shortID": shortID,
	"join":    strings.Join,
	"deref":   deref,
}).ParseFS(templateFS, "templates/index.tmpl"))

// AgentHeader names the acting agent for a request. The "agent" query
// parameter is accepted as well.
const AgentHeader = "X-Lazyboard-Agent"

type Server struct {
	engine *task.Engine
	log    *logrus.Entry
}

func NewServer(engine *task.Engine, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.WithField("component", "web")
	}
	return &Server{engine: engine, log: log}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.actor)

	r.Get("/", s.indexHandler)
	r.Route("/api", func(r chi.Router) {
		r.Get("/columns", s.listColumns)
		r.Get("/tasks", s.listTasks)
		r.Post("/tasks", s.createTask)
		r.Post("/tasks/archive", s.archiveTasks)
		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Get("/", s.getTask)
			r.Patch("/", s.updateTask)
			r.Delete("/", s.deleteTask)
			r.Post("/move", s.moveTask)
			r.Post("/block", s.blockTask)
			r.Post("/restore", s.restoreTask)
			r.Get("/history", s.taskHistory)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, s.log, errRouteNotFound)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
		}).Debug("request")
	})
}

// actor attaches the requesting agent to the context so history and events
// record who acted. Requests without one act as the default agent.
func (s *Server) actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent := strings.TrimSpace(r.Header.Get(AgentHeader))
		if agent == "" {
			agent = strings.TrimSpace(r.URL.Query().Get("agent"))
		}
		if agent == "" {
			agent = s.engine.DefaultAgent()
		}
		agent, err := validate.AgentName(agent)
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		ctx := context.WithValue(r.Context(), agentKey{}, agent)
		next.ServeHTTP(w, r.WithContext(task.ContextWithActor(ctx, agent)))
	})
}

type agentKey struct{}

func (s *Server) actorOf(r *http.Request) string {
	if agent, ok := r.Context().Value(agentKey{}).(string); ok {
		return agent
	}
	return s.engine.DefaultAgent()
}

type columnView struct {
	Column model.Column
	Tasks  []model.Task
	Full   bool
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	board, err := s.engine.Directory().GetBoard(ctx)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	columns, err := s.boardColumns(ctx, r.URL.Query().Get("archived") == "true")
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	data := struct {
		Name     string
		Columns  []columnView
		Archived bool
	}{Columns: columns, Archived: r.URL.Query().Get("archived") == "true"}
	if board != nil {
		data.Name = board.Name
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.log.WithError(err).Error("render board")
	}
}

func (s *Server) boardColumns(ctx context.Context, archived bool) ([]columnView, error) {
	columns, err := s.engine.Directory().GetColumns(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := s.engine.ListTasks(ctx, model.TaskFilter{Archived: &archived})
	if err != nil {
		return nil, err
	}

	byColumn := make(map[string][]model.Task, len(columns))
	for _, t := range tasks {
		byColumn[t.ColumnID] = append(byColumn[t.ColumnID], t)
	}
	views := make([]columnView, 0, len(columns))
	for _, col := range columns {
		rows := byColumn[col.ID]
		views = append(views, columnView{
			Column: col,
			Tasks:  rows,
			Full:   col.WIPLimit != nil && len(rows) >= *col.WIPLimit,
		})
	}
	return views, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
