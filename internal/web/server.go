// Package web provides the HTTP server for the sprint and backlog API.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cadence-pm/cadence/internal/database"
	"github.com/cadence-pm/cadence/internal/services/board"
	"github.com/cadence-pm/cadence/internal/services/item"
	"github.com/cadence-pm/cadence/internal/services/move"
	"github.com/cadence-pm/cadence/internal/services/sprint"
	"github.com/yuin/goldmark"
)

// Server is the REST API server.
type Server struct {
	repo     database.DataStore
	items    item.Service
	sprints  sprint.Service
	boards   board.Service
	moves    move.Service
	markdown goldmark.Markdown
	logger   *slog.Logger
	server   *http.Server

	// Static bearer token; empty disables auth.
	authToken string

	// SSE clients
	sseClients   map[chan string]bool
	sseMu        sync.RWMutex
	shutdownOnce sync.Once
}

// NewServer creates a new API server over the given store.
func NewServer(repo database.DataStore, logger *slog.Logger, authToken string) *Server {
	return &Server{
		repo:       repo,
		items:      item.NewService(repo),
		sprints:    sprint.NewService(repo),
		boards:     board.NewService(repo),
		moves:      move.NewService(repo),
		markdown:   goldmark.New(),
		logger:     logger,
		authToken:  authToken,
		sseClients: make(map[chan string]bool),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /events", s.handleSSE)

	// Projects
	mux.HandleFunc("POST /projects", s.apiCreateProject)
	mux.HandleFunc("GET /projects", s.apiListProjects)

	// Sprints
	mux.HandleFunc("POST /sprints", s.apiCreateSprint)
	mux.HandleFunc("GET /sprints", s.apiListSprints)
	mux.HandleFunc("GET /sprints/{id}", s.apiGetSprint)
	mux.HandleFunc("GET /sprints/{id}/capacity", s.apiGetSprintCapacity)
	mux.HandleFunc("PUT /sprints/{id}/activate", s.apiActivateSprint)
	mux.HandleFunc("PUT /sprints/{id}/complete", s.apiCompleteSprint)

	// Backlog
	mux.HandleFunc("GET /backlog", s.apiListBacklog)
	mux.HandleFunc("POST /backlog", s.apiCreateItem)
	mux.HandleFunc("POST /backlog/reorder", s.apiReorderBacklog)
	mux.HandleFunc("GET /backlog/{id}", s.apiGetItem)
	mux.HandleFunc("PUT /backlog/{id}", s.apiUpdateItem)
	mux.HandleFunc("DELETE /backlog/{id}", s.apiDeleteItem)
	mux.HandleFunc("PATCH /backlog/{id}/assign", s.apiAssignItem)

	// Comments
	mux.HandleFunc("GET /backlog/{id}/comments", s.apiGetComments)
	mux.HandleFunc("POST /backlog/{id}/comments", s.apiCreateComment)
	mux.HandleFunc("DELETE /comments/{id}", s.apiDeleteComment)

	// Kanban board
	mux.HandleFunc("GET /kanban/{sprintId}", s.apiGetBoard)
	mux.HandleFunc("PATCH /kanban/move/{id}", s.apiMoveItem)
	mux.HandleFunc("POST /kanban/columns/{projectId}", s.apiUpsertColumn)

	return s.withLogging(s.withAuth(mux))
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting API server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.sseMu.Lock()
		for ch := range s.sseClients {
			close(ch)
			delete(s.sseClients, ch)
		}
		s.sseMu.Unlock()
	})

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Broadcast sends an SSE event to all clients.
func (s *Server) Broadcast(event string) {
	s.sseMu.RLock()
	defer s.sseMu.RUnlock()

	for ch := range s.sseClients {
		select {
		case ch <- event:
		default:
			// Client too slow, skip
		}
	}
}

// withLogging wraps a handler with request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// withAuth enforces the static bearer token when one is configured.
// The health endpoint stays open for probes.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" && r.URL.Path != "/healthz" {
			if r.Header.Get("Authorization") != "Bearer "+s.authToken {
				s.jsonError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, map[string]string{"status": "ok"})
}
