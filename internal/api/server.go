package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ajitpratap0/bgs-goals/internal/goals"
	"github.com/ajitpratap0/bgs-goals/internal/guild"
	"github.com/ajitpratap0/bgs-goals/internal/models"
	"github.com/ajitpratap0/bgs-goals/internal/todo"
)

// Server is an HTTP API server that exposes guild operations.
type Server struct {
	guilds    *guild.Service
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(guilds *guild.Service, logger *slog.Logger, authToken string) *Server {
	return &Server{
		guilds:    guilds,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check, no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /v1/guilds/{guild}/todo", s.auth(s.handleTodo))
	mux.HandleFunc("GET /v1/guilds/{guild}/goals", s.auth(s.handleListGoals))
	mux.HandleFunc("POST /v1/guilds/{guild}/goals", s.auth(s.handleAddGoals))
	mux.HandleFunc("DELETE /v1/guilds/{guild}/goals", s.auth(s.handleRemoveGoals))
	mux.HandleFunc("PUT /v1/guilds/{guild}/faction", s.auth(s.handleSetFaction))
	mux.HandleFunc("GET /v1/stats", s.auth(s.handleStats))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTodo(w http.ResponseWriter, r *http.Request) {
	list, err := s.guilds.GetTodoList(r.Context(), r.PathValue("guild"))
	if err != nil {
		s.writeGuildError(w, "failed to generate to-do list", err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// goalsResponse is returned by the goal endpoints.
type goalsResponse struct {
	Goals []models.GoalAssignment `json:"goals"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	list, err := s.guilds.ListGoals(r.Context(), r.PathValue("guild"))
	if err != nil {
		s.writeGuildError(w, "failed to list goals", err)
		return
	}
	if list == nil {
		list = []models.GoalAssignment{}
	}
	s.writeJSON(w, http.StatusOK, goalsResponse{Goals: list})
}

// addGoalsRequest is the body accepted by POST /v1/guilds/{guild}/goals.
type addGoalsRequest struct {
	Goals []guild.GoalInput `json:"goals"`
}

func (s *Server) handleAddGoals(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req addGoalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	added, err := s.guilds.AddGoals(r.Context(), r.PathValue("guild"), req.Goals)
	if err != nil {
		s.writeGuildError(w, "failed to add goals", err)
		return
	}
	s.writeJSON(w, http.StatusOK, goalsResponse{Goals: added})
}

// removeGoalsRequest is the body accepted by DELETE /v1/guilds/{guild}/goals.
type removeGoalsRequest struct {
	Goals []models.PresenceKey `json:"goals"`
}

func (s *Server) handleRemoveGoals(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req removeGoalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.guilds.RemoveGoals(r.Context(), r.PathValue("guild"), req.Goals); err != nil {
		s.writeGuildError(w, "failed to remove goals", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": len(req.Goals)})
}

// setFactionRequest is the body accepted by PUT /v1/guilds/{guild}/faction.
type setFactionRequest struct {
	MinorFaction string `json:"minor_faction"`
}

func (s *Server) handleSetFaction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req setFactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	guildID := r.PathValue("guild")
	if err := s.guilds.SetSupportedMinorFaction(r.Context(), guildID, req.MinorFaction); err != nil {
		s.writeGuildError(w, "failed to set supported minor faction", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"guild_id": guildID, "minor_faction": strings.TrimSpace(req.MinorFaction)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.guilds.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to get stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// --- helpers ---

// writeGuildError maps the guild API's typed failures to status codes. Only unexpected
// errors are logged.
func (s *Server) writeGuildError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, guild.ErrInvalidArgument):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, todo.ErrNoSupportedMinorFaction):
		s.writeError(w, http.StatusNotFound, "no supported minor faction is set for this guild")
	case errors.Is(err, goals.ErrUnknownGoal):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error(msg, "error", err)
		s.writeError(w, http.StatusInternalServerError, msg)
	}
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
