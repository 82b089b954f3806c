package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cadence-pm/cadence/internal/database"
	"github.com/cadence-pm/cadence/internal/services/board"
	"github.com/cadence-pm/cadence/internal/services/item"
	"github.com/cadence-pm/cadence/internal/services/move"
	"github.com/cadence-pm/cadence/internal/services/sprint"
)

// conflictErrors are lifecycle violations: the request was well-formed but
// the current state forbids it.
var conflictErrors = []error{
	database.ErrSprintNotPlanning,
	database.ErrSprintNotActive,
	database.ErrActiveSprintExists,
	database.ErrSprintCompleted,
	database.ErrSuccessorIsSelf,
}

// validationErrors are malformed or inconsistent inputs.
var validationErrors = []error{
	database.ErrInvalidPartition,
	database.ErrMembershipMismatch,
	database.ErrCrossProjectSprint,
	item.ErrEmptyTitle,
	item.ErrTitleTooLong,
	item.ErrInvalidItemID,
	item.ErrInvalidProjectID,
	item.ErrInvalidType,
	item.ErrInvalidPriority,
	item.ErrInvalidStatus,
	item.ErrInvalidSortField,
	item.ErrInvalidStoryPoints,
	sprint.ErrInvalidSprintID,
	sprint.ErrInvalidProjectID,
	sprint.ErrEmptyName,
	sprint.ErrInvalidDates,
	sprint.ErrInvalidVelocity,
	sprint.ErrInvalidAction,
	sprint.ErrMissingNextSprint,
	board.ErrInvalidSprintID,
	board.ErrInvalidProjectID,
	board.ErrEmptyColumnName,
	board.ErrInvalidColumnStatus,
	board.ErrInvalidWIPLimit,
	move.ErrInvalidItemID,
	move.ErrInvalidProjectID,
	move.ErrInvalidStatus,
	move.ErrInvalidIdempotencyKey,
	move.ErrFilteredReorder,
	move.ErrEmptyOrder,
}

// jsonResponse writes v as a JSON body.
func (s *Server) jsonResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// jsonError writes a JSON error body with the given status.
func (s *Server) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		s.logger.Error("Failed to encode error response", "error", err)
	}
}

// serviceError maps a service or store error onto the HTTP status classes:
// missing entities are 404, lifecycle violations 409, bad inputs 400,
// everything else 500.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		s.jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	for _, sentinel := range conflictErrors {
		if errors.Is(err, sentinel) {
			s.jsonError(w, err.Error(), http.StatusConflict)
			return
		}
	}
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			s.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	s.logger.Error("Request failed", "error", err)
	s.jsonError(w, "Internal server error", http.StatusInternalServerError)
}
