package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cadence-pm/cadence/internal/models"
	"github.com/cadence-pm/cadence/internal/services/board"
	"github.com/cadence-pm/cadence/internal/services/item"
	"github.com/cadence-pm/cadence/internal/services/move"
	"github.com/cadence-pm/cadence/internal/services/sprint"
)

// pathID extracts a positive integer path parameter.
func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (*int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// --- Projects ---

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) apiCreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		s.jsonError(w, "Name is required", http.StatusBadRequest)
		return
	}

	project, err := s.repo.CreateProject(r.Context(), req.Name, req.Description)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	s.jsonResponse(w, project)
}

func (s *Server) apiListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.repo.ListProjects(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, projects)
}

// --- Sprints ---

// CreateSprintRequest is the request body for planning a sprint.
type CreateSprintRequest struct {
	ProjectID       int       `json:"project_id"`
	Name            string    `json:"name"`
	Objective       string    `json:"objective"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	PlannedVelocity int       `json:"planned_velocity"`
}

func (s *Server) apiCreateSprint(w http.ResponseWriter, r *http.Request) {
	var req CreateSprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := s.sprints.Create(r.Context(), sprint.CreateRequest{
		ProjectID:       req.ProjectID,
		Name:            req.Name,
		Objective:       req.Objective,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		PlannedVelocity: req.PlannedVelocity,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	s.jsonResponse(w, created)
}

func (s *Server) apiListSprints(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.Atoi(r.URL.Query().Get("projectId"))
	if err != nil {
		s.jsonError(w, "Missing or invalid projectId", http.StatusBadRequest)
		return
	}

	sprints, err := s.sprints.List(r.Context(), projectID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, sprints)
}

func (s *Server) apiGetSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid sprint ID", http.StatusBadRequest)
		return
	}

	got, err := s.sprints.Get(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, got)
}

func (s *Server) apiGetSprintCapacity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid sprint ID", http.StatusBadRequest)
		return
	}

	capacity, err := s.sprints.Capacity(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, capacity)
}

func (s *Server) apiActivateSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid sprint ID", http.StatusBadRequest)
		return
	}

	if err := s.sprints.Activate(r.Context(), id); err != nil {
		s.serviceError(w, err)
		return
	}

	s.Broadcast("board-update")
	s.jsonResponse(w, map[string]string{"message": "Sprint activated"})
}

// CompleteSprintRequest is the request body for completing a sprint.
type CompleteSprintRequest struct {
	UnfinishedAction models.UnfinishedAction `json:"unfinished_action"`
	NextSprintID     *int                    `json:"next_sprint_id,omitempty"`
}

func (s *Server) apiCompleteSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid sprint ID", http.StatusBadRequest)
		return
	}

	var req CompleteSprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.sprints.Complete(r.Context(), sprint.CompleteRequest{
		SprintID:         id,
		UnfinishedAction: req.UnfinishedAction,
		NextSprintID:     req.NextSprintID,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.Broadcast("board-update")
	s.jsonResponse(w, map[string]any{
		"message":            "Sprint completed",
		"actual_velocity":    result.ActualVelocity,
		"unfinished_handled": result.UnfinishedHandled,
		"unfinished_count":   result.UnfinishedCount,
	})
}

// --- Backlog ---

// parseItemFilters reads the shared filter query parameters.
func parseItemFilters(r *http.Request) (models.ItemFilters, bool) {
	filters := models.ItemFilters{Search: r.URL.Query().Get("search")}

	if raw := r.URL.Query().Get("type"); raw != "" {
		t := models.ItemType(raw)
		filters.Type = &t
	}
	if raw := r.URL.Query().Get("priority"); raw != "" {
		p := models.Priority(raw)
		filters.Priority = &p
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := models.Status(raw)
		filters.Status = &st
	}
	if raw := r.URL.Query().Get("tags"); raw != "" {
		filters.Tags = strings.Split(raw, ",")
	}

	var ok bool
	if filters.AssignedToID, ok = queryInt(r, "assigned_to_id"); !ok {
		return filters, false
	}
	if filters.SprintID, ok = queryInt(r, "sprint_id"); !ok {
		return filters, false
	}
	return filters, true
}

func (s *Server) apiListBacklog(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.Atoi(r.URL.Query().Get("projectId"))
	if err != nil {
		s.jsonError(w, "Missing or invalid projectId", http.StatusBadRequest)
		return
	}

	filters, ok := parseItemFilters(r)
	if !ok {
		s.jsonError(w, "Invalid filter parameter", http.StatusBadRequest)
		return
	}

	sort := models.SortSpec{
		Field:      models.SortField(r.URL.Query().Get("sortBy")),
		Descending: r.URL.Query().Get("sortOrder") == "desc",
	}

	items, err := s.items.List(r.Context(), projectID, filters, sort)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if items == nil {
		items = []*models.BacklogItem{}
	}
	s.jsonResponse(w, items)
}

// CreateItemRequest is the request body for creating a backlog item.
type CreateItemRequest struct {
	ProjectID    int             `json:"project_id"`
	SprintID     *int            `json:"sprint_id,omitempty"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Type         models.ItemType `json:"type"`
	Priority     models.Priority `json:"priority"`
	StoryPoints  *int            `json:"story_points,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	AssignedToID *int            `json:"assigned_to_id,omitempty"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
}

func (s *Server) apiCreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := s.items.Create(r.Context(), item.CreateRequest{
		ProjectID:    req.ProjectID,
		SprintID:     req.SprintID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		Priority:     req.Priority,
		StoryPoints:  req.StoryPoints,
		Tags:         req.Tags,
		AssignedToID: req.AssignedToID,
		DueDate:      req.DueDate,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.Broadcast("board-update")
	w.WriteHeader(http.StatusCreated)
	s.jsonResponse(w, created)
}

func (s *Server) apiGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	got, err := s.items.Get(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, got)
}

// UpdateItemRequest is the request body for a partial item update. Pointer
// fields left out of the body are untouched. story_points and due_date are
// raw so an explicit null (clear) is distinguishable from absence.
type UpdateItemRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Type        *models.ItemType `json:"type,omitempty"`
	Priority    *models.Priority `json:"priority,omitempty"`
	StoryPoints json.RawMessage  `json:"story_points,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	DueDate     json.RawMessage  `json:"due_date,omitempty"`
	IsBlocked   *bool            `json:"is_blocked,omitempty"`
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func (s *Server) apiUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	update := item.UpdateRequest{
		ItemID:      id,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		Tags:        req.Tags,
		IsBlocked:   req.IsBlocked,
	}
	if len(req.StoryPoints) > 0 {
		update.SetStoryPoints = true
		if !isJSONNull(req.StoryPoints) {
			var points int
			if err := json.Unmarshal(req.StoryPoints, &points); err != nil {
				s.jsonError(w, "Invalid story_points", http.StatusBadRequest)
				return
			}
			update.StoryPoints = &points
		}
	}
	if len(req.DueDate) > 0 {
		update.SetDueDate = true
		if !isJSONNull(req.DueDate) {
			var due time.Time
			if err := json.Unmarshal(req.DueDate, &due); err != nil {
				s.jsonError(w, "Invalid due_date", http.StatusBadRequest)
				return
			}
			update.DueDate = &due
		}
	}

	if err := s.items.Update(r.Context(), update); err != nil {
		s.serviceError(w, err)
		return
	}

	s.Broadcast("board-update")
	s.jsonResponse(w, map[string]string{"message": "Item updated"})
}

func (s *Server) apiDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	if err := s.items.Delete(r.Context(), id); err != nil {
		s.serviceError(w, err)
		return
	}

	s.Broadcast("board-update")
	s.jsonResponse(w, map[string]string{"message": "Item deleted"})
}

// AssignItemRequest is the request body for changing an item's assignee.
// A null userId clears the assignment.
type AssignItemRequest struct {
	UserID *int `json:"userId"`
}

func (s *Server) apiAssignItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	var req AssignItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.items.Assign(r.Context(), id, req.UserID); err != nil {
		s.serviceError(w, err)
		return
	}

	s.Broadcast("board-update")
	s.jsonResponse(w, map[string]any{
		"message":        "Assignee updated",
		"assigned_to_id": req.UserID,
	})
}

// ReorderRequest is the request body for a bulk backlog reorder. Filters
// echoes the caller's currently applied view filters; a reorder under any
// active filter is rejected so hidden items cannot be silently displaced.
type ReorderRequest struct {
	ProjectID int             `json:"projectId"`
	ItemIDs   []int           `json:"itemIds"`
	Filters   *ReorderFilters `json:"filters,omitempty"`
}

// ReorderFilters mirrors the list filters for the active-filter check.
type ReorderFilters struct {
	Type         *models.ItemType `json:"type,omitempty"`
	Priority     *models.Priority `json:"priority,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	AssignedToID *int             `json:"assigned_to_id,omitempty"`
	Search       string           `json:"search,omitempty"`
}

func (f *ReorderFilters) active() bool {
	if f == nil {
		return false
	}
	return models.ItemFilters{
		Type:         f.Type,
		Priority:     f.Priority,
		Tags:         f.Tags,
		AssignedToID: f.AssignedToID,
		Search:       f.Search,
	}.Active()
}

func (s *Server) apiReorderBacklog(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := s.moves.ReorderBacklog(r.Context(), move.ReorderRequest{
		ProjectID:     req.ProjectID,
		ItemIDs:       req.ItemIDs,
		FiltersActive: req.Filters.active(),
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.Broadcast("board-update")
	s.jsonResponse(w, map[string]string{"message": "Backlog reordered"})
}

// --- Kanban board ---

func (s *Server) apiGetBoard(w http.ResponseWriter, r *http.Request) {
	sprintID, ok := pathID(r, "sprintId")
	if !ok {
		s.jsonError(w, "Invalid sprint ID", http.StatusBadRequest)
		return
	}

	var filters board.Filters
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := models.ItemType(raw)
		filters.Type = &t
	}
	if raw := r.URL.Query().Get("priority"); raw != "" {
		p := models.Priority(raw)
		filters.Priority = &p
	}
	if raw := r.URL.Query().Get("tags"); raw != "" {
		filters.Tags = strings.Split(raw, ",")
	}
	var okID bool
	if filters.AssignedToID, okID = queryInt(r, "assigned_to_id"); !okID {
		s.jsonError(w, "Invalid assigned_to_id", http.StatusBadRequest)
		return
	}

	view, err := s.boards.Project(r.Context(), sprintID, filters)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, view)
}

// MoveItemRequest is the request body for moving an item. toSprintId is raw
// so "move to the product backlog" (explicit null) is distinguishable from
// "stay in the current sprint" (absent).
type MoveItemRequest struct {
	ToStatus   models.Status   `json:"toStatus"`
	ToPosition int             `json:"toPosition"`
	ToSprintID json.RawMessage `json:"toSprintId,omitempty"`
}

func (s *Server) apiMoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	var req MoveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	moveReq := move.MoveRequest{
		ItemID:         id,
		ToStatus:       req.ToStatus,
		ToPosition:     req.ToPosition,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if len(req.ToSprintID) > 0 {
		moveReq.SprintProvided = true
		if !isJSONNull(req.ToSprintID) {
			var sprintID int
			if err := json.Unmarshal(req.ToSprintID, &sprintID); err != nil {
				s.jsonError(w, "Invalid toSprintId", http.StatusBadRequest)
				return
			}
			moveReq.ToSprintID = &sprintID
		}
	}

	moved, err := s.moves.MoveItem(r.Context(), moveReq)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.Broadcast("board-update")
	s.jsonResponse(w, map[string]any{
		"message": "Item moved",
		"item":    moved,
	})
}

// UpsertColumnRequest is the request body for configuring a board column.
type UpsertColumnRequest struct {
	Status   models.Status `json:"status"`
	Name     string        `json:"name"`
	WIPLimit *int          `json:"wip_limit,omitempty"`
}

func (s *Server) apiUpsertColumn(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectId")
	if !ok {
		s.jsonError(w, "Invalid project ID", http.StatusBadRequest)
		return
	}

	var req UpsertColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := s.boards.UpsertColumn(r.Context(), projectID, req.Status, req.Name, req.WIPLimit); err != nil {
		s.serviceError(w, err)
		return
	}

	s.Broadcast("board-update")
	s.jsonResponse(w, map[string]string{"message": "Column saved"})
}

// --- Comments ---

// CommentResponse is a comment plus its markdown body rendered to HTML.
type CommentResponse struct {
	*models.Comment
	BodyHTML string `json:"body_html"`
}

func (s *Server) renderComment(c *models.Comment) CommentResponse {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(c.Body), &buf); err != nil {
		s.logger.Error("Failed to render comment", "comment_id", c.ID, "error", err)
		return CommentResponse{Comment: c, BodyHTML: c.Body}
	}
	return CommentResponse{Comment: c, BodyHTML: buf.String()}
}

func (s *Server) apiGetComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	if _, err := s.items.Get(r.Context(), id); err != nil {
		s.serviceError(w, err)
		return
	}

	comments, err := s.repo.GetCommentsByItem(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	response := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		response = append(response, s.renderComment(c))
	}
	s.jsonResponse(w, response)
}

// CreateCommentRequest is the request body for adding a comment.
type CreateCommentRequest struct {
	AuthorID int    `json:"author_id"`
	Body     string `json:"body"`
}

func (s *Server) apiCreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Body == "" {
		s.jsonError(w, "Comment body is required", http.StatusBadRequest)
		return
	}

	comment, err := s.repo.CreateComment(r.Context(), id, req.AuthorID, req.Body)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	s.jsonResponse(w, s.renderComment(comment))
}

func (s *Server) apiDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.jsonError(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	if err := s.repo.DeleteComment(r.Context(), id); err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, map[string]string{"message": "Comment deleted"})
}
