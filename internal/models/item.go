package models

import "time"

// ItemType classifies a backlog item.
type ItemType string

const (
	TypeUserStory     ItemType = "USER_STORY"
	TypeBug           ItemType = "BUG"
	TypeTechnicalTask ItemType = "TECHNICAL_TASK"
	TypeImprovement   ItemType = "IMPROVEMENT"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case TypeUserStory, TypeBug, TypeTechnicalTask, TypeImprovement:
		return true
	}
	return false
}

// Priority determines the urgency ordering of items.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank returns the sort rank of a priority, lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	}
	return 5
}

// Status is the workflow stage of a backlog item. Together with
// (project_id, sprint_id) it defines the item's ordering partition.
type Status string

const (
	StatusBacklog    Status = "BACKLOG"
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// BoardStatuses are the statuses rendered as kanban columns, in display order.
var BoardStatuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// fibonacciPoints is the permitted estimation scale.
var fibonacciPoints = map[int]bool{1: true, 2: true, 3: true, 5: true, 8: true, 13: true, 21: true}

// ValidStoryPoints reports whether p is an allowed estimate.
// nil means "not estimated" and is always allowed.
func ValidStoryPoints(p *int) bool {
	if p == nil {
		return true
	}
	return fibonacciPoints[*p]
}

// BacklogItem is a single unit of work. Position is a 1-based, gapless
// ordering key unique within the item's (project, sprint, status) partition.
type BacklogItem struct {
	ID           int        `json:"id"`
	ProjectID    int        `json:"project_id"`
	SprintID     *int       `json:"sprint_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Type         ItemType   `json:"type"`
	Priority     Priority   `json:"priority"`
	StoryPoints  *int       `json:"story_points"`
	Status       Status     `json:"status"`
	Position     int        `json:"position"`
	AssignedToID *int       `json:"assigned_to_id"`
	DueDate      *time.Time `json:"due_date"`
	IsBlocked    bool       `json:"is_blocked"`
	Tags         []string   `json:"tags"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
