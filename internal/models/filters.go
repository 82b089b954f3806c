package models

// SortField is the closed set of item list sort keys.
type SortField string

const (
	SortByPosition    SortField = "position"
	SortByPriority    SortField = "priority"
	SortByStoryPoints SortField = "story_points"
	SortByCreatedAt   SortField = "created_at"
)

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	switch f {
	case SortByPosition, SortByPriority, SortByStoryPoints, SortByCreatedAt:
		return true
	}
	return false
}

// SortSpec is a validated sort request. The zero value means the default
// ordering, position ascending.
type SortSpec struct {
	Field      SortField
	Descending bool
}

// ItemFilters narrows an item listing. Nil/empty fields are inactive.
// Tag filters match items carrying all requested tags; Search matches
// title, description, or tags case-insensitively.
type ItemFilters struct {
	Type         *ItemType
	Priority     *Priority
	Tags         []string
	AssignedToID *int
	SprintID     *int
	Status       *Status
	Search       string
}

// Active reports whether any filter is set. Bulk reorder refuses to run
// against a filtered view, so callers check this before reordering.
func (f ItemFilters) Active() bool {
	return f.Type != nil || f.Priority != nil || len(f.Tags) > 0 ||
		f.AssignedToID != nil || f.SprintID != nil || f.Status != nil ||
		f.Search != ""
}
