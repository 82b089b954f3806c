package models

// ColumnConfig is the per-project presentation config for one board column.
// Columns re-skin a workflow status: a custom column renames the column and
// may attach an advisory WIP limit, but the status set stays closed.
type ColumnConfig struct {
	ID        int    `json:"id"`
	ProjectID int    `json:"project_id"`
	Status    Status `json:"status"`
	Name      string `json:"name"`
	WIPLimit  *int   `json:"wip_limit"`
}

// BoardItem is a backlog item annotated for board rendering.
type BoardItem struct {
	BacklogItem
	IsOverdue       bool `json:"is_overdue"`
	CommentCount    int  `json:"comment_count"`
	AttachmentCount int  `json:"attachment_count"`
}

// BoardColumn is one rendered column of the kanban board.
// Warning is set when the column exceeds its WIP limit; it is advisory
// only and never blocks reads or writes.
type BoardColumn struct {
	Status    Status       `json:"status"`
	Name      string       `json:"name"`
	WIPLimit  *int         `json:"wip_limit,omitempty"`
	ItemCount int          `json:"item_count"`
	Warning   string       `json:"warning,omitempty"`
	Items     []*BoardItem `json:"items"`
}

// BoardView is the full columnar projection of one sprint.
type BoardView struct {
	SprintID   int            `json:"sprint_id"`
	Columns    []*BoardColumn `json:"columns"`
	TotalItems int            `json:"total_items"`
}
