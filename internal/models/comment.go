package models

import "time"

// Comment is a markdown note attached to a backlog item.
type Comment struct {
	ID        int       `json:"id"`
	ItemID    int       `json:"item_id"`
	AuthorID  int       `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is a file reference attached to a backlog item. Only the
// metadata lives here; blob storage is an external collaborator.
type Attachment struct {
	ID          int       `json:"id"`
	ItemID      int       `json:"item_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
