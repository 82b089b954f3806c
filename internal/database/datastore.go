package database

// DataStore is the unified interface for all data operations. It is composed
// of smaller, domain-specific interfaces so consumers can depend on just the
// slice they need (e.g. the board projection only needs read methods).
type DataStore interface {
	ProjectRepository
	SprintRepository
	ItemRepository
	ColumnRepository
	CommentRepository
}
