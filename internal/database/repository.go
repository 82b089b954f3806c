package database

import "database/sql"

// Repository is the SQLite-backed implementation of DataStore.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a Repository over an open database connection.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Compile-time check that Repository satisfies the composed interface.
var _ DataStore = (*Repository)(nil)
