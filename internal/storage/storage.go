// Package storage is the PostgreSQL persistence layer. It is the single
// source of truth; the cache layer only ever holds copies of what lives
// here.
package storage

import (
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/learnloop/mentor-be/shared/postgresql"
)

// Storage handles all database operations
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a Storage over an established client
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.DB(),
		logger: logger,
	}
}

// DB exposes the underlying handle for health checks
func (s *Storage) DB() *sqlx.DB {
	return s.db
}
