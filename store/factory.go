package store

import (
	"fmt"
	"strings"
)

// NewRunStore creates a run store based on the DSN.
// - Empty DSN or "memory": in-process map
// - postgres:// or postgresql://: PostgreSQL
// - Anything else: SQLite at the specified path
func NewRunStore(dsn string) (RunStore, error) {
	if dsn == "" || dsn == "memory" {
		return NewMemoryRunStore(), nil
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		s, err := NewPostgresRunStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil
	}

	return NewSQLiteRunStore(dsn)
}
