package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/akimizu21/percent-app-sample/quiz"
)

// Backend is a quiz.Store that holds resources until closed.
type Backend interface {
	quiz.Store
	Close() error
}

// Open picks a backend from dsn:
//
//	memory:                  in-process, lost on exit (also the empty string)
//	sqlite:<path>            single-file SQLite database
//	postgres://…             Postgres (postgresql:// is accepted too)
func Open(ctx context.Context, dsn string) (Backend, error) {
	dsn = strings.TrimSpace(dsn)

	switch {
	case dsn == "" || dsn == "memory:":
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return OpenSQLite(strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported storage %q (want memory:, sqlite:<path> or postgres://)", dsn)
	}
}

// ValidDSN reports whether Open would recognize dsn.
func ValidDSN(dsn string) bool {
	dsn = strings.TrimSpace(dsn)
	return dsn == "" || dsn == "memory:" ||
		(strings.HasPrefix(dsn, "sqlite:") && strings.TrimPrefix(dsn, "sqlite:") != "") ||
		strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
