// Package dial picks a storage engine from a connection URI.
package dial

import (
	"context"
	"log/slog"
	"strings"

	"github.com/latticeqcd/ensdb/pkg/db"
	"github.com/latticeqcd/ensdb/pkg/db/postgres"
	"github.com/latticeqcd/ensdb/pkg/db/sqlite"
	"github.com/latticeqcd/ensdb/pkg/domain"
)

// Open connects the backend the URI names: postgres:// and
// postgresql:// go to PostgreSQL, everything else is a SQLite file
// path (an optional sqlite:// prefix is accepted). Failures come back
// as *domain.ConnectionError.
func Open(ctx context.Context, uri string, logger *slog.Logger) (db.Backend, error) {
	var backend db.Backend
	var err error
	switch {
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		backend, err = postgres.New(ctx, uri, logger)
	default:
		backend, err = sqlite.New(strings.TrimPrefix(uri, "sqlite://"), logger)
	}
	if err != nil {
		return nil, &domain.ConnectionError{URI: uri, Err: err}
	}
	return backend, nil
}
