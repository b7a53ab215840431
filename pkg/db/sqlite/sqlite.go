// Package sqlite backs db.Backend with a single SQLite file. It is the
// default engine: zero setup, one file next to the ensembles, good
// enough for a workstation or a login node. Documents live as JSON text
// in per-collection tables; uniqueness invariants are enforced by
// expression indexes over json_extract.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/latticeqcd/ensdb/pkg/db"
	"github.com/latticeqcd/ensdb/pkg/xerrors"
)

// schema creates the collection tables. Every table is (id, doc); the
// unique expression indexes carry the application's invariants:
// directory and nickname are unique across ensembles, the operation
// ordinal is unique within its ensemble, and one default-params recipe
// exists per (ensemble, job type, variant). Index names follow
// <collection>_<field>_uq so a constraint error can be traced back to
// its field.
const schema = `
CREATE TABLE IF NOT EXISTS ensembles (
	id  INTEGER PRIMARY KEY AUTOINCREMENT,
	doc TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS ensembles_directory_uq
	ON ensembles (json_extract(doc, '$.directory'));
CREATE UNIQUE INDEX IF NOT EXISTS ensembles_nickname_uq
	ON ensembles (json_extract(doc, '$.nickname'))
	WHERE json_extract(doc, '$.nickname') != '';

CREATE TABLE IF NOT EXISTS operations (
	id  INTEGER PRIMARY KEY AUTOINCREMENT,
	doc TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS operations_ensemble_ix
	ON operations (json_extract(doc, '$.ensemble_id'));
CREATE UNIQUE INDEX IF NOT EXISTS operations_op_id_uq
	ON operations (json_extract(doc, '$.ensemble_id'), json_extract(doc, '$.op_id'));

CREATE TABLE IF NOT EXISTS default_params (
	id  INTEGER PRIMARY KEY AUTOINCREMENT,
	doc TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS default_params_variant_uq
	ON default_params (
		json_extract(doc, '$.ensemble_id'),
		json_extract(doc, '$.job_type'),
		json_extract(doc, '$.variant')
	);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

type backend struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

var _ db.Backend = (*backend)(nil)

// New opens (creating if needed) the database file at path. Connections
// are pooled; each gets the standard pragmas and the schema on first
// use. The caller owns Close.
func New(path string, logger *slog.Logger) (db.Backend, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: 4,
		PrepareConn: func(conn *sqlite.Conn) error {
			for _, pragma := range pragmas {
				if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
					return fmt.Errorf("%s: %w", pragma, err)
				}
			}
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	logger.Debug("sqlite backend opened", "path", path)
	return &backend{pool: pool, logger: logger, path: path}, nil
}

func (b *backend) Close() error {
	if err := b.pool.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", b.path, err)
	}
	return nil
}

// where renders a Query as a WHERE clause over json_extract, except the
// "id" field which addresses the rowid column directly.
func where(q db.Query) (string, []any) {
	if len(q) == 0 {
		return "1=1", nil
	}
	conds := []string{}
	args := []any{}
	for field, value := range q {
		if field == "id" {
			conds = append(conds, "id = ?")
		} else {
			conds = append(conds, fmt.Sprintf("json_extract(doc, '$.%s') = ?", field))
		}
		args = append(args, value)
	}
	return strings.Join(conds, " AND "), args
}

func orderBy(opts db.FindOptions) string {
	if opts.OrderBy == "" {
		return ""
	}
	column := fmt.Sprintf("json_extract(doc, '$.%s')", opts.OrderBy)
	if opts.OrderBy == "id" {
		column = "id"
	}
	direction := "ASC"
	if opts.Desc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

func decode(id int64, raw string) (db.Document, error) {
	doc := db.Document{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("corrupt document %d: %w", id, err)
	}
	doc["id"] = id
	return doc, nil
}

func (b *backend) Insert(ctx context.Context, collection string, doc db.Document) (int64, error) {
	conn, err := b.pool.Take(ctx)
	if err != nil {
		return 0, xerrors.Wrap(err)
	}
	defer b.pool.Put(conn)

	stored := db.Document{}
	for k, v := range doc {
		if k != "id" {
			stored[k] = v
		}
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return 0, err
	}

	err = sqlitex.Execute(
		conn, fmt.Sprintf("INSERT INTO %s (doc) VALUES (?)", collection),
		&sqlitex.ExecOptions{Args: []any{string(raw)}},
	)
	if err != nil {
		return 0, classify(collection, err)
	}
	return conn.LastInsertRowID(), nil
}

func (b *backend) FindOne(ctx context.Context, collection string, q db.Query) (db.Document, error) {
	found, err := b.Find(ctx, collection, q, db.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, &db.Missing{Collection: collection, Query: q}
	}
	return found[0], nil
}

func (b *backend) Find(ctx context.Context, collection string, q db.Query, opts db.FindOptions) ([]db.Document, error) {
	conn, err := b.pool.Take(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	defer b.pool.Put(conn)

	cond, args := where(q)
	query := fmt.Sprintf("SELECT id, doc FROM %s WHERE %s%s", collection, cond, orderBy(opts))
	if 0 < opts.Limit {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	found := []db.Document{}
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			doc, err := decode(stmt.ColumnInt64(0), stmt.ColumnText(1))
			if err != nil {
				return err
			}
			found = append(found, doc)
			return nil
		},
	})
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	return found, nil
}

func (b *backend) UpdateOne(ctx context.Context, collection string, q db.Query, p db.Patch) (matched bool, err error) {
	conn, err := b.pool.Take(ctx)
	if err != nil {
		return false, xerrors.Wrap(err)
	}
	defer b.pool.Put(conn)

	end, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return false, xerrors.Wrap(err)
	}
	defer end(&err)

	cond, args := where(q)
	var id int64
	var doc db.Document
	err = sqlitex.Execute(
		conn, fmt.Sprintf("SELECT id, doc FROM %s WHERE %s LIMIT 1", collection, cond),
		&sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id = stmt.ColumnInt64(0)
				doc, err = decode(id, stmt.ColumnText(1))
				return err
			},
		},
	)
	if err != nil {
		return false, xerrors.Wrap(err)
	}
	if doc == nil {
		return false, nil
	}

	delete(doc, "id")
	for _, field := range p.Unset {
		delete(doc, field)
	}
	for field, value := range p.Set {
		if field != "id" {
			doc[field] = value
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}

	err = sqlitex.Execute(
		conn, fmt.Sprintf("UPDATE %s SET doc = ? WHERE id = ?", collection),
		&sqlitex.ExecOptions{Args: []any{string(raw), id}},
	)
	if err != nil {
		return false, classify(collection, err)
	}
	return true, nil
}

func (b *backend) DeleteMany(ctx context.Context, collection string, q db.Query) (int64, error) {
	conn, err := b.pool.Take(ctx)
	if err != nil {
		return 0, xerrors.Wrap(err)
	}
	defer b.pool.Put(conn)

	cond, args := where(q)
	err = sqlitex.Execute(
		conn, fmt.Sprintf("DELETE FROM %s WHERE %s", collection, cond),
		&sqlitex.ExecOptions{Args: args},
	)
	if err != nil {
		return 0, xerrors.Wrap(err)
	}
	return int64(conn.Changes()), nil
}

func (b *backend) Increment(ctx context.Context, collection string, q db.Query, field string) (next int64, err error) {
	conn, err := b.pool.Take(ctx)
	if err != nil {
		return 0, xerrors.Wrap(err)
	}
	defer b.pool.Put(conn)

	// IMMEDIATE takes the write lock up front, so the read-bump-write
	// below cannot interleave with another writer.
	end, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, xerrors.Wrap(err)
	}
	defer end(&err)

	cond, args := where(q)
	var id int64
	found := false
	var current int64
	err = sqlitex.Execute(
		conn, fmt.Sprintf(
			"SELECT id, COALESCE(json_extract(doc, '$.%s'), 0) FROM %s WHERE %s LIMIT 1",
			field, collection, cond,
		),
		&sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				id = stmt.ColumnInt64(0)
				current = stmt.ColumnInt64(1)
				return nil
			},
		},
	)
	if err != nil {
		return 0, xerrors.Wrap(err)
	}
	if !found {
		return 0, &db.Missing{Collection: collection, Query: q}
	}

	next = current + 1
	err = sqlitex.Execute(
		conn, fmt.Sprintf("UPDATE %s SET doc = json_set(doc, '$.%s', ?) WHERE id = ?", collection, field),
		&sqlitex.ExecOptions{Args: []any{next, id}},
	)
	if err != nil {
		return 0, xerrors.Wrap(err)
	}
	return next, nil
}

// classify turns a unique-constraint violation into db.Duplicate,
// recovering the field from the <collection>_<field>_uq index name in
// the engine's message. Other errors pass through.
func classify(collection string, err error) error {
	if sqlite.ErrCode(err) != sqlite.ResultConstraintUnique {
		return err
	}
	field := ""
	msg := err.Error()
	if i := strings.Index(msg, collection+"_"); i >= 0 {
		rest := msg[i+len(collection)+1:]
		if j := strings.Index(rest, "_uq"); j >= 0 {
			field = rest[:j]
		}
	}
	return &db.Duplicate{Collection: collection, Field: field, Err: err}
}
