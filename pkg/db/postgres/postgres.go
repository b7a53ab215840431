// Package postgres backs db.Backend with PostgreSQL, for groups that
// share one record across machines. Documents live as JSONB in
// per-collection tables; equality queries compile to containment
// (doc @> ...), so they use the same plans a native JSONB schema
// would. All mutations are single statements, atomic without explicit
// transactions.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/latticeqcd/ensdb/pkg/db"
	kpool "github.com/latticeqcd/ensdb/pkg/db/postgres/pool"
	"github.com/latticeqcd/ensdb/pkg/xerrors"
)

// Each statement runs on its own: pgx's extended protocol refuses
// multi-statement strings. Unique index names follow
// <collection>_<field>_uq; Duplicate reporting relies on that.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ensembles (
		id  BIGSERIAL PRIMARY KEY,
		doc JSONB NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ensembles_directory_uq
		ON ensembles ((doc->>'directory'))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ensembles_nickname_uq
		ON ensembles ((doc->>'nickname')) WHERE doc->>'nickname' <> ''`,
	`CREATE TABLE IF NOT EXISTS operations (
		id  BIGSERIAL PRIMARY KEY,
		doc JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS operations_ensemble_ix
		ON operations ((doc->'ensemble_id'))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS operations_op_id_uq
		ON operations ((doc->'ensemble_id'), (doc->'op_id'))`,
	`CREATE TABLE IF NOT EXISTS default_params (
		id  BIGSERIAL PRIMARY KEY,
		doc JSONB NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS default_params_variant_uq
		ON default_params (
			(doc->'ensemble_id'), (doc->>'job_type'), (doc->>'variant')
		)`,
}

type backend struct {
	pool   kpool.Pool
	logger *slog.Logger
}

var _ db.Backend = (*backend)(nil)

// New connects to the database the URI names and ensures the schema.
// The caller owns Close.
func New(ctx context.Context, uri string, logger *slog.Logger) (db.Backend, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	base, err := pgxpool.Connect(ctx, uri)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	b := &backend{pool: kpool.Wrap(base), logger: logger}
	if err := b.ensureSchema(ctx); err != nil {
		b.pool.Close()
		return nil, err
	}
	logger.Debug("postgres backend opened")
	return b, nil
}

// Build wraps an already-connected pool. Tests use it to interpose.
func Build(p kpool.Pool, logger *slog.Logger) (db.Backend, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &backend{pool: p, logger: logger}, nil
}

func (b *backend) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := b.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

func (b *backend) Close() error {
	b.pool.Close()
	return nil
}

// where compiles a Query into a WHERE clause. The "id" field addresses
// the primary key column; everything else folds into one JSONB
// containment test. Placeholders start at $first.
func where(q db.Query, first int) (string, []any, error) {
	conds := []string{}
	args := []any{}
	n := first
	rest := map[string]any{}
	for field, value := range q {
		if field == "id" {
			conds = append(conds, fmt.Sprintf("id = $%d", n))
			args = append(args, value)
			n++
		} else {
			rest[field] = value
		}
	}
	if 0 < len(rest) {
		raw, err := json.Marshal(rest)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, fmt.Sprintf("doc @> $%d::jsonb", n))
		args = append(args, string(raw))
	}
	if len(conds) == 0 {
		return "TRUE", nil, nil
	}
	return strings.Join(conds, " AND "), args, nil
}

// orderBy sorts on the JSONB value, not its text rendering, so numeric
// fields order numerically and rfctime strings chronologically.
func orderBy(opts db.FindOptions) string {
	if opts.OrderBy == "" {
		return ""
	}
	column := fmt.Sprintf("doc->'%s'", opts.OrderBy)
	if opts.OrderBy == "id" {
		column = "id"
	}
	direction := "ASC"
	if opts.Desc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

func (b *backend) Insert(ctx context.Context, collection string, doc db.Document) (int64, error) {
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

	var id int64
	err = b.pool.QueryRow(
		ctx,
		fmt.Sprintf("INSERT INTO %s (doc) VALUES ($1::jsonb) RETURNING id", collection),
		string(raw),
	).Scan(&id)
	if err != nil {
		return 0, classify(collection, err)
	}
	return id, nil
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
	cond, args, err := where(q, 1)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT id, doc FROM %s WHERE %s%s", collection, cond, orderBy(opts))
	if 0 < opts.Limit {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	defer rows.Close()

	found := []db.Document{}
	for rows.Next() {
		var id int64
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, xerrors.Wrap(err)
		}
		doc := db.Document{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("corrupt document %d: %w", id, err)
		}
		doc["id"] = id
		found = append(found, doc)
	}
	return found, rows.Err()
}

func (b *backend) UpdateOne(ctx context.Context, collection string, q db.Query, p db.Patch) (bool, error) {
	set := p.Set
	if set == nil {
		set = map[string]any{}
	}
	rawSet, err := json.Marshal(set)
	if err != nil {
		return false, err
	}
	unset := p.Unset
	if unset == nil {
		unset = []string{}
	}

	cond, args, err := where(q, 3)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(
		`UPDATE %[1]s SET doc = (doc - $2::text[]) || $1::jsonb
		 WHERE id = (SELECT id FROM %[1]s WHERE %[2]s LIMIT 1)
		 RETURNING id`,
		collection, cond,
	)

	var id int64
	err = b.pool.QueryRow(ctx, query, append([]any{string(rawSet), unset}, args...)...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(collection, err)
	}
	return true, nil
}

func (b *backend) DeleteMany(ctx context.Context, collection string, q db.Query) (int64, error) {
	cond, args, err := where(q, 1)
	if err != nil {
		return 0, err
	}
	tag, err := b.pool.Exec(
		ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", collection, cond), args...,
	)
	if err != nil {
		return 0, xerrors.Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func (b *backend) Increment(ctx context.Context, collection string, q db.Query, field string) (int64, error) {
	cond, args, err := where(q, 1)
	if err != nil {
		return 0, err
	}
	// One statement: PostgreSQL's row lock makes concurrent callers
	// queue here, each reading the previous writer's value.
	query := fmt.Sprintf(
		`UPDATE %[1]s
		 SET doc = jsonb_set(doc, '{%[2]s}', to_jsonb(COALESCE((doc->>'%[2]s')::bigint, 0) + 1), true)
		 WHERE id = (SELECT id FROM %[1]s WHERE %[3]s LIMIT 1)
		 RETURNING (doc->>'%[2]s')::bigint`,
		collection, field, cond,
	)

	var next int64
	err = b.pool.QueryRow(ctx, query, args...).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, &db.Missing{Collection: collection, Query: q}
	}
	if err != nil {
		return 0, xerrors.Wrap(err)
	}
	return next, nil
}

// classify turns a unique violation into db.Duplicate, recovering the
// field from the constraint name. Other errors pass through.
func classify(collection string, err error) error {
	pgerr := new(pgconn.PgError)
	if !errors.As(err, &pgerr) || pgerr.Code != pgerrcode.UniqueViolation {
		return err
	}
	field := strings.TrimSuffix(
		strings.TrimPrefix(pgerr.ConstraintName, collection+"_"), "_uq",
	)
	if field == pgerr.ConstraintName {
		field = ""
	}
	return &db.Duplicate{Collection: collection, Field: field, Err: err}
}
