// Package ensemble holds the repository over ensemble records: create,
// resolve (by id, nickname or path), list, nickname and description
// management, and removal. It is the only writer of ensemble rows
// besides the promoter and the config scanner.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/latticeqcd/ensdb/pkg/db"
	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/domain/dirpath"
	"github.com/latticeqcd/ensdb/pkg/domain/oplog"
	"github.com/latticeqcd/ensdb/pkg/utils/rfctime"
)

type Repository struct {
	backend db.Backend
	log     *oplog.Log

	// base roots the TUNING/ and ENSEMBLES/ trees.
	base string

	logger *slog.Logger
}

func New(backend db.Backend, log *oplog.Log, base string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Repository{backend: backend, log: log, base: base, logger: logger}
}

// Create registers a new ensemble: derives its canonical directory,
// inserts the record, builds the directory tree with the standard
// subdirectories, and logs an ADD_ENSEMBLE operation. The record goes
// in before the tree so that a directory or nickname collision fails
// before anything touches the filesystem.
func (r *Repository) Create(
	ctx context.Context,
	physics map[string]string, status domain.EnsembleStatus,
	nickname, description string,
) (*domain.Ensemble, error) {
	directory, err := dirpath.Derive(r.base, status, physics)
	if err != nil {
		return nil, err
	}

	created := rfctime.Now()
	id, err := r.backend.Insert(ctx, db.Ensembles, db.Document{
		"physics":         physicsDoc(physics),
		"status":          string(status),
		"directory":       directory,
		"nickname":        nickname,
		"description":     description,
		"creation_time":   rfctime.Format(created),
		"operation_count": int64(0),
	})
	if err != nil {
		return nil, classifyDuplicate(err)
	}

	made := []string{}
	for _, sub := range dirpath.Subdirs {
		path := filepath.Join(directory, sub)
		_, statErr := os.Stat(path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			// Roll the record back out and take the pieces of tree this
			// call built with it; a half-made tree under a registered
			// directory would shadow later creates. Anything that was
			// already on disk stays there.
			for _, m := range made {
				if rerr := os.RemoveAll(m); rerr != nil {
					r.logger.Error("could not remove directory after mkdir failure",
						"ensemble", id, "path", m, "error", rerr)
				}
			}
			os.Remove(directory)
			if _, derr := r.backend.DeleteMany(ctx, db.Ensembles, db.Query{"id": id}); derr != nil {
				r.logger.Error("could not remove record after mkdir failure",
					"ensemble", id, "error", derr)
			}
			return nil, fmt.Errorf("creating ensemble tree %s: %w", directory, err)
		}
		if os.IsNotExist(statErr) {
			made = append(made, path)
		}
	}

	if _, err := r.log.Record(ctx, id, domain.OpAddEnsemble, domain.Completed, map[string]string{
		"status":    string(status),
		"directory": directory,
	}); err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// Get returns one ensemble by its backend id.
func (r *Repository) Get(ctx context.Context, id int64) (*domain.Ensemble, error) {
	doc, err := r.backend.FindOne(ctx, db.Ensembles, db.Query{"id": id})
	if errors.Is(err, db.ErrMissing) {
		return nil, domain.NewErrEnsembleNotFound(fmt.Sprint(id))
	}
	if err != nil {
		return nil, err
	}
	return fromDoc(doc)
}

// Resolve turns a user-supplied token into an ensemble. Tokens are
// tried as a numeric id, then a nickname, then a directory path; "."
// and relative paths resolve against the working directory, and a path
// below an ensemble's directory finds that ensemble by longest prefix.
func (r *Repository) Resolve(ctx context.Context, token string) (*domain.Ensemble, error) {
	if id, err := strconv.ParseInt(token, 10, 64); err == nil {
		found, err := r.Get(ctx, id)
		if err == nil {
			return found, nil
		}
		if !errors.Is(err, domain.ErrEnsembleNotFound) {
			return nil, err
		}
	}

	if token != "" && token != "." {
		doc, err := r.backend.FindOne(ctx, db.Ensembles, db.Query{"nickname": token})
		if err == nil {
			return fromDoc(doc)
		}
		if !errors.Is(err, db.ErrMissing) {
			return nil, err
		}
	}

	path, err := filepath.Abs(token)
	if err != nil {
		return nil, domain.NewErrEnsembleNotFound(token)
	}

	doc, err := r.backend.FindOne(ctx, db.Ensembles, db.Query{"directory": path})
	if err == nil {
		return fromDoc(doc)
	}
	if !errors.Is(err, db.ErrMissing) {
		return nil, err
	}

	return r.resolveByPrefix(ctx, token, path)
}

// resolveByPrefix finds the ensemble whose directory is the longest
// proper ancestor of path. Supports resolving "." from anywhere inside
// an ensemble tree.
func (r *Repository) resolveByPrefix(ctx context.Context, token, path string) (*domain.Ensemble, error) {
	all, err := r.backend.Find(ctx, db.Ensembles, db.Query{}, db.FindOptions{})
	if err != nil {
		return nil, err
	}

	var best db.Document
	bestLen := -1
	for _, doc := range all {
		directory := doc.String("directory")
		if !strings.HasPrefix(path, directory+string(filepath.Separator)) {
			continue
		}
		if bestLen < len(directory) {
			best = doc
			bestLen = len(directory)
		}
	}
	if best == nil {
		return nil, domain.NewErrEnsembleNotFound(token)
	}
	return fromDoc(best)
}

// SetNickname renames the ensemble's alias. Empty clears it, and
// clearing an already clear nickname is a no-op.
func (r *Repository) SetNickname(ctx context.Context, id int64, nickname string) error {
	matched, err := r.backend.UpdateOne(
		ctx, db.Ensembles,
		db.Query{"id": id},
		db.Patch{Set: map[string]any{"nickname": nickname}},
	)
	if err != nil {
		return classifyDuplicate(err)
	}
	if !matched {
		return domain.NewErrEnsembleNotFound(fmt.Sprint(id))
	}
	return nil
}

func (r *Repository) SetDescription(ctx context.Context, id int64, description string) error {
	matched, err := r.backend.UpdateOne(
		ctx, db.Ensembles,
		db.Query{"id": id},
		db.Patch{Set: map[string]any{"description": description}},
	)
	if err != nil {
		return err
	}
	if !matched {
		return domain.NewErrEnsembleNotFound(fmt.Sprint(id))
	}
	return nil
}

// List returns ensembles matching the filter, ordered by id or by
// directory path.
func (r *Repository) List(ctx context.Context, filter domain.EnsembleFilter) ([]domain.Ensemble, error) {
	q := db.Query{}
	if filter.Status != "" {
		q["status"] = string(filter.Status)
	}
	opts := db.FindOptions{OrderBy: "id"}
	if filter.Order == domain.OrderByPath {
		opts.OrderBy = "directory"
	}

	found, err := r.backend.Find(ctx, db.Ensembles, q, opts)
	if err != nil {
		return nil, err
	}
	ensembles := make([]domain.Ensemble, 0, len(found))
	for _, doc := range found {
		e, err := fromDoc(doc)
		if err != nil {
			return nil, err
		}
		ensembles = append(ensembles, *e)
	}
	return ensembles, nil
}

// Delete removes the ensemble record together with its operations and
// default params. The directory tree on disk is left alone; removing
// physics data is an operator's call, never this tool's.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.backend.DeleteMany(ctx, db.Operations, db.Query{"ensemble_id": id}); err != nil {
		return err
	}
	if _, err := r.backend.DeleteMany(ctx, db.DefaultParams, db.Query{"ensemble_id": id}); err != nil {
		return err
	}
	deleted, err := r.backend.DeleteMany(ctx, db.Ensembles, db.Query{"id": id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return domain.NewErrEnsembleNotFound(fmt.Sprint(id))
	}
	return nil
}

// SetLatestConfigIndex records the highest checkpoint index seen by
// the config scanner. It never regresses: a smaller index (a partial
// or stale directory listing) leaves the stored value alone, and the
// stored value after the call is returned.
func (r *Repository) SetLatestConfigIndex(ctx context.Context, id int64, index int64) (int64, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if current.LatestConfigIndex != nil && index <= *current.LatestConfigIndex {
		return *current.LatestConfigIndex, nil
	}

	matched, err := r.backend.UpdateOne(
		ctx, db.Ensembles,
		db.Query{"id": id},
		db.Patch{Set: map[string]any{"latest_config_index": index}},
	)
	if err != nil {
		return 0, err
	}
	if !matched {
		return 0, domain.NewErrEnsembleNotFound(fmt.Sprint(id))
	}
	return index, nil
}

func physicsDoc(physics map[string]string) map[string]any {
	doc := map[string]any{}
	for k, v := range physics {
		doc[k] = v
	}
	return doc
}

func fromDoc(doc db.Document) (*domain.Ensemble, error) {
	id, ok := doc.Int64("id")
	if !ok {
		return nil, fmt.Errorf("ensemble record without id: %v", doc)
	}
	status, err := domain.AsEnsembleStatus(doc.String("status"))
	if err != nil {
		return nil, err
	}
	created, err := rfctime.Parse(doc.String("creation_time"))
	if err != nil {
		return nil, err
	}
	count, _ := doc.Int64("operation_count")

	e := &domain.Ensemble{
		Id:             id,
		Physics:        doc.StringMap("physics"),
		Status:         status,
		Directory:      doc.String("directory"),
		Nickname:       doc.String("nickname"),
		Description:    doc.String("description"),
		CreationTime:   created,
		OperationCount: count,
	}
	if index, ok := doc.Int64("latest_config_index"); ok {
		e.LatestConfigIndex = &index
	}
	return e, nil
}

// classifyDuplicate maps the backend's unique violations onto the
// repository's error taxonomy.
func classifyDuplicate(err error) error {
	dup := new(db.Duplicate)
	if !errors.As(err, &dup) {
		return err
	}
	switch dup.Field {
	case "nickname":
		return fmt.Errorf("%w: %s", domain.ErrDuplicateNickname, err)
	default:
		return fmt.Errorf("%w: %s", domain.ErrDuplicateEnsemble, err)
	}
}
