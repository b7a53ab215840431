// Package promote carries an ensemble over the one-way TUNING to
// PRODUCTION transition: relocate the directory tree, flip the record,
// log the attempt. The move and the record update live in different
// subsystems, so the promoter is written as a saga with a compensating
// move-back instead of pretending a transaction exists.
package promote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/latticeqcd/ensdb/pkg/db"
	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/domain/dirpath"
	"github.com/latticeqcd/ensdb/pkg/domain/ensemble"
	"github.com/latticeqcd/ensdb/pkg/domain/oplog"
)

type Promoter struct {
	backend db.Backend
	repo    *ensemble.Repository
	log     *oplog.Log
	logger  *slog.Logger
}

func New(backend db.Backend, repo *ensemble.Repository, log *oplog.Log, logger *slog.Logger) *Promoter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Promoter{backend: backend, repo: repo, log: log, logger: logger}
}

// Promote moves the ensemble's tree from the TUNING root to the
// production root and flips its record. Preconditions: the ensemble is
// TUNING, and the target directory does not exist yet unless force
// (force removes whatever occupies the target first).
//
// Order matters: the filesystem moves first, the record follows. When
// the record update fails, the tree is moved back before the error
// surfaces; when even that fails, the returned *domain.PromotionError
// carries both failures for the operator. Every attempt, failed or
// not, leaves one PROMOTE_ENSEMBLE operation in the history.
func (p *Promoter) Promote(ctx context.Context, id int64, force bool) (*domain.Ensemble, error) {
	e, err := p.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if e.Status != domain.Tuning {
		return nil, p.failed(ctx, id, nil, &domain.PromotionError{
			EnsembleId: id,
			Err:        fmt.Errorf("ensemble is already %s", e.Status),
		})
	}

	base, err := dirpath.Base(e.Directory, domain.Tuning, e.Physics)
	if err != nil {
		return nil, p.failed(ctx, id, nil, &domain.PromotionError{EnsembleId: id, Err: err})
	}
	target, err := dirpath.Derive(base, domain.Production, e.Physics)
	if err != nil {
		return nil, p.failed(ctx, id, nil, &domain.PromotionError{EnsembleId: id, Err: err})
	}

	if _, err := os.Stat(target); err == nil {
		if !force {
			return nil, p.failed(ctx, id, nil, &domain.PromotionError{
				EnsembleId: id,
				Err:        fmt.Errorf("target directory %s already exists", target),
			})
		}
		if err := os.RemoveAll(target); err != nil {
			return nil, p.failed(ctx, id, nil, &domain.PromotionError{EnsembleId: id, Err: err})
		}
	}

	operationId, err := p.log.Start(ctx, id, domain.OpPromoteEnsemble, map[string]string{
		"from": e.Directory,
		"to":   target,
	})
	if err != nil {
		return nil, err
	}

	// Forward step 1: relocate the tree.
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, p.failed(ctx, id, &operationId, &domain.PromotionError{EnsembleId: id, Err: err})
	}
	if err := os.Rename(e.Directory, target); err != nil {
		return nil, p.failed(ctx, id, &operationId, &domain.PromotionError{EnsembleId: id, Err: err})
	}

	// Forward step 2: flip the record. The status guard makes this a
	// compare-and-swap, so a concurrent promotion cannot apply twice.
	matched, err := p.backend.UpdateOne(
		ctx, db.Ensembles,
		db.Query{"id": id, "status": string(domain.Tuning)},
		db.Patch{Set: map[string]any{
			"status":    string(domain.Production),
			"directory": target,
		}},
	)
	if err == nil && !matched {
		err = fmt.Errorf("ensemble left TUNING underneath this promotion")
	}
	if err != nil {
		// Compensate: put the tree back where the record says it is.
		perr := &domain.PromotionError{EnsembleId: id, Err: err}
		if rerr := os.Rename(target, e.Directory); rerr != nil {
			perr.RollbackErr = rerr
			p.logger.Error("rollback failed, tree and record disagree",
				"ensemble", id, "tree", target, "record", e.Directory)
		}
		return nil, p.failed(ctx, id, &operationId, perr)
	}

	if _, err := p.log.Update(
		ctx, id, domain.OpPromoteEnsemble, domain.Completed, nil, &operationId,
	); err != nil {
		// The promotion itself held; only the bookkeeping is short.
		p.logger.Warn("promotion done but its operation is still RUNNING",
			"ensemble", id, "operation", operationId, "error", err)
	}

	return p.repo.Get(ctx, id)
}

// failed settles the operation record for an unsuccessful attempt and
// passes the error through. Without an operation id (precondition
// failures) it appends an already-FAILED record instead, so that every
// attempt is visible in the history.
func (p *Promoter) failed(ctx context.Context, id int64, operationId *int64, perr *domain.PromotionError) error {
	params := map[string]string{"error": perr.Err.Error()}
	var err error
	if operationId == nil {
		_, err = p.log.Record(ctx, id, domain.OpPromoteEnsemble, domain.Failed, params)
	} else {
		_, err = p.log.Update(ctx, id, domain.OpPromoteEnsemble, domain.Failed, params, operationId)
	}
	if err != nil {
		p.logger.Warn("could not log the failed promotion",
			"ensemble", id, "error", err)
	}
	return perr
}
