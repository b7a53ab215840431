// Package oplog appends and updates the operation history of an
// ensemble: one record per job run (or promotion, or note), each with
// a RUNNING -> terminal lifecycle and a per-ensemble ordinal id.
package oplog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/latticeqcd/ensdb/pkg/db"
	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/utils/rfctime"
)

type Log struct {
	backend db.Backend
	logger  *slog.Logger
}

func New(backend db.Backend, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Log{backend: backend, logger: logger}
}

// Start appends a RUNNING operation and returns its ordinal id. The
// ordinal comes from an atomic bump of the ensemble's operation_count,
// so concurrent starters each get a distinct one; a crash between the
// bump and the insert leaves a gap, which readers tolerate.
func (l *Log) Start(ctx context.Context, ensembleId int64, operationType string, params map[string]string) (int64, error) {
	return l.Record(ctx, ensembleId, operationType, domain.Running, params)
}

// Record appends an operation already in its final state. It serves
// events that are not long-running jobs, like ensemble creation, where
// a RUNNING phase would be fiction.
func (l *Log) Record(
	ctx context.Context,
	ensembleId int64, operationType string,
	status domain.OpStatus, params map[string]string,
) (int64, error) {
	ordinal, err := l.backend.Increment(
		ctx, db.Ensembles, db.Query{"id": ensembleId}, "operation_count",
	)
	if errors.Is(err, db.ErrMissing) {
		return 0, domain.NewErrEnsembleNotFound(fmt.Sprint(ensembleId))
	}
	if err != nil {
		return 0, err
	}

	now := rfctime.Format(rfctime.Now())
	_, err = l.backend.Insert(ctx, db.Operations, db.Document{
		"ensemble_id":    ensembleId,
		"op_id":          ordinal,
		"operation_type": operationType,
		"op_status":      string(status),
		"params":         paramsDoc(params),
		"created_at":     now,
		"updated_at":     now,
	})
	if err != nil {
		return 0, err
	}
	return ordinal, nil
}

// Update merges params into an operation and moves its status. With
// operationId it addresses that exact operation; without, it picks the
// latest operation of operationType on the ensemble, the path used by
// job scripts that do not track their own id.
//
// A terminal operation accepts further terminal updates idempotently:
// params still merge, updated_at refreshes, but the terminal status
// stays and a warning is logged. Moving a terminal operation back to
// RUNNING is not a late report and fails with
// ErrInvalidOpStateChanging. History is never silently rewritten.
func (l *Log) Update(
	ctx context.Context,
	ensembleId int64, operationType string,
	status domain.OpStatus, params map[string]string,
	operationId *int64,
) (*domain.Operation, error) {
	current, err := l.find(ctx, ensembleId, operationType, operationId)
	if err != nil {
		return nil, err
	}

	if current.Status.Terminal() && status == domain.Running {
		return nil, domain.NewErrInvalidOpStateChanging(current.Status, status)
	}

	newStatus := status
	if current.Status.Terminal() && status != current.Status {
		l.logger.Warn(
			"operation is already terminal; keeping its status",
			"ensemble", ensembleId, "operation", current.Id,
			"have", current.Status, "requested", status,
		)
		newStatus = current.Status
	}

	merged := map[string]string{}
	for k, v := range current.Params {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	now := rfctime.Format(rfctime.Now())

	matched, err := l.backend.UpdateOne(
		ctx, db.Operations,
		db.Query{"ensemble_id": ensembleId, "op_id": current.Id},
		db.Patch{Set: map[string]any{
			"op_status":  string(newStatus),
			"params":     paramsDoc(merged),
			"updated_at": now,
		}},
	)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, domain.ErrOperationNotFound
	}

	updated := *current
	updated.Status = newStatus
	updated.Params = merged
	updated.UpdatedAt, _ = rfctime.Parse(now)
	return &updated, nil
}

// Get returns one operation by its ordinal id.
func (l *Log) Get(ctx context.Context, ensembleId, operationId int64) (*domain.Operation, error) {
	return l.find(ctx, ensembleId, "", &operationId)
}

// List returns the ensemble's history in ordinal order, optionally
// narrowed to one operation type.
func (l *Log) List(ctx context.Context, ensembleId int64, operationType string) ([]domain.Operation, error) {
	q := db.Query{"ensemble_id": ensembleId}
	if operationType != "" {
		q["operation_type"] = operationType
	}
	found, err := l.backend.Find(
		ctx, db.Operations, q, db.FindOptions{OrderBy: "op_id"},
	)
	if err != nil {
		return nil, err
	}
	operations := make([]domain.Operation, 0, len(found))
	for _, doc := range found {
		op, err := fromDoc(doc)
		if err != nil {
			return nil, err
		}
		operations = append(operations, *op)
	}
	return operations, nil
}

// Clear removes the whole history of an ensemble and resets its
// operation counter to zero. The ensemble itself is untouched.
//
// The operations go first and the counter resets last: if the delete
// fails, the counter still sits above every surviving ordinal and
// Start keeps working; a failure after the delete only leaves the
// counter high, which is an ordinal gap, and gaps are tolerated.
func (l *Log) Clear(ctx context.Context, ensembleId int64) (int64, error) {
	deleted, err := l.backend.DeleteMany(ctx, db.Operations, db.Query{"ensemble_id": ensembleId})
	if err != nil {
		return 0, err
	}

	matched, err := l.backend.UpdateOne(
		ctx, db.Ensembles,
		db.Query{"id": ensembleId},
		db.Patch{Set: map[string]any{"operation_count": int64(0)}},
	)
	if err != nil {
		return 0, err
	}
	if !matched {
		return 0, domain.NewErrEnsembleNotFound(fmt.Sprint(ensembleId))
	}
	return deleted, nil
}

func (l *Log) find(ctx context.Context, ensembleId int64, operationType string, operationId *int64) (*domain.Operation, error) {
	if operationId != nil {
		doc, err := l.backend.FindOne(
			ctx, db.Operations,
			db.Query{"ensemble_id": ensembleId, "op_id": *operationId},
		)
		if errors.Is(err, db.ErrMissing) {
			return nil, domain.ErrOperationNotFound
		}
		if err != nil {
			return nil, err
		}
		return fromDoc(doc)
	}

	found, err := l.backend.Find(
		ctx, db.Operations,
		db.Query{"ensemble_id": ensembleId, "operation_type": operationType},
		db.FindOptions{OrderBy: "created_at", Desc: true, Limit: 1},
	)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrOperationNotFound
	}
	return fromDoc(found[0])
}

func paramsDoc(params map[string]string) map[string]any {
	doc := map[string]any{}
	for k, v := range params {
		doc[k] = v
	}
	return doc
}

func fromDoc(doc db.Document) (*domain.Operation, error) {
	ordinal, ok := doc.Int64("op_id")
	if !ok {
		return nil, fmt.Errorf("operation record without op_id: %v", doc)
	}
	ensembleId, _ := doc.Int64("ensemble_id")
	status, err := domain.AsOpStatus(doc.String("op_status"))
	if err != nil {
		return nil, err
	}
	createdAt, err := rfctime.Parse(doc.String("created_at"))
	if err != nil {
		return nil, err
	}
	updatedAt, err := rfctime.Parse(doc.String("updated_at"))
	if err != nil {
		return nil, err
	}
	return &domain.Operation{
		Id:         ordinal,
		EnsembleId: ensembleId,
		Type:       doc.String("operation_type"),
		Status:     status,
		Params:     doc.StringMap("params"),
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}
