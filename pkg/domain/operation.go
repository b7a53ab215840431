package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/latticeqcd/ensdb/pkg/utils/cmp"
)

type OpStatus string

const (
	// The operation's job has been launched and not yet reported back.
	Running OpStatus = "RUNNING"

	// Terminal states. An operation reaches exactly one of them and
	// never leaves it.
	Completed OpStatus = "COMPLETED"
	Failed    OpStatus = "FAILED"
	Canceled  OpStatus = "CANCELED"
)

func (s OpStatus) String() string {
	return string(s)
}

func (s OpStatus) Terminal() bool {
	switch s {
	case Completed, Failed, Canceled:
		return true
	default:
		return false
	}
}

func AsOpStatus(status string) (OpStatus, error) {
	switch status {
	case string(Running):
		return Running, nil
	case string(Completed):
		return Completed, nil
	case string(Failed):
		return Failed, nil
	case string(Canceled):
		return Canceled, nil
	default:
		return "", fmt.Errorf("'%s' is not OpStatus", status)
	}
}

// Well-known operation types. Type is free-form; these are the ones the
// toolkit itself writes.
const (
	OpAddEnsemble     = "ADD_ENSEMBLE"
	OpPromoteEnsemble = "PROMOTE_ENSEMBLE"
)

// Operation is one recorded unit of work against an ensemble: a job
// run, a promotion, a note. Operations form an append-only history;
// they are removed only by clearing the whole history of an ensemble.
type Operation struct {
	// Id is the ordinal of the operation within its ensemble, counted
	// from 1. It is unique per ensemble, not globally.
	Id int64

	EnsembleId int64

	// Type tags what ran, e.g. "HMC_tepid", "GLU_SMEAR", "WIT_MRES",
	// "PROMOTE_ENSEMBLE", "NOTE".
	Type string

	Status OpStatus

	// Params accumulates across updates: a later update merges new
	// keys into the map instead of replacing it.
	Params map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (op *Operation) Equal(o *Operation) bool {
	if (op == nil) || (o == nil) {
		return (op == nil) && (o == nil)
	}
	return op.Id == o.Id &&
		op.EnsembleId == o.EnsembleId &&
		op.Type == o.Type &&
		op.Status == o.Status &&
		op.CreatedAt.Equal(o.CreatedAt) &&
		op.UpdatedAt.Equal(o.UpdatedAt) &&
		cmp.MapEq(op.Params, o.Params)
}

var ErrInvalidOpStateChanging = errors.New("cannot change operation state")

func NewErrInvalidOpStateChanging(from, to OpStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidOpStateChanging, from, to)
}
