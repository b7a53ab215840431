package domain

import (
	"fmt"
	"time"

	"github.com/latticeqcd/ensdb/pkg/utils/cmp"
)

type EnsembleStatus string

const (
	// The ensemble is being tuned; its directory lives under the
	// TUNING root and may be promoted later.
	Tuning EnsembleStatus = "TUNING"

	// The ensemble has been promoted; its directory lives under the
	// production root. There is no way back to TUNING.
	Production EnsembleStatus = "PRODUCTION"
)

func (s EnsembleStatus) String() string {
	return string(s)
}

func AsEnsembleStatus(status string) (EnsembleStatus, error) {
	switch status {
	case string(Tuning):
		return Tuning, nil
	case string(Production):
		return Production, nil
	default:
		return "", fmt.Errorf("'%s' is not EnsembleStatus", status)
	}
}

// Ensemble is one parameterized lattice simulation tracked by the
// system. It is the root entity: operations and default params are
// owned by, and removed with, their ensemble.
type Ensemble struct {
	Id int64

	// Physics maps parameter name to its textual value (beta, b, Ls,
	// mc, ms, ml, L, T, ...). Immutable after creation: it is the
	// input of directory derivation, and rewriting it would orphan
	// the filesystem tree.
	Physics map[string]string

	Status EnsembleStatus

	// Directory is the canonical absolute path derived from Status
	// and Physics. It is never edited independently of them.
	Directory string

	// Nickname is an optional alias, unique across all ensembles.
	// Empty means unset.
	Nickname string

	Description string

	CreationTime time.Time

	// OperationCount is the number of operations ever started on this
	// ensemble. It only grows (clearing history resets it), and its
	// successor is the next operation's ordinal id.
	OperationCount int64

	// LatestConfigIndex is the highest checkpoint index the config
	// scanner has seen, or nil before the first scan. It never
	// regresses.
	LatestConfigIndex *int64
}

func (e *Ensemble) Equal(o *Ensemble) bool {
	if (e == nil) || (o == nil) {
		return (e == nil) && (o == nil)
	}
	if (e.LatestConfigIndex == nil) != (o.LatestConfigIndex == nil) {
		return false
	}
	if e.LatestConfigIndex != nil && *e.LatestConfigIndex != *o.LatestConfigIndex {
		return false
	}
	return e.Id == o.Id &&
		e.Status == o.Status &&
		e.Directory == o.Directory &&
		e.Nickname == o.Nickname &&
		e.Description == o.Description &&
		e.CreationTime.Equal(o.CreationTime) &&
		e.OperationCount == o.OperationCount &&
		cmp.MapEq(e.Physics, o.Physics)
}

// EnsembleOrder selects the ordering of List results.
type EnsembleOrder string

const (
	OrderById   EnsembleOrder = "id"
	OrderByPath EnsembleOrder = "path"
)

func AsEnsembleOrder(order string) (EnsembleOrder, error) {
	switch order {
	case string(OrderById):
		return OrderById, nil
	case string(OrderByPath):
		return OrderByPath, nil
	default:
		return "", fmt.Errorf("'%s' is not EnsembleOrder", order)
	}
}

// EnsembleFilter narrows List results. Zero values mean "match any".
type EnsembleFilter struct {
	Status EnsembleStatus
	Order  EnsembleOrder
}
