package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrEnsembleNotFound  = errors.New("ensemble not found")
	ErrOperationNotFound = errors.New("operation not found")

	ErrDuplicateEnsemble = errors.New("ensemble already exists")
	ErrDuplicateNickname = errors.New("nickname already in use")

	ErrMissingParameter = errors.New("missing required parameter")
)

// NewErrEnsembleNotFound echoes the token the caller tried to resolve.
func NewErrEnsembleNotFound(token string) error {
	return fmt.Errorf("%w: %s", ErrEnsembleNotFound, token)
}

func NewErrMissingParameter(keys ...string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, strings.Join(keys, ", "))
}

// ConnectionError reports that the storage backend could not be
// reached or refused the credentials. It is fatal: the core never
// retries it.
type ConnectionError struct {
	URI string
	Err error
}

// Error renders the URI with its password masked: connection failures
// end up on stderr and in job logs, and a postgres URI carries
// credentials in its userinfo.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to backend %s: %s", redactURI(e.URI), e.Err)
}

func redactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.User == nil {
		return uri
	}
	return u.Redacted()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// PromotionError reports a failed TUNING to PRODUCTION transition. Err
// is the failure of the forward step. When the compensating move-back
// of the directory tree also failed, RollbackErr carries that second
// failure so an operator can reconcile the tree by hand; otherwise the
// filesystem was restored and only Err needs attention.
type PromotionError struct {
	EnsembleId int64
	Err        error

	RollbackErr error
}

func (e *PromotionError) Error() string {
	if e.RollbackErr != nil {
		return fmt.Sprintf(
			"promotion of ensemble %d failed: %s; rollback ALSO failed, filesystem needs manual reconciliation: %s",
			e.EnsembleId, e.Err, e.RollbackErr,
		)
	}
	return fmt.Sprintf("promotion of ensemble %d failed (rolled back): %s", e.EnsembleId, e.Err)
}

func (e *PromotionError) Unwrap() error {
	return e.Err
}
