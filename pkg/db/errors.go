package db

import (
	"errors"
	"fmt"
)

var (
	// ErrMissing: the query matched no document.
	ErrMissing = errors.New("no document matches")

	// ErrDuplicate: an insert or update collided on a unique field.
	ErrDuplicate = errors.New("unique constraint violated")
)

// Missing carries which lookup came up empty. errors.Is(err, ErrMissing)
// holds for it.
type Missing struct {
	Collection string
	Query      Query
}

func (e *Missing) Error() string {
	return fmt.Sprintf("%s: %s %v", ErrMissing, e.Collection, e.Query)
}

func (e *Missing) Is(target error) bool {
	return target == ErrMissing
}

// Duplicate carries which unique field collided. errors.Is(err,
// ErrDuplicate) holds for it. Field may be empty when the engine did
// not say.
type Duplicate struct {
	Collection string
	Field      string
	Err        error
}

func (e *Duplicate) Error() string {
	return fmt.Sprintf("%s: %s field %q: %s", ErrDuplicate, e.Collection, e.Field, e.Err)
}

func (e *Duplicate) Is(target error) bool {
	return target == ErrDuplicate
}

func (e *Duplicate) Unwrap() error {
	return e.Err
}
