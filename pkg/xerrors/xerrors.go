// Package xerrors wraps errors with the location that raised them.
//
// Wrapped errors chain their messages with " <- ", so reading one from
// the CLI gives the path a failure took through the storage layer:
//
//	@ (*sqliteBackend).Insert "backend.go" l123 <- UNIQUE constraint failed
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

type withCaller struct {
	file     string
	line     int
	funcname string
	note     string
	err      error
}

func (e *withCaller) Error() string {
	if e.note == "" {
		return fmt.Sprintf(`@ %s "%s" l%d <- %s`, e.funcname, e.file, e.line, e.err.Error())
	}
	return fmt.Sprintf(`@ %s "%s" l%d (%s) <- %s`, e.funcname, e.file, e.line, e.note, e.err.Error())
}

func (e *withCaller) Unwrap() error {
	return e.err
}

// New creates a located error from a message.
func New(text string) error {
	return wrap("", errors.New(text), 1)
}

// Wrap annotates err with the caller's location.
func Wrap(err error) error {
	return wrap("", err, 1)
}

// WithNote annotates err with the caller's location and a short note.
func WithNote(note string, err error) error {
	return wrap(note, err, 1)
}

func wrap(note string, err error, depth int) error {
	pc, file, line, ok := runtime.Caller(depth + 1)
	funcname := "(unknown func)"
	if !ok {
		file = "?"
		line = -1
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcname = fn.Name()
	}
	return &withCaller{
		file:     file,
		line:     line,
		funcname: funcname,
		note:     note,
		err:      err,
	}
}
