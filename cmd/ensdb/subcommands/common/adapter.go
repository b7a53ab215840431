package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/pkg/db"
	"github.com/latticeqcd/ensdb/pkg/db/dial"
	"github.com/latticeqcd/ensdb/pkg/domain/defaults"
	"github.com/latticeqcd/ensdb/pkg/domain/ensemble"
	"github.com/latticeqcd/ensdb/pkg/domain/oplog"
)

// Services bundles the wired-up core handed to each subcommand task.
type Services struct {
	Backend   db.Backend
	Ensembles *ensemble.Repository
	Ops       *oplog.Log
	Defaults  *defaults.Store

	Base   string
	DBURI  string
	Logger *slog.Logger
}

// NewServices wires the repositories over one backend. Split out of
// NewTask so tests can build Services on a backend of their own.
func NewServices(backend db.Backend, base, dbURI string, logger *slog.Logger) Services {
	ops := oplog.New(backend, logger)
	return Services{
		Backend:   backend,
		Ensembles: ensemble.New(backend, ops, base, logger),
		Ops:       ops,
		Defaults:  defaults.New(backend),
		Base:      base,
		DBURI:     dbURI,
		Logger:    logger,
	}
}

type Task[T any] func(
	ctx context.Context,
	logger *log.Logger,
	s Services,
	cl flarc.Commandline[T],
	params []any,
) error

// NewTask adapts a Task to flarc: it digs the common flags out of the
// positional params, opens the backend they name, and closes it when
// the task returns.
func NewTask[T any](task Task[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], pos []any) error {
		var cf CommonFlags
		found := false
		newpos := make([]any, 0, len(pos))
		for _, p := range pos {
			switch v := p.(type) {
			case CommonFlags:
				found = true
				cf = v
			default:
				newpos = append(newpos, p)
			}
		}
		if !found {
			return errors.New("programming error: common flags not found")
		}

		logger := log.New(cl.Stderr(), fmt.Sprintf("[%s] ", cl.Fullname()), log.LstdFlags)
		slogger := slog.New(slog.NewTextHandler(
			cl.Stderr(), &slog.HandlerOptions{Level: slog.LevelWarn},
		))

		backend, err := dial.Open(ctx, cf.DB, slogger)
		if err != nil {
			return err
		}
		defer backend.Close()

		return task(ctx, logger, NewServices(backend, cf.Base, cf.DB, slogger), cl, newpos)
	}
}
