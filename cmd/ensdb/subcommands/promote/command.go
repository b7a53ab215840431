package promote

import (
	"context"
	"encoding/json"
	"log"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/view"
	"github.com/latticeqcd/ensdb/pkg/domain/promote"
)

type Flag struct {
	Force bool `flag:"force" help:"replace an existing directory at the production target"`
}

const ARG_ENSEMBLE = "ENSEMBLE"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Move an ensemble from TUNING to PRODUCTION.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Move an ensemble from TUNING to PRODUCTION: its directory tree is
renamed under the ENSEMBLES/ root and the record follows. If anything
fails after the move, the tree is moved back.

The promotion is recorded as a PROMOTE_ENSEMBLE operation either way.
`),
	)
}

func Task() common.Task[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		s common.Services,
		cl flarc.Commandline[Flag],
		_ []any,
	) error {
		token := cl.Args()[ARG_ENSEMBLE][0]

		e, err := s.Ensembles.Resolve(ctx, token)
		if err != nil {
			return err
		}

		promoter := promote.New(s.Backend, s.Ensembles, s.Ops, s.Logger)
		promoted, err := promoter.Promote(ctx, e.Id, cl.Flags().Force)
		if err != nil {
			return err
		}
		logger.Printf("ensemble %d promoted to %s", promoted.Id, promoted.Directory)

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(view.FromEnsemble(promoted))
	}
}
