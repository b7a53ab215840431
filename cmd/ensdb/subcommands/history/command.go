package history

import (
	"context"
	"encoding/json"
	"log"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/view"
)

type Flag struct {
	OperationType string `flag:"operation-type" metavar:"TYPE" help:"only operations of this type"`
	Clear         bool   `flag:"clear" help:"delete the whole history and reset the operation counter"`
}

const ARG_ENSEMBLE = "ENSEMBLE"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Print (or clear) an ensemble's operation history.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
		},
		common.NewTask(Task()),
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

		if cl.Flags().Clear {
			deleted, err := s.Ops.Clear(ctx, e.Id)
			if err != nil {
				return err
			}
			logger.Printf("ensemble %d: %d operations cleared", e.Id, deleted)
			return nil
		}

		ops, err := s.Ops.List(ctx, e.Id, cl.Flags().OperationType)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(view.FromOperations(ops))
	}
}
