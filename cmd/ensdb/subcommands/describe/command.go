package describe

import (
	"context"
	"log"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
)

const (
	ARG_ENSEMBLE    = "ENSEMBLE"
	ARG_DESCRIPTION = "DESCRIPTION"
)

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Replace an ensemble's description.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
			{
				Name: ARG_DESCRIPTION, Required: true,
				Help: "new description; an empty string clears it",
			},
		},
		common.NewTask(Task()),
	)
}

func Task() common.Task[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		s common.Services,
		cl flarc.Commandline[struct{}],
		_ []any,
	) error {
		token := cl.Args()[ARG_ENSEMBLE][0]
		description := cl.Args()[ARG_DESCRIPTION][0]

		e, err := s.Ensembles.Resolve(ctx, token)
		if err != nil {
			return err
		}
		if err := s.Ensembles.SetDescription(ctx, e.Id, description); err != nil {
			return err
		}
		logger.Printf("ensemble %d: description updated", e.Id)
		return nil
	}
}
