package rm

import (
	"context"
	"log"
	"os"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
)

type Flag struct {
	RmDir bool `flag:"rm-dir" help:"also remove the ensemble's directory tree"`
}

const ARG_ENSEMBLE = "ENSEMBLE"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Delete an ensemble record.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Delete an ensemble record together with its operations and default
params. The directory tree is left on disk unless --rm-dir is given;
configurations are expensive and records are not.
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
		if err := s.Ensembles.Delete(ctx, e.Id); err != nil {
			return err
		}
		logger.Printf("ensemble %d removed", e.Id)

		if cl.Flags().RmDir {
			if err := os.RemoveAll(e.Directory); err != nil {
				return err
			}
			logger.Printf("removed %s", e.Directory)
		} else {
			logger.Printf("directory %s left on disk", e.Directory)
		}
		return nil
	}
}
