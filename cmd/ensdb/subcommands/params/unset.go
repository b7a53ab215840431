package params

import (
	"context"
	"log"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
)

func NewUnset() (flarc.Command, error) {
	return flarc.NewCommand(
		"Drop the default params of one (job type, variant).",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
			{Name: ARG_JOB_TYPE, Required: true, Help: "job type, e.g. hmc, smear, wit"},
			{Name: ARG_VARIANT, Required: true, Help: "variant, e.g. tepid, continue, stout8"},
		},
		common.NewTask(UnsetTask()),
	)
}

func UnsetTask() common.Task[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		s common.Services,
		cl flarc.Commandline[struct{}],
		_ []any,
	) error {
		args := cl.Args()
		jobType := args[ARG_JOB_TYPE][0]
		variant := args[ARG_VARIANT][0]

		e, err := s.Ensembles.Resolve(ctx, args[ARG_ENSEMBLE][0])
		if err != nil {
			return err
		}
		if err := s.Defaults.Delete(ctx, e.Id, jobType, variant); err != nil {
			return err
		}
		logger.Printf("ensemble %d: default params for %s/%s dropped", e.Id, jobType, variant)
		return nil
	}
}
