package params

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/scripts"
)

type SetFlag struct {
	Input string `flag:"input" metavar:"\"k=v ...\"" help:"input-file parameters of the recipe"`
	Job   string `flag:"job" metavar:"\"k=v ...\"" help:"batch-job parameters of the recipe"`
}

func NewSet() (flarc.Command, error) {
	return flarc.NewCommand(
		"Store the default params of one (job type, variant).",
		SetFlag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
			{Name: ARG_JOB_TYPE, Required: true, Help: "job type, e.g. hmc, smear, wit"},
			{Name: ARG_VARIANT, Required: true, Help: "variant, e.g. tepid, continue, stout8"},
		},
		common.NewTask(SetTask()),
		flarc.WithDescription(`
Store the default params of one (job type, variant). The stored recipe
is replaced as a whole, not merged: what you set is exactly what script
generation will see.
`),
	)
}

func SetTask() common.Task[SetFlag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		s common.Services,
		cl flarc.Commandline[SetFlag],
		_ []any,
	) error {
		args := cl.Args()
		jobType := args[ARG_JOB_TYPE][0]
		variant := args[ARG_VARIANT][0]

		input, err := parseTokens(cl.Flags().Input)
		if err != nil {
			return fmt.Errorf("%w: --input: %s", flarc.ErrUsage, err)
		}
		job, err := parseTokens(cl.Flags().Job)
		if err != nil {
			return fmt.Errorf("%w: --job: %s", flarc.ErrUsage, err)
		}

		e, err := s.Ensembles.Resolve(ctx, args[ARG_ENSEMBLE][0])
		if err != nil {
			return err
		}

		if err := s.Defaults.Set(ctx, domain.DefaultParams{
			EnsembleId:  e.Id,
			JobType:     jobType,
			Variant:     variant,
			InputParams: input,
			JobParams:   job,
		}); err != nil {
			return err
		}
		logger.Printf("ensemble %d: default params for %s/%s stored", e.Id, jobType, variant)
		return nil
	}
}

func parseTokens(tokens string) (map[string]string, error) {
	if tokens == "" {
		return map[string]string{}, nil
	}
	return scripts.ParseParams(strings.Fields(tokens))
}
