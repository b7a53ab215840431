package params

import (
	"context"
	"log"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
)

func NewImport() (flarc.Command, error) {
	return flarc.NewCommand(
		"Load default-params recipes from a YAML file.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
			{Name: ARG_FILE, Required: true, Help: "YAML recipe file (job_type -> variant -> {input, job})"},
		},
		common.NewTask(ImportTask()),
	)
}

func ImportTask() common.Task[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		s common.Services,
		cl flarc.Commandline[struct{}],
		_ []any,
	) error {
		args := cl.Args()
		e, err := s.Ensembles.Resolve(ctx, args[ARG_ENSEMBLE][0])
		if err != nil {
			return err
		}
		n, err := s.Defaults.Import(ctx, e.Id, args[ARG_FILE][0])
		if err != nil {
			return err
		}
		logger.Printf("ensemble %d: imported %d recipes", e.Id, n)
		return nil
	}
}

func NewExport() (flarc.Command, error) {
	return flarc.NewCommand(
		"Write every stored recipe of an ensemble to a YAML file.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
			{Name: ARG_FILE, Required: true, Help: "destination YAML file"},
		},
		common.NewTask(ExportTask()),
	)
}

func ExportTask() common.Task[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		s common.Services,
		cl flarc.Commandline[struct{}],
		_ []any,
	) error {
		args := cl.Args()
		e, err := s.Ensembles.Resolve(ctx, args[ARG_ENSEMBLE][0])
		if err != nil {
			return err
		}
		n, err := s.Defaults.Export(ctx, e.Id, args[ARG_FILE][0])
		if err != nil {
			return err
		}
		logger.Printf("ensemble %d: exported %d recipes to %s", e.Id, n, args[ARG_FILE][0])
		return nil
	}
}
