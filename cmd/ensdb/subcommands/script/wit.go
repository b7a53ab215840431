package script

import (
	"context"
	"encoding/json"
	"log"
	"path/filepath"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/pkg/scripts"
)

func NewWIT() (flarc.Command, error) {
	return flarc.NewCommand(
		"Generate the WIT measurement input and its SBATCH launcher.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
		},
		common.NewTask(WITTask()),
		flarc.WithDescription(`
Generate slurm/DWF.in and slurm/wit_meson2pt.sbatch. Input overrides
use dotted Section.key form ("Configurations.first=100"); the lattice
parameters and the AMA temporal extent are filled from the ensemble
physics. Stored defaults for (wit, meson2pt) seed the rest.

Required job parameters (stored or given): account, exec_path,
bind_script.
`),
	)
}

func WITTask() common.Task[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		s common.Services,
		cl flarc.Commandline[Flag],
		_ []any,
	) error {
		e, err := s.Ensembles.Resolve(ctx, cl.Args()[ARG_ENSEMBLE][0])
		if err != nil {
			return err
		}
		input, job, err := recipe(ctx, s, e, "wit", "meson2pt", cl.Flags())
		if err != nil {
			return err
		}
		input = scripts.Merge(scripts.WITOverrides(e), input)

		artifacts := map[string]string{}
		err = bracket(
			ctx, s, e, "WIT_SCRIPT", nil,
			func() (map[string]string, error) {
				inputPath, err := scripts.WriteWITInput(
					filepath.Join(e.Directory, "slurm", "DWF.in"), input,
				)
				if err != nil {
					return nil, err
				}
				scriptPath, err := scripts.WriteWITScript(e, s.DBURI, inputPath, job, input)
				if err != nil {
					return nil, err
				}
				artifacts["input"] = inputPath
				artifacts["script"] = scriptPath
				return artifacts, nil
			},
		)
		if err != nil {
			return err
		}
		logger.Printf("generated %s and %s", artifacts["input"], artifacts["script"])

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(artifacts)
	}
}
