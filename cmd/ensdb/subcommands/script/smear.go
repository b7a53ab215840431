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

func NewSmear() (flarc.Command, error) {
	return flarc.NewCommand(
		"Generate the GLU smearing input and its SBATCH launcher.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
		},
		common.NewTask(SmearTask()),
		flarc.WithDescription(`
Generate slurm/glu_smear.in and slurm/glu_smear.sbatch. Lattice
dimensions and beta are filled from the ensemble physics; stored
defaults for (smear, stout8) seed the rest.

Required job parameters (stored or given): account, glu_path,
config_start, config_end.
`),
	)
}

func SmearTask() common.Task[Flag] {
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
		input, job, err := recipe(ctx, s, e, "smear", "stout8", cl.Flags())
		if err != nil {
			return err
		}

		artifacts := map[string]string{}
		err = bracket(
			ctx, s, e, "SMEAR_SCRIPT", nil,
			func() (map[string]string, error) {
				inputPath, err := scripts.WriteGLUInput(
					filepath.Join(e.Directory, "slurm", "glu_smear.in"),
					scripts.Merge(scripts.GLUOverrides(e), input),
				)
				if err != nil {
					return nil, err
				}
				scriptPath, err := scripts.WriteGLUScript(e, s.DBURI, inputPath, job, input)
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
