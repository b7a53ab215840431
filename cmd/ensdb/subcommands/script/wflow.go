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

func NewWFlow() (flarc.Command, error) {
	return flarc.NewCommand(
		"Generate the Wilson-flow GLU input and its SBATCH launcher.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
		},
		common.NewTask(WFlowTask()),
		flarc.WithDescription(`
Generate slurm/glu_wflow.in and slurm/glu_wflow.sbatch. Lattice
dimensions come from the ensemble physics; the input defaults to the
adaptive stout flow (ADAPTWFLOW_STOUT, 250 iterations). Stored
defaults for (wflow, adaptstout) seed the rest.

Required job parameters (stored or given): account, glu_path,
config_start, config_end.
`),
	)
}

func WFlowTask() common.Task[Flag] {
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
		input, job, err := recipe(ctx, s, e, "wflow", "adaptstout", cl.Flags())
		if err != nil {
			return err
		}

		artifacts := map[string]string{}
		err = bracket(
			ctx, s, e, "WFLOW_SCRIPT", nil,
			func() (map[string]string, error) {
				inputPath, err := scripts.WriteGLUInput(
					filepath.Join(e.Directory, "slurm", "glu_wflow.in"),
					scripts.Merge(scripts.WFlowOverrides(e), input),
				)
				if err != nil {
					return nil, err
				}
				scriptPath, err := scripts.WriteWFlowScript(e, s.DBURI, inputPath, job, input)
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
