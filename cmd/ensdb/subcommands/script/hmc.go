package script

import (
	"context"
	"encoding/json"
	"log"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/pkg/scripts"
)

func NewHMC() (flarc.Command, error) {
	return flarc.NewCommand(
		"Generate the HMC parameters XML and its SBATCH launcher.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
			{
				Name: ARG_MODE, Required: true,
				Help: "tepid (fresh start), continue, or reseed",
			},
		},
		common.NewTask(HMCTask()),
		flarc.WithDescription(`
Generate HMCparameters.xml into the ensemble directory and the
hmc_MODE.sbatch launcher into slurm/. Stored defaults for (hmc, MODE)
seed the parameters; --input and --job override them.

Required job parameters (stored or given): account, exec_path,
bind_script, mpi.
`),
	)
}

func HMCTask() common.Task[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		s common.Services,
		cl flarc.Commandline[Flag],
		_ []any,
	) error {
		args := cl.Args()
		mode := args[ARG_MODE][0]

		e, err := s.Ensembles.Resolve(ctx, args[ARG_ENSEMBLE][0])
		if err != nil {
			return err
		}
		input, job, err := recipe(ctx, s, e, "hmc", mode, cl.Flags())
		if err != nil {
			return err
		}

		artifacts := map[string]string{}
		err = bracket(
			ctx, s, e, "HMC_SCRIPT", map[string]string{"mode": mode},
			func() (map[string]string, error) {
				xmlPath, err := scripts.WriteHMCParameters(e.Directory, mode, input)
				if err != nil {
					return nil, err
				}
				scriptPath, err := scripts.WriteHMCScript(e, s.DBURI, mode, job, input)
				if err != nil {
					return nil, err
				}
				artifacts["xml"] = xmlPath
				artifacts["script"] = scriptPath
				return artifacts, nil
			},
		)
		if err != nil {
			return err
		}
		logger.Printf("generated %s and %s", artifacts["xml"], artifacts["script"])

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(artifacts)
	}
}
