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

func NewZv() (flarc.Command, error) {
	return flarc.NewCommand(
		"Generate the Zv renormalization WIT input and its SBATCH launcher.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
		},
		common.NewTask(ZvTask()),
		flarc.WithDescription(`
Generate slurm/DWF_zv.in and slurm/wit_zv.sbatch. Zv measures the
light quark only: the input carries one propagator with the hopping
parameter of ml and one solver. Input overrides use dotted
Section.key form; stored defaults for (wit, zv) seed the rest.

Required job parameters (stored or given): account, exec_path,
bind_script.
`),
	)
}

func ZvTask() common.Task[Flag] {
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
		input, job, err := recipe(ctx, s, e, "wit", "zv", cl.Flags())
		if err != nil {
			return err
		}
		seeded, err := scripts.ZvOverrides(e)
		if err != nil {
			return err
		}
		input = scripts.Merge(seeded, input)

		artifacts := map[string]string{}
		err = bracket(
			ctx, s, e, "ZV_SCRIPT", nil,
			func() (map[string]string, error) {
				inputPath, err := scripts.WriteWITInput(
					filepath.Join(e.Directory, "slurm", "DWF_zv.in"), input,
				)
				if err != nil {
					return nil, err
				}
				scriptPath, err := scripts.WriteZvScript(e, s.DBURI, inputPath, job, input)
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
