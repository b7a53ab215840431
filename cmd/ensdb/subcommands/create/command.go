package create

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/view"
	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/domain/dirpath"
	"github.com/latticeqcd/ensdb/pkg/scripts"
)

type Flag struct {
	Params      string `flag:"params" metavar:"\"k=v ...\"" help:"physics parameters: beta, b, Ls, mc, ms, ml, L, T"`
	Directory   string `flag:"directory" metavar:"PATH" help:"infer physics parameters from an existing directory path"`
	Status      string `flag:"status" metavar:"TUNING|PRODUCTION" help:"initial status (default TUNING)"`
	Nickname    string `flag:"nickname" help:"optional unique alias"`
	Description string `flag:"description" help:"free-form description"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Register a new ensemble and build its directory tree.",
		Flag{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Register a new ensemble. Physics parameters come from --params, or are
inferred from a path given with --directory; --params wins where both
name the same key.

The canonical directory is derived from status and physics under
--base-dir and created together with the cnfg/, jlog/, log_hmc/ and
slurm/ subdirectories.

Example:

	{{ .Command }} --params "beta=6.0 b=2.5 Ls=12 mc=0.6 ms=0.04 ml=0.005 L=24 T=48" --nickname tuning24
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
		flags := cl.Flags()

		physics := map[string]string{}
		if flags.Directory != "" {
			physics = dirpath.InferPhysics(flags.Directory)
		}
		if flags.Params != "" {
			p, err := scripts.ParseParams(strings.Fields(flags.Params))
			if err != nil {
				return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
			}
			physics = scripts.Merge(physics, p)
		}

		status := domain.Tuning
		if flags.Status != "" {
			st, err := domain.AsEnsembleStatus(flags.Status)
			if err != nil {
				return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
			}
			status = st
		}

		e, err := s.Ensembles.Create(ctx, physics, status, flags.Nickname, flags.Description)
		if err != nil {
			return err
		}
		logger.Printf("created ensemble %d at %s", e.Id, e.Directory)

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(view.FromEnsemble(e))
	}
}
