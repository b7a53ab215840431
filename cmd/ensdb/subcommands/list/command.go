package list

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/view"
	"github.com/latticeqcd/ensdb/pkg/domain"
)

type Flag struct {
	Status string `flag:"status" metavar:"TUNING|PRODUCTION" help:"only ensembles with this status"`
	Sort   string `flag:"sort" metavar:"id|path" help:"ordering of the result (default id)"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"List tracked ensembles.",
		Flag{},
		flarc.Args{},
		common.NewTask(Task()),
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

		filter := domain.EnsembleFilter{Order: domain.OrderById}
		if flags.Status != "" {
			st, err := domain.AsEnsembleStatus(flags.Status)
			if err != nil {
				return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
			}
			filter.Status = st
		}
		if flags.Sort != "" {
			order, err := domain.AsEnsembleOrder(flags.Sort)
			if err != nil {
				return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
			}
			filter.Order = order
		}

		ensembles, err := s.Ensembles.List(ctx, filter)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(view.FromEnsembles(ensembles))
	}
}
