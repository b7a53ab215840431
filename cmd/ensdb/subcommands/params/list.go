package params

import (
	"context"
	"encoding/json"
	"log"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/view"
)

func NewList() (flarc.Command, error) {
	return flarc.NewCommand(
		"List every stored default-params recipe of an ensemble.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
		},
		common.NewTask(ListTask()),
	)
}

func ListTask() common.Task[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		s common.Services,
		cl flarc.Commandline[struct{}],
		_ []any,
	) error {
		e, err := s.Ensembles.Resolve(ctx, cl.Args()[ARG_ENSEMBLE][0])
		if err != nil {
			return err
		}
		recipes, err := s.Defaults.List(ctx, e.Id)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(view.FromDefaultParamsList(recipes))
	}
}
