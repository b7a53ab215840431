package show

import (
	"context"
	"encoding/json"
	"log"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/view"
)

const ARG_ENSEMBLE = "ENSEMBLE"

type Detail struct {
	Ensemble   view.Ensemble    `json:"ensemble"`
	Operations []view.Operation `json:"operations"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Show one ensemble and its operation history.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory ('.' works)",
			},
		},
		common.NewTask(Task()),
	)
}

func Task() common.Task[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		s common.Services,
		cl flarc.Commandline[struct{}],
		_ []any,
	) error {
		token := cl.Args()[ARG_ENSEMBLE][0]

		e, err := s.Ensembles.Resolve(ctx, token)
		if err != nil {
			return err
		}
		ops, err := s.Ops.List(ctx, e.Id, "")
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(Detail{
			Ensemble:   view.FromEnsemble(e),
			Operations: view.FromOperations(ops),
		})
	}
}
