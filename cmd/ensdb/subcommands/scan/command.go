package scan

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/pkg/domain/scan"
)

type Flag struct {
	Follow bool `flag:"follow" help:"keep watching cnfg/ and record new checkpoints as they appear"`
}

const ARG_ENSEMBLE = "ENSEMBLE"

type Result struct {
	LatestConfigIndex *int64 `json:"latest_config_index"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Scan an ensemble's cnfg/ directory for checkpoint configurations.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Scan cnfg/ for ckpoint_lat.N files and record the highest index on the
ensemble. The recorded index never goes backwards, so rescanning after
deleting configs is safe.

With --follow the command keeps running and records checkpoints as the
job writes them; stop it with Ctrl-C.
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
		token := cl.Args()[ARG_ENSEMBLE][0]

		e, err := s.Ensembles.Resolve(ctx, token)
		if err != nil {
			return err
		}

		scanner := scan.New(s.Ensembles, s.Logger)

		if cl.Flags().Follow {
			logger.Printf("watching %s", e.Directory)
			if err := scanner.Follow(ctx, e); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}

		latest, err := scanner.Scan(ctx, e)
		if err != nil {
			return err
		}
		if latest == nil {
			logger.Printf("ensemble %d: no checkpoints yet", e.Id)
		} else {
			logger.Printf("ensemble %d: latest config index %d", e.Id, *latest)
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(Result{LatestConfigIndex: latest})
	}
}
