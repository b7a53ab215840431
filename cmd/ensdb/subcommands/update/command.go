package update

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/view"
	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/scripts"
)

type Flag struct {
	OperationType string `flag:"operation-type" metavar:"TYPE" help:"operation type, e.g. HMC_continue"`
	Status        string `flag:"status" metavar:"RUNNING|COMPLETED|FAILED|CANCELED" help:"status to record"`
	OpId          string `flag:"op-id" metavar:"N" help:"address an exact operation instead of the latest of its type"`
	Params        string `flag:"params" metavar:"\"k=v ...\"" help:"params to merge into the operation"`
}

const ARG_ENSEMBLE = "ENSEMBLE"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Record or update an operation on an ensemble.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Record or update an operation. --status RUNNING without --op-id starts
a new operation; any other status (or an explicit --op-id) updates the
latest operation of --operation-type, merging --params into it.

This is the command job scripts call to report on themselves:

	{{ .Command }} 12 --operation-type HMC_continue --status RUNNING \
	    --params "config_start=100 slurm_job=$SLURM_JOB_ID"
	{{ .Command }} 12 --operation-type HMC_continue --status COMPLETED \
	    --params "exit_code=0 runtime=$SECONDS"
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
		token := cl.Args()[ARG_ENSEMBLE][0]

		if flags.OperationType == "" {
			return fmt.Errorf("%w: --operation-type is required", flarc.ErrUsage)
		}
		status, err := domain.AsOpStatus(flags.Status)
		if err != nil {
			return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
		}

		params := map[string]string{}
		if flags.Params != "" {
			params, err = scripts.ParseParams(strings.Fields(flags.Params))
			if err != nil {
				return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
			}
		}

		var opId *int64
		if flags.OpId != "" {
			id, err := strconv.ParseInt(flags.OpId, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: --op-id: %s", flarc.ErrUsage, err)
			}
			opId = &id
		}

		e, err := s.Ensembles.Resolve(ctx, token)
		if err != nil {
			return err
		}

		var op *domain.Operation
		if status == domain.Running && opId == nil {
			ordinal, err := s.Ops.Start(ctx, e.Id, flags.OperationType, params)
			if err != nil {
				return err
			}
			op, err = s.Ops.Get(ctx, e.Id, ordinal)
			if err != nil {
				return err
			}
			logger.Printf("ensemble %d: started %s as operation %d", e.Id, op.Type, op.Id)
		} else {
			op, err = s.Ops.Update(ctx, e.Id, flags.OperationType, status, params, opId)
			if err != nil {
				return err
			}
			logger.Printf("ensemble %d: operation %d is %s", e.Id, op.Id, op.Status)
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(view.FromOperation(op))
	}
}
