// Package script generates batch scripts and solver input files for
// an ensemble. Generation is recorded on the operation log, so the
// history shows which scripts were produced and from what parameters.
package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/scripts"
)

const (
	ARG_ENSEMBLE = "ENSEMBLE"
	ARG_MODE     = "MODE"
)

// Flag is shared by every generator: stored defaults are looked up per
// (job type, variant) and the flags override them key by key.
type Flag struct {
	Input string `flag:"input" metavar:"\"k=v ...\"" help:"input-file parameter overrides"`
	Job   string `flag:"job" metavar:"\"k=v ...\"" help:"batch-job parameter overrides"`
}

func New() (flarc.Command, error) {
	hmc, err := NewHMC()
	if err != nil {
		return nil, err
	}
	smear, err := NewSmear()
	if err != nil {
		return nil, err
	}
	wit, err := NewWIT()
	if err != nil {
		return nil, err
	}
	wflow, err := NewWFlow()
	if err != nil {
		return nil, err
	}
	mres, err := NewMres()
	if err != nil {
		return nil, err
	}
	zv, err := NewZv()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Generate batch scripts and input files.",
		struct{}{},
		flarc.WithSubcommand("hmc", hmc),
		flarc.WithSubcommand("smear", smear),
		flarc.WithSubcommand("wit", wit),
		flarc.WithSubcommand("wflow", wflow),
		flarc.WithSubcommand("mres", mres),
		flarc.WithSubcommand("zv", zv),
	)
}

// recipe resolves the effective parameters of one generation: stored
// defaults for (jobType, variant) under the flag overrides.
func recipe(
	ctx context.Context,
	s common.Services, e *domain.Ensemble,
	jobType, variant string, flags Flag,
) (input, job map[string]string, err error) {
	stored, err := s.Defaults.Get(ctx, e.Id, jobType, variant)
	if err != nil {
		return nil, nil, err
	}
	if stored == nil {
		stored = &domain.DefaultParams{}
	}

	cliInput, err := parseTokens(flags.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: --input: %s", flarc.ErrUsage, err)
	}
	cliJob, err := parseTokens(flags.Job)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: --job: %s", flarc.ErrUsage, err)
	}

	return scripts.Merge(stored.InputParams, cliInput),
		scripts.Merge(stored.JobParams, cliJob),
		nil
}

func parseTokens(tokens string) (map[string]string, error) {
	if tokens == "" {
		return map[string]string{}, nil
	}
	return scripts.ParseParams(strings.Fields(tokens))
}

// bracket records the generation on the operation log: a RUNNING
// operation before, COMPLETED with the artifact paths or FAILED with
// the error after.
func bracket(
	ctx context.Context,
	s common.Services, e *domain.Ensemble,
	opType string, params map[string]string,
	generate func() (map[string]string, error),
) error {
	opId, err := s.Ops.Start(ctx, e.Id, opType, params)
	if err != nil {
		return err
	}

	artifacts, err := generate()
	if err != nil {
		if _, uerr := s.Ops.Update(
			ctx, e.Id, opType, domain.Failed,
			map[string]string{"error": err.Error()}, &opId,
		); uerr != nil {
			s.Logger.Warn("could not record the failure", "cause", uerr)
		}
		return err
	}

	_, err = s.Ops.Update(ctx, e.Id, opType, domain.Completed, artifacts, &opId)
	return err
}
