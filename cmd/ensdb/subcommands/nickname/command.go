package nickname

import (
	"context"
	"fmt"
	"log"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
)

type Flag struct {
	Clear bool `flag:"clear" help:"remove the nickname. Exclusive with NICKNAME."`
}

const (
	ARG_ENSEMBLE = "ENSEMBLE"
	ARG_NICKNAME = "NICKNAME"
)

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Set or clear an ensemble's nickname.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_ENSEMBLE, Required: true,
				Help: "ensemble id, nickname, or a path inside its directory",
			},
			{
				Name: ARG_NICKNAME, Required: false,
				Help: "new nickname; unique across ensembles",
			},
		},
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
		token := cl.Args()[ARG_ENSEMBLE][0]
		nicknames := cl.Args()[ARG_NICKNAME]

		e, err := s.Ensembles.Resolve(ctx, token)
		if err != nil {
			return err
		}

		switch {
		case cl.Flags().Clear && 0 < len(nicknames):
			return fmt.Errorf("%w: cannot set NICKNAME and --clear at once", flarc.ErrUsage)
		case cl.Flags().Clear:
			if err := s.Ensembles.SetNickname(ctx, e.Id, ""); err != nil {
				return err
			}
			logger.Printf("ensemble %d: nickname cleared", e.Id)
		case 0 < len(nicknames):
			if err := s.Ensembles.SetNickname(ctx, e.Id, nicknames[0]); err != nil {
				return err
			}
			logger.Printf("ensemble %d: nickname is %s", e.Id, nicknames[0])
		default:
			return fmt.Errorf("%w: either NICKNAME or --clear is required", flarc.ErrUsage)
		}
		return nil
	}
}
