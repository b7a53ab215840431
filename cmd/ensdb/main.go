package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/create"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/dbinit"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/describe"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/history"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/list"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/logger"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/nickname"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/params"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/promote"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/rm"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/scan"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/script"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/show"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/update"
	"github.com/latticeqcd/ensdb/pkg/utils/try"
)

func main() {
	name := path.Base(os.Args[0])
	log := logger.Default()
	log.SetPrefix(fmt.Sprintf("[%s] ", name))

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	init := try.To(dbinit.New()).OrFatal(log)
	create := try.To(create.New()).OrFatal(log)
	show := try.To(show.New()).OrFatal(log)
	list := try.To(list.New()).OrFatal(log)
	nickname := try.To(nickname.New()).OrFatal(log)
	describe := try.To(describe.New()).OrFatal(log)
	promote := try.To(promote.New()).OrFatal(log)
	update := try.To(update.New()).OrFatal(log)
	history := try.To(history.New()).OrFatal(log)
	scan := try.To(scan.New()).OrFatal(log)
	params := try.To(params.New()).OrFatal(log)
	script := try.To(script.New()).OrFatal(log)
	rm := try.To(rm.New()).OrFatal(log)

	ensdb := try.To(
		flarc.NewCommandGroup(
			"Ensemble metadata and operation tracking for lattice QCD simulations",
			common.Flags(),
			flarc.WithSubcommand("init", init),
			flarc.WithSubcommand("create", create),
			flarc.WithSubcommand("show", show),
			flarc.WithSubcommand("list", list),
			flarc.WithSubcommand("nickname", nickname),
			flarc.WithSubcommand("describe", describe),
			flarc.WithSubcommand("promote", promote),
			flarc.WithSubcommand("update", update),
			flarc.WithSubcommand("history", history),
			flarc.WithSubcommand("scan", scan),
			flarc.WithSubcommand("params", params),
			flarc.WithSubcommand("script", script),
			flarc.WithSubcommand("rm", rm),
		),
	).OrFatal(log)

	os.Exit(flarc.Run(ctx, ensdb, flarc.WithHelp(true)))
}
