package dbinit

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/pkg/domain/dirpath"
)

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Initialize the tracking database and the ensemble root directories.",
		struct{}{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Connect to the database named by --db (or ENSDB_URL), set up its schema
if needed, and create the TUNING/ and ENSEMBLES/ roots under --base-dir.

Running it against an existing database is harmless.
`),
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
		// Connecting has already run schema setup; only the roots
		// remain.
		for _, root := range []string{dirpath.TuningRoot, dirpath.ProductionRoot} {
			if err := os.MkdirAll(filepath.Join(s.Base, root), 0o755); err != nil {
				return err
			}
		}
		logger.Printf("database %s is ready (ensemble roots under %s)", s.DBURI, s.Base)
		return nil
	}
}
