package rm_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/internal/commandline"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/logger"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/rm"
	"github.com/latticeqcd/ensdb/pkg/db/sqlite"
	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/utils/try"
)

var physics = map[string]string{
	"beta": "6.0", "b": "2.5", "Ls": "12",
	"mc": "0.6", "ms": "0.04", "ml": "0.005",
	"L": "24", "T": "48",
}

func services(t *testing.T) common.Services {
	t.Helper()
	base := t.TempDir()
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := try.To(sqlite.New(filepath.Join(base, "ensdb.sqlite"), slogger)).OrFatal(t)
	t.Cleanup(func() { backend.Close() })
	return common.NewServices(backend, base, "sqlite://ensdb.sqlite", slogger)
}

func run(s common.Services, flags rm.Flag, token string) error {
	cl := &commandline.MockCommandline[rm.Flag]{
		Fullname_: "ensdb rm",
		Stdout_:   io.Discard,
		Stderr_:   io.Discard,
		Flags_:    flags,
		Args_:     map[string][]string{rm.ARG_ENSEMBLE: {token}},
	}
	return rm.Task()(context.Background(), logger.Null(), s, cl, nil)
}

func TestRmCommand_keepsDirectory(t *testing.T) {
	ctx := context.Background()
	s := services(t)
	e := try.To(s.Ensembles.Create(ctx, physics, domain.Tuning, "", "")).OrFatal(t)

	if err := run(s, rm.Flag{}, fmt.Sprint(e.Id)); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Ensembles.Get(ctx, e.Id); !errors.Is(err, domain.ErrEnsembleNotFound) {
		t.Errorf("record should be gone, got %v", err)
	}
	if _, err := os.Stat(e.Directory); err != nil {
		t.Errorf("directory should survive without --rm-dir: %s", err)
	}
}

func TestRmCommand_rmDir(t *testing.T) {
	ctx := context.Background()
	s := services(t)
	e := try.To(s.Ensembles.Create(ctx, physics, domain.Tuning, "", "")).OrFatal(t)

	if err := run(s, rm.Flag{RmDir: true}, fmt.Sprint(e.Id)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(e.Directory); !os.IsNotExist(err) {
		t.Errorf("directory should be removed, got %v", err)
	}
}
