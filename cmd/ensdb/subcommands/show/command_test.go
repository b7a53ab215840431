package show_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/internal/commandline"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/logger"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/show"
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

func TestShowCommand(t *testing.T) {
	ctx := context.Background()
	s := services(t)
	e := try.To(s.Ensembles.Create(ctx, physics, domain.Tuning, "tuning24", "")).OrFatal(t)
	try.To(s.Ops.Start(ctx, e.Id, "HMC_tepid", nil)).OrFatal(t)

	// Resolving by nickname, like an operator would.
	out := new(strings.Builder)
	cl := &commandline.MockCommandline[struct{}]{
		Fullname_: "ensdb show",
		Stdout_:   out,
		Stderr_:   io.Discard,
		Args_:     map[string][]string{show.ARG_ENSEMBLE: {"tuning24"}},
	}
	if err := show.Task()(ctx, logger.Null(), s, cl, nil); err != nil {
		t.Fatal(err)
	}

	got := show.Detail{}
	if err := json.Unmarshal([]byte(out.String()), &got); err != nil {
		t.Fatalf("output is not JSON: %s", err)
	}
	if got.Ensemble.Id != e.Id || got.Ensemble.Nickname != "tuning24" {
		t.Errorf("unexpected ensemble: %+v", got.Ensemble)
	}
	if len(got.Operations) != 2 {
		t.Errorf("want 2 operations in the detail, got %d", len(got.Operations))
	}
}

func TestShowCommand_notFound(t *testing.T) {
	s := services(t)
	cl := &commandline.MockCommandline[struct{}]{
		Fullname_: "ensdb show",
		Stdout_:   io.Discard,
		Stderr_:   io.Discard,
		Args_:     map[string][]string{show.ARG_ENSEMBLE: {"no-such-ensemble"}},
	}
	err := show.Task()(context.Background(), logger.Null(), s, cl, nil)
	if !errors.Is(err, domain.ErrEnsembleNotFound) {
		t.Errorf("want ErrEnsembleNotFound, got %v", err)
	}
}
