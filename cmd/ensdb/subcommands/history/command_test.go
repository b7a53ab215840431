package history_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/history"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/internal/commandline"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/logger"
	"github.com/latticeqcd/ensdb/cmd/ensdb/view"
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

func run(t *testing.T, s common.Services, flags history.Flag, token string) []view.Operation {
	t.Helper()
	out := new(strings.Builder)
	cl := &commandline.MockCommandline[history.Flag]{
		Fullname_: "ensdb history",
		Stdout_:   out,
		Stderr_:   io.Discard,
		Flags_:    flags,
		Args_:     map[string][]string{history.ARG_ENSEMBLE: {token}},
	}
	if err := history.Task()(context.Background(), logger.Null(), s, cl, nil); err != nil {
		t.Fatal(err)
	}
	if flags.Clear {
		return nil
	}
	got := []view.Operation{}
	if err := json.Unmarshal([]byte(out.String()), &got); err != nil {
		t.Fatalf("output is not JSON: %s", err)
	}
	return got
}

func TestHistoryCommand(t *testing.T) {
	ctx := context.Background()
	s := services(t)
	e := try.To(s.Ensembles.Create(ctx, physics, domain.Tuning, "", "")).OrFatal(t)
	token := fmt.Sprint(e.Id)

	try.To(s.Ops.Start(ctx, e.Id, "HMC_tepid", nil)).OrFatal(t)
	try.To(s.Ops.Start(ctx, e.Id, "HMC_continue", nil)).OrFatal(t)

	all := run(t, s, history.Flag{}, token)
	if len(all) != 3 { // ADD_ENSEMBLE + the two jobs
		t.Fatalf("want 3 operations, got %d", len(all))
	}
	if all[0].OperationType != domain.OpAddEnsemble || all[2].OperationType != "HMC_continue" {
		t.Errorf("history should come in ordinal order: %+v", all)
	}

	filtered := run(t, s, history.Flag{OperationType: "HMC_tepid"}, token)
	if len(filtered) != 1 || filtered[0].OperationType != "HMC_tepid" {
		t.Errorf("type filter failed: %+v", filtered)
	}
}

func TestHistoryCommand_clear(t *testing.T) {
	ctx := context.Background()
	s := services(t)
	e := try.To(s.Ensembles.Create(ctx, physics, domain.Tuning, "", "")).OrFatal(t)
	token := fmt.Sprint(e.Id)
	try.To(s.Ops.Start(ctx, e.Id, "HMC_tepid", nil)).OrFatal(t)

	run(t, s, history.Flag{Clear: true}, token)

	if left := run(t, s, history.Flag{}, token); len(left) != 0 {
		t.Errorf("history should be empty, got %+v", left)
	}
	// The counter restarted too.
	ordinal := try.To(s.Ops.Start(ctx, e.Id, "NOTE", nil)).OrFatal(t)
	if ordinal != 1 {
		t.Errorf("ordinals should restart at 1, got %d", ordinal)
	}
}
