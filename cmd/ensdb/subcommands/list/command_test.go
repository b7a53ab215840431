package list_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/internal/commandline"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/list"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/logger"
	"github.com/latticeqcd/ensdb/cmd/ensdb/view"
	"github.com/latticeqcd/ensdb/pkg/db/sqlite"
	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/utils/try"
)

func services(t *testing.T) common.Services {
	t.Helper()
	base := t.TempDir()
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := try.To(sqlite.New(filepath.Join(base, "ensdb.sqlite"), slogger)).OrFatal(t)
	t.Cleanup(func() { backend.Close() })
	return common.NewServices(backend, base, "sqlite://ensdb.sqlite", slogger)
}

func physicsFor(ml string) map[string]string {
	return map[string]string{
		"beta": "6.0", "b": "2.5", "Ls": "12",
		"mc": "0.6", "ms": "0.04", "ml": ml,
		"L": "24", "T": "48",
	}
}

func run(t *testing.T, s common.Services, flags list.Flag) ([]view.Ensemble, error) {
	t.Helper()
	out := new(strings.Builder)
	cl := &commandline.MockCommandline[list.Flag]{
		Fullname_: "ensdb list",
		Stdout_:   out,
		Stderr_:   io.Discard,
		Flags_:    flags,
		Args_:     map[string][]string{},
	}
	if err := list.Task()(context.Background(), logger.Null(), s, cl, nil); err != nil {
		return nil, err
	}
	got := []view.Ensemble{}
	if err := json.Unmarshal([]byte(out.String()), &got); err != nil {
		t.Fatalf("output is not JSON: %s", err)
	}
	return got, nil
}

func TestListCommand(t *testing.T) {
	ctx := context.Background()
	s := services(t)
	try.To(s.Ensembles.Create(ctx, physicsFor("0.005"), domain.Tuning, "", "")).OrFatal(t)
	try.To(s.Ensembles.Create(ctx, physicsFor("0.01"), domain.Production, "", "")).OrFatal(t)

	all := try.To(run(t, s, list.Flag{})).OrFatal(t)
	if len(all) != 2 {
		t.Fatalf("want 2 ensembles, got %d", len(all))
	}
	if all[0].Id > all[1].Id {
		t.Errorf("default order is by id: %+v", all)
	}

	tuning := try.To(run(t, s, list.Flag{Status: "TUNING"})).OrFatal(t)
	if len(tuning) != 1 || tuning[0].Status != "TUNING" {
		t.Errorf("status filter failed: %+v", tuning)
	}

	if _, err := run(t, s, list.Flag{Sort: "age"}); !errors.Is(err, flarc.ErrUsage) {
		t.Errorf("unknown sort should be a usage error, got %v", err)
	}
}
