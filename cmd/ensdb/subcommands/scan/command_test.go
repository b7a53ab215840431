package scan_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/internal/commandline"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/logger"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/scan"
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

func TestScanCommand(t *testing.T) {
	ctx := context.Background()
	s := services(t)
	e := try.To(s.Ensembles.Create(ctx, physics, domain.Tuning, "", "")).OrFatal(t)

	for _, name := range []string{"ckpoint_lat.100", "ckpoint_lat.250", "ckpoint_rng.250"} {
		path := filepath.Join(e.Directory, "cnfg", name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out := new(strings.Builder)
	cl := &commandline.MockCommandline[scan.Flag]{
		Fullname_: "ensdb scan",
		Stdout_:   out,
		Stderr_:   io.Discard,
		Flags_:    scan.Flag{},
		Args_:     map[string][]string{scan.ARG_ENSEMBLE: {fmt.Sprint(e.Id)}},
	}
	if err := scan.Task()(ctx, logger.Null(), s, cl, nil); err != nil {
		t.Fatal(err)
	}

	got := scan.Result{}
	if err := json.Unmarshal([]byte(out.String()), &got); err != nil {
		t.Fatalf("output is not JSON: %s", err)
	}
	if got.LatestConfigIndex == nil || *got.LatestConfigIndex != 250 {
		t.Errorf("latest config index = %v, want 250", got.LatestConfigIndex)
	}

	stored := try.To(s.Ensembles.Get(ctx, e.Id)).OrFatal(t)
	if stored.LatestConfigIndex == nil || *stored.LatestConfigIndex != 250 {
		t.Errorf("index should be recorded, got %v", stored.LatestConfigIndex)
	}
}

func TestScanCommand_emptyDirectory(t *testing.T) {
	ctx := context.Background()
	s := services(t)
	e := try.To(s.Ensembles.Create(ctx, physics, domain.Tuning, "", "")).OrFatal(t)

	out := new(strings.Builder)
	cl := &commandline.MockCommandline[scan.Flag]{
		Fullname_: "ensdb scan",
		Stdout_:   out,
		Stderr_:   io.Discard,
		Flags_:    scan.Flag{},
		Args_:     map[string][]string{scan.ARG_ENSEMBLE: {fmt.Sprint(e.Id)}},
	}
	if err := scan.Task()(ctx, logger.Null(), s, cl, nil); err != nil {
		t.Fatal(err)
	}

	got := scan.Result{}
	if err := json.Unmarshal([]byte(out.String()), &got); err != nil {
		t.Fatalf("output is not JSON: %s", err)
	}
	if got.LatestConfigIndex != nil {
		t.Errorf("no checkpoints means null, got %v", *got.LatestConfigIndex)
	}
}
