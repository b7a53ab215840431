package scan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/latticeqcd/ensdb/pkg/db/sqlite"
	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/domain/ensemble"
	"github.com/latticeqcd/ensdb/pkg/domain/oplog"
	"github.com/latticeqcd/ensdb/pkg/domain/scan"
	"github.com/latticeqcd/ensdb/pkg/utils/try"
)

func TestIndex(t *testing.T) {
	for name, testcase := range map[string]struct {
		filename string
		index    int64
		ok       bool
	}{
		"plain checkpoint":      {"ckpoint_lat.1200", 1200, true},
		"zeroth checkpoint":     {"ckpoint_lat.0", 0, true},
		"labelled stream":       {"ckpoint_lat.tepid.48", 48, true},
		"rng state is not one":  {"ckpoint_rng.1200", 0, false},
		"tmp file is not one":   {"ckpoint_lat.1200.tmp~", 0, false},
		"no index is not one":   {"ckpoint_lat.", 0, false},
		"hmc log is not one":    {"hmc.out", 0, false},
		"bare label no index":   {"ckpoint_lat.tepid.", 0, false},
		"negative never occurs": {"ckpoint_lat.-3", 0, false},
	} {
		t.Run(name, func(t *testing.T) {
			index, ok := scan.Index(testcase.filename)
			if ok != testcase.ok || index != testcase.index {
				t.Errorf("Index(%q) = (%d, %v), want (%d, %v)",
					testcase.filename, index, ok, testcase.index, testcase.ok)
			}
		})
	}
}

func physics() map[string]string {
	return map[string]string{
		"beta": "6.0", "b": "2.5", "Ls": "12",
		"mc": "0.6", "ms": "0.04", "ml": "0.005",
		"L": "24", "T": "48",
	}
}

func setup(t *testing.T) (*ensemble.Repository, *domain.Ensemble) {
	t.Helper()
	ctx := context.Background()
	backend := try.To(sqlite.New(filepath.Join(t.TempDir(), "ensdb.sqlite"), nil)).OrFatal(t)
	t.Cleanup(func() { backend.Close() })

	repo := ensemble.New(backend, oplog.New(backend, nil), t.TempDir(), nil)
	created := try.To(repo.Create(ctx, physics(), domain.Tuning, "", "")).OrFatal(t)
	return repo, created
}

func touch(t *testing.T, e *domain.Ensemble, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(e.Directory, "cnfg", name)
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanner_Scan(t *testing.T) {
	ctx := context.Background()
	repo, e := setup(t)
	scanner := scan.New(repo, nil)

	t.Run("empty directory stores nothing", func(t *testing.T) {
		got := try.To(scanner.Scan(ctx, e)).OrFatal(t)
		if got != nil {
			t.Errorf("want nil, got %d", *got)
		}
	})

	t.Run("max wins, gaps tolerated, noise ignored", func(t *testing.T) {
		touch(t, e,
			"ckpoint_lat.0", "ckpoint_lat.100", "ckpoint_lat.400",
			"ckpoint_rng.400", "hmc.out",
		)
		got := try.To(scanner.Scan(ctx, e)).OrFatal(t)
		if got == nil || *got != 400 {
			t.Fatalf("want 400, got %v", got)
		}
		stored := try.To(repo.Get(ctx, e.Id)).OrFatal(t)
		if stored.LatestConfigIndex == nil || *stored.LatestConfigIndex != 400 {
			t.Errorf("persisted %v, want 400", stored.LatestConfigIndex)
		}
	})

	t.Run("a stale rescan never regresses", func(t *testing.T) {
		if err := os.Remove(filepath.Join(e.Directory, "cnfg", "ckpoint_lat.400")); err != nil {
			t.Fatal(err)
		}
		got := try.To(scanner.Scan(ctx, e)).OrFatal(t)
		if got == nil || *got != 400 {
			t.Errorf("want the stored 400 to hold, got %v", got)
		}
	})
}

func TestScanner_Follow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, e := setup(t)
	scanner := scan.New(repo, nil)
	touch(t, e, "ckpoint_lat.100")

	done := make(chan error, 1)
	go func() { done <- scanner.Follow(ctx, e) }()

	// The initial sweep picks up what is already there.
	waitForIndex(t, repo, e.Id, 100)

	touch(t, e, "ckpoint_lat.200")
	waitForIndex(t, repo, e.Id, 200)

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("follow should end with the context, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop on cancellation")
	}
}

func waitForIndex(t *testing.T, repo *ensemble.Repository, ensembleId int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		found := try.To(repo.Get(context.Background(), ensembleId)).OrFatal(t)
		if found.LatestConfigIndex != nil && *found.LatestConfigIndex == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("index never reached %d", want)
}
