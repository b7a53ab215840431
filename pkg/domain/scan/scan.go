// Package scan reads checkpoint indices out of an ensemble's cnfg/
// directory and records the highest one seen. Gauge configurations are
// written by HMC as ckpoint_lat.<n> (optionally ckpoint_lat.<label>.<n>
// for side streams); the index trail can have gaps after cleanup, so
// the scanner reports the maximum, not a contiguity check.
package scan

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/fsnotify/fsnotify"

	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/domain/ensemble"
)

var checkpointPattern = regexp.MustCompile(`^ckpoint_lat\.(?:[A-Za-z][A-Za-z0-9_]*\.)?([0-9]+)$`)

// Index parses the checkpoint index out of a filename. ok is false for
// anything that is not a checkpoint.
func Index(name string) (int64, bool) {
	m := checkpointPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	index, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return index, true
}

type Scanner struct {
	repo   *ensemble.Repository
	logger *slog.Logger
}

func New(repo *ensemble.Repository, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scanner{repo: repo, logger: logger}
}

// Scan lists the configuration directory once and stores the highest
// index found. The stored value never regresses, so scanning a stale
// or partially copied tree is safe. The returned pointer is the stored
// index after the scan, nil when nothing has ever been seen.
func (s *Scanner) Scan(ctx context.Context, e *domain.Ensemble) (*int64, error) {
	entries, err := os.ReadDir(filepath.Join(e.Directory, "cnfg"))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return s.record(ctx, e, maxIndex(names))
}

// Follow scans once, then watches the configuration directory and
// records every new checkpoint as it lands, until ctx is done. HMC
// writes checkpoints minutes to hours apart; the watcher costs one
// inotify slot and nothing else.
func (s *Scanner) Follow(ctx context.Context, e *domain.Ensemble) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	cnfg := filepath.Join(e.Directory, "cnfg")
	if err := watcher.Add(cnfg); err != nil {
		return err
	}

	// Whatever landed before the watch began.
	if _, err := s.Scan(ctx, e); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			index, ok := Index(filepath.Base(event.Name))
			if !ok {
				continue
			}
			if _, err := s.record(ctx, e, &index); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error on configuration directory",
				"ensemble", e.Id, "error", err)
		}
	}
}

func (s *Scanner) record(ctx context.Context, e *domain.Ensemble, index *int64) (*int64, error) {
	if index == nil {
		// Nothing found; report what is already on record.
		current, err := s.repo.Get(ctx, e.Id)
		if err != nil {
			return nil, err
		}
		return current.LatestConfigIndex, nil
	}

	stored, err := s.repo.SetLatestConfigIndex(ctx, e.Id, *index)
	if err != nil {
		return nil, err
	}
	if stored == *index {
		s.logger.Debug("checkpoint recorded", "ensemble", e.Id, "index", stored)
	}
	return &stored, nil
}

func maxIndex(names []string) *int64 {
	var best *int64
	for _, name := range names {
		index, ok := Index(name)
		if !ok {
			continue
		}
		if best == nil || *best < index {
			value := index
			best = &value
		}
	}
	return best
}
