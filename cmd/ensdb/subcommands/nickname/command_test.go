package nickname_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/youta-t/flarc"

	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/common"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/internal/commandline"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/logger"
	"github.com/latticeqcd/ensdb/cmd/ensdb/subcommands/nickname"
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

func run(s common.Services, flags nickname.Flag, args map[string][]string) error {
	cl := &commandline.MockCommandline[nickname.Flag]{
		Fullname_: "ensdb nickname",
		Stdout_:   io.Discard,
		Stderr_:   io.Discard,
		Flags_:    flags,
		Args_:     args,
	}
	return nickname.Task()(context.Background(), logger.Null(), s, cl, nil)
}

func TestNicknameCommand(t *testing.T) {
	ctx := context.Background()
	s := services(t)
	e := try.To(s.Ensembles.Create(ctx, physics, domain.Tuning, "", "")).OrFatal(t)
	token := fmt.Sprint(e.Id)

	if err := run(s, nickname.Flag{}, map[string][]string{
		nickname.ARG_ENSEMBLE: {token},
		nickname.ARG_NICKNAME: {"tuning24"},
	}); err != nil {
		t.Fatal(err)
	}
	if got := try.To(s.Ensembles.Get(ctx, e.Id)).OrFatal(t); got.Nickname != "tuning24" {
		t.Errorf("nickname = %q", got.Nickname)
	}

	// The alias resolves now.
	if _, err := s.Ensembles.Resolve(ctx, "tuning24"); err != nil {
		t.Errorf("nickname should resolve: %s", err)
	}

	if err := run(s, nickname.Flag{Clear: true}, map[string][]string{
		nickname.ARG_ENSEMBLE: {token},
	}); err != nil {
		t.Fatal(err)
	}
	if got := try.To(s.Ensembles.Get(ctx, e.Id)).OrFatal(t); got.Nickname != "" {
		t.Errorf("nickname should be cleared, got %q", got.Nickname)
	}
}

func TestNicknameCommand_usage(t *testing.T) {
	ctx := context.Background()
	s := services(t)
	e := try.To(s.Ensembles.Create(ctx, physics, domain.Tuning, "", "")).OrFatal(t)
	token := fmt.Sprint(e.Id)

	for name, testcase := range map[string]struct {
		flags nickname.Flag
		args  map[string][]string
	}{
		"neither": {nickname.Flag{}, map[string][]string{
			nickname.ARG_ENSEMBLE: {token},
		}},
		"both": {nickname.Flag{Clear: true}, map[string][]string{
			nickname.ARG_ENSEMBLE: {token},
			nickname.ARG_NICKNAME: {"x"},
		}},
	} {
		t.Run(name, func(t *testing.T) {
			if err := run(s, testcase.flags, testcase.args); !errors.Is(err, flarc.ErrUsage) {
				t.Errorf("want ErrUsage, got %v", err)
			}
		})
	}
}
