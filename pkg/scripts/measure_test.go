package scripts_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/scripts"
	"github.com/latticeqcd/ensdb/pkg/utils/try"
)

func TestWFlowOverrides(t *testing.T) {
	e := testEnsemble(t)
	path := filepath.Join(e.Directory, "slurm", "glu_wflow.in")

	try.To(scripts.WriteGLUInput(path, scripts.WFlowOverrides(e))).OrFatal(t)

	rendered := string(try.To(os.ReadFile(path)).OrFatal(t))
	for _, want := range []string{
		"SMEARTYPE = ADAPTWFLOW_STOUT",
		"SMITERS = 250",
		"ALPHA1 = 0.02",
		"DIM_0 = 24",
		"DIM_3 = 48",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("flow input should contain %q", want)
		}
	}
}

func TestWriteWFlowScript(t *testing.T) {
	e := testEnsemble(t)

	path := try.To(scripts.WriteWFlowScript(
		e, "/data/ensdb.sqlite", filepath.Join(e.Directory, "slurm", "glu_wflow.in"),
		map[string]string{
			"account": "m1234", "glu_path": "/opt/glu/GLU",
			"config_start": "100", "config_end": "200",
		},
		nil,
	)).OrFatal(t)

	if filepath.Base(path) != "glu_wflow.sbatch" {
		t.Errorf("unexpected launcher name %s", path)
	}
	info := try.To(os.Stat(path)).OrFatal(t)
	if info.Mode()&0o100 == 0 {
		t.Error("launcher should be executable")
	}

	rendered := string(try.To(os.ReadFile(path)).OrFatal(t))
	for _, want := range []string{
		`OP="GLU_WFLOW"`,
		"#SBATCH -t 01:00:00", // flow runs are short
		"mkdir -p t0",
		`> "t0/t0.${c}.out"`,
		"SC=100",
		"EC=200",
		"--status RUNNING",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("launcher should contain %q", want)
		}
	}
}

func TestMresOverrides(t *testing.T) {
	e := testEnsemble(t)

	overrides := try.To(scripts.MresOverrides(e)).OrFatal(t)

	// kappa = 1 / (2m + 8) per flavor, light to charm.
	for key, prefix := range map[string]string{
		"Propagator 0.kappa": "0.124843", // ml = 0.005
		"Propagator 1.kappa": "0.123762", // ms = 0.04
		"Propagator 2.kappa": "0.108695", // mc = 0.6
	} {
		if !strings.HasPrefix(overrides[key], prefix) {
			t.Errorf("%s = %q, want prefix %q", key, overrides[key], prefix)
		}
	}
	if overrides["Lattice parameters.Ls"] != "12" {
		t.Errorf("physics-coupled parameters should ride along: %v", overrides)
	}

	path := filepath.Join(e.Directory, "slurm", "DWF_mres.in")
	try.To(scripts.WriteWITInput(path, overrides)).OrFatal(t)
	rendered := string(try.To(os.ReadFile(path)).OrFatal(t))
	if !strings.Contains(rendered, "[Propagator 2]") {
		t.Errorf("input should carry the charm propagator:\n%s", rendered)
	}
}

func TestMresOverrides_badMasses(t *testing.T) {
	e := testEnsemble(t)
	delete(e.Physics, "mc")
	if _, err := scripts.MresOverrides(e); !errors.Is(err, domain.ErrMissingParameter) {
		t.Errorf("want ErrMissingParameter, got %v", err)
	}

	e = testEnsemble(t)
	e.Physics["ms"] = "-0.04"
	if _, err := scripts.MresOverrides(e); err == nil || !strings.Contains(err.Error(), "ms") {
		t.Errorf("a negative mass should be refused by name, got %v", err)
	}
}

func TestWriteMresScript(t *testing.T) {
	e := testEnsemble(t)

	path := try.To(scripts.WriteMresScript(
		e, "/data/ensdb.sqlite", filepath.Join(e.Directory, "slurm", "DWF_mres.in"),
		map[string]string{
			"account": "m1234", "exec_path": "/opt/wit/Mres",
			"bind_script": "/opt/wit/bind.sh",
		},
		map[string]string{"Configurations.first": "100", "Configurations.last": "500"},
	)).OrFatal(t)

	rendered := string(try.To(os.ReadFile(path)).OrFatal(t))
	for _, want := range []string{
		`OP="WIT_MRES"`,
		`WORK="$work_root/mres"`,
		"first=100",
		"last=500",
		"srun -n 4 /opt/wit/bind.sh /opt/wit/Mres",
		"--status RUNNING",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("launcher should contain %q", want)
		}
	}
	// One solver pass covers the whole range; no per-config loop.
	if strings.Contains(rendered, "for cfg in") {
		t.Error("the range belongs to the input file, not a shell loop")
	}
}

func TestZvOverrides(t *testing.T) {
	e := testEnsemble(t)

	overrides := try.To(scripts.ZvOverrides(e)).OrFatal(t)
	if !strings.HasPrefix(overrides["Propagator 0.kappa"], "0.124843") {
		t.Errorf("kappa should come from ml: %v", overrides)
	}
	if overrides["Witness.no_prop"] != "1" || overrides["Witness.no_solver"] != "1" {
		t.Errorf("Zv reads one propagator and one solver: %v", overrides)
	}

	e.Physics["ml"] = "0"
	if _, err := scripts.ZvOverrides(e); err == nil {
		t.Error("a zero mass should be refused")
	}
}

func TestWriteZvScript(t *testing.T) {
	e := testEnsemble(t)

	path := try.To(scripts.WriteZvScript(
		e, "/data/ensdb.sqlite", filepath.Join(e.Directory, "slurm", "DWF_zv.in"),
		map[string]string{
			"account": "m1234", "exec_path": "/opt/wit/FDiagonal_3pt",
			"bind_script": "/opt/wit/bind.sh",
		},
		nil,
	)).OrFatal(t)

	rendered := string(try.To(os.ReadFile(path)).OrFatal(t))
	for _, want := range []string{
		`OP="WIT_ZV"`,
		`WORK="$work_root/Zv"`,
		"#SBATCH -t 00:10:00", // Zv is a single cheap contraction
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("launcher should contain %q", want)
		}
	}
}

func TestWriteZvScript_requiredJobParams(t *testing.T) {
	e := testEnsemble(t)
	_, err := scripts.WriteZvScript(e, "/data/ensdb.sqlite", "in", map[string]string{"account": "m1234"}, nil)
	if err == nil || !strings.Contains(err.Error(), "exec_path") {
		t.Errorf("missing job params should be named, got %v", err)
	}
}
