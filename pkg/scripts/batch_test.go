package scripts_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/latticeqcd/ensdb/pkg/scripts"
	"github.com/latticeqcd/ensdb/pkg/utils/try"
)

func TestWriteGLUScript(t *testing.T) {
	e := testEnsemble(t)

	path := try.To(scripts.WriteGLUScript(
		e, "sqlite:///data/ensdb.sqlite", "slurm/glu_smear.in",
		map[string]string{
			"account": "m1234", "glu_path": "/opt/glu/GLU",
			"config_start": "100", "config_end": "200",
			"config_increment": "8",
		},
		map[string]string{"SMITERS": "10"},
	)).OrFatal(t)

	if filepath.Base(path) != "glu_smear.sbatch" {
		t.Errorf("unexpected output name %s", path)
	}
	info := try.To(os.Stat(path)).OrFatal(t)
	if info.Mode()&0o100 == 0 {
		t.Error("script should be executable")
	}

	rendered := string(try.To(os.ReadFile(path)).OrFatal(t))
	for _, want := range []string{
		"#SBATCH -A m1234",
		"#SBATCH -C cpu", // default for smearing
		"SC=100",
		"EC=200",
		"config_increment=8",
		`SMEAR_DIR="cnfg_STOUT10"`,
		`GLU="/opt/glu/GLU"`,
		"--status RUNNING",
		"--status $status",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("script should contain %q", want)
		}
	}

	_, err := scripts.WriteGLUScript(
		e, "sqlite:///data/ensdb.sqlite", "slurm/glu_smear.in",
		map[string]string{"account": "m1234"}, nil,
	)
	if err == nil || !strings.Contains(err.Error(), "glu_path") {
		t.Errorf("missing job params should be named, got %v", err)
	}
}

func TestWriteWITScript(t *testing.T) {
	e := testEnsemble(t)

	path := try.To(scripts.WriteWITScript(
		e, "sqlite:///data/ensdb.sqlite", "slurm/DWF.in",
		map[string]string{
			"account": "m1234", "exec_path": "/opt/wit/WIT",
			"bind_script": "/opt/wit/bind.sh",
		},
		map[string]string{
			"Configurations.first": "100",
			"Configurations.last":  "500",
			"Configurations.step":  "4",
		},
	)).OrFatal(t)

	if filepath.Base(path) != "wit_meson2pt.sbatch" {
		t.Errorf("unexpected output name %s", path)
	}

	rendered := string(try.To(os.ReadFile(path)).OrFatal(t))
	for _, want := range []string{
		"#SBATCH -A m1234",
		"#SBATCH --gpus=4", // default
		"first=100",
		"last=500",
		"step=4",
		"Meson_2pt_00u_stout8n", // run name from the WIT defaults
		`srun -n 4 /opt/wit/bind.sh /opt/wit/WIT`,
		"--status RUNNING",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("script should contain %q", want)
		}
	}

	_, err := scripts.WriteWITScript(
		e, "sqlite:///data/ensdb.sqlite", "slurm/DWF.in",
		map[string]string{"account": "m1234"}, nil,
	)
	if err == nil || !strings.Contains(err.Error(), "exec_path") {
		t.Errorf("missing job params should be named, got %v", err)
	}
}
