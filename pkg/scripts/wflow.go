package scripts

import (
	"path/filepath"

	"github.com/latticeqcd/ensdb/pkg/domain"
)

// WFlowOverrides seeds a GLU input for Wilson-flow scale setting:
// lattice dimensions from the ensemble physics plus the adaptive
// stout flow recipe.
func WFlowOverrides(e *domain.Ensemble) map[string]string {
	return Merge(GLUOverrides(e), map[string]string{
		"SMEARTYPE": "ADAPTWFLOW_STOUT",
		"SMITERS":   "250",
		"ALPHA1":    "0.02",
		"ALPHA2":    "0.01",
		"ALPHA3":    "0.005",
	})
}

// WriteWFlowScript renders the Wilson-flow SBATCH launcher into the
// ensemble's slurm/ directory. The launcher fans nsim GLU processes
// out per node like the smearing one, but flows unsmeared checkpoint
// configurations and collects the t0 observable under t0/.
func WriteWFlowScript(
	e *domain.Ensemble, dbURI, inputPath string,
	job, input map[string]string,
) (string, error) {
	if err := Require(job, "account", "glu_path", "config_start", "config_end"); err != nil {
		return "", err
	}

	ctx := gluJob{
		Ensemble:     e,
		EnsembleName: EnsembleName(e),
		DBURI:        dbURI,
		InputPath:    inputPath,

		Account:     job["account"],
		Constraint:  orDefault(job["constraint"], "cpu"),
		Queue:       orDefault(job["queue"], "regular"),
		TimeLimit:   orDefault(job["time_limit"], "01:00:00"),
		Nodes:       orDefault(job["nodes"], "1"),
		CPUsPerTask: orDefault(job["cpus_per_task"], "256"),
		MailUser:    job["mail_user"],

		GLUPath:     job["glu_path"],
		ConfigStart: job["config_start"],
		ConfigEnd:   job["config_end"],
		ConfigInc:   orDefault(job["config_increment"], "4"),
		Nsim:        orDefault(job["nsim"], "4"),

		SmearType:  orDefault(input["SMEARTYPE"], "ADAPTWFLOW_STOUT"),
		SmearIters: orDefault(input["SMITERS"], "250"),
	}

	path := filepath.Join(e.Directory, "slurm", "glu_wflow.sbatch")
	return renderLauncher("templates/wflow_sbatch.tmpl", path, ctx)
}
