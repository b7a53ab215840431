package scripts

import (
	"fmt"
	"path/filepath"

	"github.com/latticeqcd/ensdb/pkg/domain"
)

// ZvOverrides seeds the vector-current renormalization WIT input from
// the ensemble. Zv only needs the light quark: one propagator, one
// solver; the Witness counts tell the solver to read no further.
func ZvOverrides(e *domain.Ensemble) (map[string]string, error) {
	if err := Require(e.Physics, "ml"); err != nil {
		return nil, err
	}
	kappa, err := kappaOf(e.Physics["ml"])
	if err != nil {
		return nil, fmt.Errorf("ml: %w", err)
	}

	overrides := WITOverrides(e)
	overrides["Propagator 0.kappa"] = kappa
	overrides["Witness.no_prop"] = "1"
	overrides["Witness.no_solver"] = "1"
	return overrides, nil
}

// WriteZvScript renders the Zv SBATCH launcher into the ensemble's
// slurm/ directory.
func WriteZvScript(
	e *domain.Ensemble, dbURI, inputPath string,
	job, input map[string]string,
) (string, error) {
	if err := Require(job, "account", "exec_path", "bind_script"); err != nil {
		return "", err
	}
	ctx := witLauncher(e, dbURI, inputPath, job, input)
	ctx.OpType = "WIT_ZV"
	ctx.WorkDir = "Zv"
	ctx.TimeLimit = orDefault(job["time_limit"], "00:10:00")

	path := filepath.Join(e.Directory, "slurm", "wit_zv.sbatch")
	return renderLauncher("templates/wit_measure_sbatch.tmpl", path, ctx)
}
