package scripts

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/latticeqcd/ensdb/pkg/domain"
)

// kappaOf converts a bare quark mass into the hopping parameter of
// the domain-wall action, kappa = 1 / (2m + 8).
func kappaOf(mass string) (string, error) {
	m, err := strconv.ParseFloat(mass, 64)
	if err != nil {
		return "", fmt.Errorf("quark mass %q is not a number", mass)
	}
	if m <= 0 {
		return "", fmt.Errorf("quark mass must be positive, got %s", mass)
	}
	return strconv.FormatFloat(1/(2*m+8), 'g', -1, 64), nil
}

// MresOverrides seeds the residual-mass WIT input from the ensemble:
// one propagator per quark flavor, light to charm, each with the
// hopping parameter of its mass, on top of the usual physics-coupled
// parameters.
func MresOverrides(e *domain.Ensemble) (map[string]string, error) {
	if err := Require(e.Physics, "ml", "ms", "mc"); err != nil {
		return nil, err
	}

	overrides := WITOverrides(e)
	for i, flavor := range []string{"ml", "ms", "mc"} {
		kappa, err := kappaOf(e.Physics[flavor])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", flavor, err)
		}
		overrides[fmt.Sprintf("Propagator %d.kappa", i)] = kappa
	}
	return overrides, nil
}

// WriteMresScript renders the residual-mass SBATCH launcher into the
// ensemble's slurm/ directory. Unlike the meson two-point launcher it
// runs the whole configuration range in one solver invocation; the
// range lives in the input file.
func WriteMresScript(
	e *domain.Ensemble, dbURI, inputPath string,
	job, input map[string]string,
) (string, error) {
	if err := Require(job, "account", "exec_path", "bind_script"); err != nil {
		return "", err
	}
	ctx := witLauncher(e, dbURI, inputPath, job, input)
	ctx.OpType = "WIT_MRES"
	ctx.WorkDir = "mres"

	path := filepath.Join(e.Directory, "slurm", "wit_mres.sbatch")
	return renderLauncher("templates/wit_measure_sbatch.tmpl", path, ctx)
}
