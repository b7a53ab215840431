package scripts

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/latticeqcd/ensdb/pkg/domain"
)

// gluDefaults covers every knob the GLU input file knows. All keys are
// globally unique, so overrides address them flat.
var gluDefaults = map[string]string{
	"MODE":             "SMEARING",
	"CONFNO":           "24",
	"RANDOM_TRANSFORM": "NO",
	"SEED":             "0",
	"CUTTYPE":          "GLUON_PROPS",

	"HEADER": "NERSC",
	"DIM_0":  "16",
	"DIM_1":  "16",
	"DIM_2":  "16",
	"DIM_3":  "48",

	"GFTYPE":    "COULOMB",
	"GF_TUNE":   "0.09",
	"ACCURACY":  "14",
	"MAX_ITERS": "650",

	"FIELD_DEFINITION": "LINEAR",
	"MOM_CUT":          "CYLINDER_CUT",
	"MAX_T":            "7",
	"MAXMOM":           "4",
	"CYL_WIDTH":        "2.0",
	"ANGLE":            "60",
	"OUTPUT":           "./",

	"SMEARTYPE": "STOUT",
	"DIRECTION": "ALL",
	"SMITERS":   "8",
	"ALPHA1":    "0.75",
	"ALPHA2":    "0.4",
	"ALPHA3":    "0.2",

	"U1_MEAS":   "U1_RECTANGLE",
	"U1_ALPHA":  "0.07957753876221914",
	"U1_CHARGE": "-1.0",

	"CONFIG_INFO": "2+1DWF_b2.25_TEST",
	"STORAGE":     "CERN",

	"BETA":       "6.0",
	"ITERS":      "1500",
	"MEASURE":    "1",
	"OVER_ITERS": "4",
	"SAVE":       "25",
	"THERM":      "100",
}

// WriteGLUInput renders a GLU input file to path. Overrides must name
// known GLU parameters; lattice dimensions are usually filled from the
// ensemble physics by the caller (DIM_0..2 = L, DIM_3 = T).
func WriteGLUInput(path string, overrides map[string]string) (string, error) {
	params := Merge(gluDefaults)
	for key, value := range overrides {
		if _, known := gluDefaults[key]; !known {
			return "", fmt.Errorf("no GLU parameter %q to override", key)
		}
		params[key] = value
	}

	tmpl, err := template.ParseFS(templates, "templates/glu_input.tmpl")
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := tmpl.Execute(out, params); err != nil {
		return "", err
	}
	return path, nil
}

// gluJob is the rendering context of the smearing SBATCH template.
type gluJob struct {
	Ensemble     *domain.Ensemble
	EnsembleName string
	DBURI        string
	InputPath    string

	Account     string
	Constraint  string
	Queue       string
	TimeLimit   string
	Nodes       string
	CPUsPerTask string
	MailUser    string

	GLUPath     string
	ConfigStart string
	ConfigEnd   string
	ConfigInc   string
	Nsim        string

	SmearType  string
	SmearIters string
}

// WriteGLUScript renders the smearing SBATCH launcher into the
// ensemble's slurm/ directory. inputPath is the GLU input file the job
// reads; the config range comes from the job parameters because it is
// a property of the run, not of the smearing recipe. The script fans
// nsim GLU processes out per node, pinning each to its own slice of
// cores.
func WriteGLUScript(
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
		TimeLimit:   orDefault(job["time_limit"], "06:00:00"),
		Nodes:       orDefault(job["nodes"], "1"),
		CPUsPerTask: orDefault(job["cpus_per_task"], "256"),
		MailUser:    job["mail_user"],

		GLUPath:     job["glu_path"],
		ConfigStart: job["config_start"],
		ConfigEnd:   job["config_end"],
		ConfigInc:   orDefault(job["config_increment"], "4"),
		Nsim:        orDefault(job["nsim"], "4"),

		SmearType:  orDefault(input["SMEARTYPE"], "STOUT"),
		SmearIters: orDefault(input["SMITERS"], "8"),
	}

	path := filepath.Join(e.Directory, "slurm", "glu_smear.sbatch")
	return renderLauncher("templates/glu_sbatch.tmpl", path, ctx)
}
