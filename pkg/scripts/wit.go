package scripts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/latticeqcd/ensdb/pkg/domain"
)

// witSection keeps the fixed section and key order of the WIT input
// file; the solver refuses reordered sections.
type witSection struct {
	name string
	keys []string
}

var witLayout = []witSection{
	{"Run name", []string{"name"}},
	{"Directories", []string{"cnfg_dir"}},
	{"Configurations", []string{"first", "last", "step"}},
	{"Random number generator", []string{"level", "seed"}},
	{"Lattice parameters", []string{"Ls", "M5", "b", "c"}},
	{"Boundary conditions", []string{"type"}},
	{"Witness", []string{"no_prop", "no_solver"}},
	{"Propagator 0", []string{"kappa"}},
	{"Propagator 1", []string{"kappa"}},
	{"Propagator 2", []string{"kappa"}},
	{"Solver 0", []string{"solver", "nkv", "isolv", "nmr", "ncy", "nmx", "exact_deflation"}},
	{"Solver 1", []string{"solver", "nkv", "isolv", "nmr", "ncy", "nmx", "exact_deflation"}},
	{"Exact Deflation", []string{
		"Cheby_fine", "Cheby_smooth", "Cheby_coarse", "kappa", "res", "rmx", "nmx", "ns",
	}},
	{"AMA", []string{"NEXACT", "SLOPPY_PREC", "NHITS", "NT"}},
}

var witDefaults = map[string]map[string]string{
	"Run name":    {"name": "u_stout8"},
	"Directories": {"cnfg_dir": "../cnfg/"},
	"Configurations": {
		"first": "444", "last": "444", "step": "4",
	},
	"Random number generator": {"level": "0", "seed": "3993"},
	"Lattice parameters": {
		"Ls": "10", "M5": "1.0", "b": "1.75", "c": "0.75",
	},
	"Boundary conditions": {"type": "APeri"},
	"Witness":             {"no_prop": "3", "no_solver": "2"},
	"Propagator 0":        {"kappa": "0.125"},
	"Propagator 1":        {"kappa": "0.125"},
	"Propagator 2":        {"kappa": "0.125"},
	"Solver 0": {
		"solver": "CG", "nkv": "24", "isolv": "1",
		"nmr": "3", "ncy": "3", "nmx": "8000", "exact_deflation": "true",
	},
	"Solver 1": {
		"solver": "CG", "nkv": "24", "isolv": "1",
		"nmr": "3", "ncy": "3", "nmx": "8000", "exact_deflation": "false",
	},
	"Exact Deflation": {
		"Cheby_fine": "0.01,-1,24", "Cheby_smooth": "0,0,0", "Cheby_coarse": "0,0,0",
		"kappa": "0.125", "res": "1E-5", "rmx": "1E-5", "nmx": "64", "ns": "64",
	},
	"AMA": {
		"NEXACT": "1", "SLOPPY_PREC": "1E-5", "NHITS": "1", "NT": "32",
	},
}

// WriteWITInput renders the WIT measurement input to path. Overrides
// use dotted keys ("Lattice parameters.Ls=12"); lattice parameters and
// NT are usually seeded from the ensemble physics via WITOverrides.
func WriteWITInput(path string, overrides map[string]string) (string, error) {
	nested := Unflatten(overrides)
	if stray, present := nested[""]; present {
		keys := make([]string, 0, len(stray))
		for k := range stray {
			keys = append(keys, k)
		}
		return "", fmt.Errorf("WIT overrides need Section.key form, got bare %s", strings.Join(keys, ", "))
	}

	params := map[string]map[string]string{}
	for section, defaults := range witDefaults {
		params[section] = Merge(defaults, nested[section])
	}
	for section := range nested {
		if _, known := params[section]; !known {
			return "", fmt.Errorf("no WIT section %q to override", section)
		}
	}

	var b strings.Builder
	for _, section := range witLayout {
		fmt.Fprintf(&b, "[%s]\n", section.name)
		for _, key := range section.keys {
			fmt.Fprintf(&b, "%-12s %s\n", key, params[section.name][key])
		}
		b.WriteString("\n")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// witJob is the rendering context of the measurement SBATCH templates.
// OpType and WorkDir distinguish the measurement families sharing the
// WIT solver: meson two-point, residual mass, and Zv.
type witJob struct {
	Ensemble     *domain.Ensemble
	EnsembleName string
	DBURI        string
	InputPath    string

	OpType  string
	WorkDir string

	Account     string
	Constraint  string
	Queue       string
	TimeLimit   string
	Nodes       string
	GPUs        string
	CPUsPerTask string
	MailUser    string

	ExecPath   string
	BindScript string
	Ranks      string
	OGeom      string
	LGeom      string
	OMPThreads string

	First string
	Last  string
	Step  string

	RunName string
}

// WriteWITScript renders the meson two-point SBATCH launcher into the
// ensemble's slurm/ directory. inputPath is the WIT input file the
// job reads.
func WriteWITScript(
	e *domain.Ensemble, dbURI, inputPath string,
	job, input map[string]string,
) (string, error) {
	if err := Require(job, "account", "exec_path", "bind_script"); err != nil {
		return "", err
	}
	ctx := witLauncher(e, dbURI, inputPath, job, input)
	ctx.OpType = "WIT_MESON2PT"
	ctx.WorkDir = "meson2pt"

	path := filepath.Join(e.Directory, "slurm", "wit_meson2pt.sbatch")
	return renderLauncher("templates/wit_sbatch.tmpl", path, ctx)
}

// witLauncher assembles the shared launcher context of the WIT job
// family. The configuration range is taken from the same dotted
// overrides that produced the input file, so the script and the input
// never disagree about which configs are measured.
func witLauncher(
	e *domain.Ensemble, dbURI, inputPath string,
	job, input map[string]string,
) witJob {
	nested := Unflatten(input)
	configs := Merge(witDefaults["Configurations"], nested["Configurations"])
	run := Merge(witDefaults["Run name"], nested["Run name"])

	return witJob{
		Ensemble:     e,
		EnsembleName: EnsembleName(e),
		DBURI:        dbURI,
		InputPath:    inputPath,

		Account:     job["account"],
		Constraint:  orDefault(job["constraint"], "gpu"),
		Queue:       orDefault(job["queue"], "regular"),
		TimeLimit:   orDefault(job["time_limit"], "06:00:00"),
		Nodes:       orDefault(job["nodes"], "1"),
		GPUs:        orDefault(job["gpus"], "4"),
		CPUsPerTask: orDefault(job["cpus_per_task"], "32"),
		MailUser:    job["mail_user"],

		ExecPath:   job["exec_path"],
		BindScript: job["bind_script"],
		Ranks:      orDefault(job["ranks"], "4"),
		OGeom:      orDefault(job["ogeom"], "1 1 1 4"),
		LGeom:      orDefault(job["lgeom"], "1 1 1 4"),
		OMPThreads: orDefault(job["omp_num_threads"], "8"),

		First: configs["first"],
		Last:  configs["last"],
		Step:  configs["step"],

		RunName: run["name"],
	}
}

func renderLauncher(name, path string, ctx any) (string, error) {
	tmpl, err := template.ParseFS(templates, name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := tmpl.Execute(out, ctx); err != nil {
		return "", err
	}
	return path, nil
}

// WITOverrides seeds the physics-coupled WIT parameters from the
// ensemble: the domain-wall height count and lattice couplings, and
// the temporal extent for AMA.
func WITOverrides(e *domain.Ensemble) map[string]string {
	return map[string]string{
		"Lattice parameters.Ls": e.Physics["Ls"],
		"Lattice parameters.b":  e.Physics["b"],
		"AMA.NT":                e.Physics["T"],
	}
}

// GLUOverrides seeds the lattice dimensions of a GLU input from the
// ensemble physics.
func GLUOverrides(e *domain.Ensemble) map[string]string {
	return map[string]string{
		"DIM_0": e.Physics["L"],
		"DIM_1": e.Physics["L"],
		"DIM_2": e.Physics["L"],
		"DIM_3": e.Physics["T"],
		"BETA":  e.Physics["beta"],
	}
}
