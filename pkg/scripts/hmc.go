package scripts

import (
	"embed"
	"encoding/xml"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/latticeqcd/ensdb/pkg/domain"
)

//go:embed templates
var templates embed.FS

// HMC run modes. They differ in where the trajectory starts and
// whether the Metropolis test is armed.
const (
	ModeTepid    = "tepid"
	ModeContinue = "continue"
	ModeReseed   = "reseed"
)

type hmcMode struct {
	start        string
	trajectories string
	startingType string
	metropolis   string
}

var hmcModes = map[string]hmcMode{
	ModeTepid:    {"0", "100", "TepidStart", "false"},
	ModeContinue: {"12", "20", "CheckpointStart", "true"},
	ModeReseed:   {"0", "200", "CheckpointStartReseed", "true"},
}

// hmcXML mirrors the parameter file Grid's HMC reads: a <grid> root
// holding <HMCparameters> with the MD integrator block nested inside.
type hmcXML struct {
	XMLName xml.Name  `xml:"grid"`
	Params  hmcParams `xml:"HMCparameters"`
}

type hmcParams struct {
	StartTrajectory    string `xml:"StartTrajectory"`
	Trajectories       string `xml:"Trajectories"`
	MetropolisTest     string `xml:"MetropolisTest"`
	NoMetropolisUntil  string `xml:"NoMetropolisUntil"`
	PerformRandomShift string `xml:"PerformRandomShift"`
	StartingType       string `xml:"StartingType"`
	Seed               string `xml:"Seed"`
	MD                 hmcMD  `xml:"MD"`
}

type hmcMD struct {
	Name     []string `xml:"name>elem"`
	MDsteps  string   `xml:"MDsteps"`
	TrajL    string   `xml:"trajL"`
	LvlSizes []string `xml:"lvl_sizes>elem"`
}

// WriteHMCParameters renders HMCparameters.xml into the ensemble
// directory and returns its path. Overrides address the XML tags by
// name (md_name and lvl_sizes take comma-separated lists); an unknown
// key is an error rather than a silently dropped knob. Seed is rolled
// fresh unless overridden, and overriding it outside reseed mode is
// refused: re-running a tepid or continue job with a pinned seed
// silently replays the same trajectory stream.
func WriteHMCParameters(dir, mode string, overrides map[string]string) (string, error) {
	m, ok := hmcModes[mode]
	if !ok {
		return "", fmt.Errorf("unknown HMC mode %q", mode)
	}
	if _, pinned := overrides["Seed"]; pinned && mode != ModeReseed {
		return "", fmt.Errorf("cannot override Seed in mode %q", mode)
	}

	params := hmcParams{
		StartTrajectory:    m.start,
		Trajectories:       m.trajectories,
		MetropolisTest:     m.metropolis,
		NoMetropolisUntil:  "0",
		PerformRandomShift: "false",
		StartingType:       m.startingType,
		Seed:               fmt.Sprint(rand.Intn(1_000_000) + 1),
		MD: hmcMD{
			Name:     []string{"OMF2_5StepV", "OMF2_5StepV", "OMF4_11StepV"},
			MDsteps:  "1",
			TrajL:    "0.75",
			LvlSizes: []string{"9", "1", "1"},
		},
	}

	for key, value := range overrides {
		switch key {
		case "StartTrajectory":
			params.StartTrajectory = value
		case "Trajectories":
			params.Trajectories = value
		case "MetropolisTest":
			params.MetropolisTest = value
		case "NoMetropolisUntil":
			params.NoMetropolisUntil = value
		case "PerformRandomShift":
			params.PerformRandomShift = value
		case "Seed":
			params.Seed = value
		case "MDsteps":
			params.MD.MDsteps = value
		case "trajL":
			params.MD.TrajL = value
		case "md_name":
			params.MD.Name = splitList(value)
		case "lvl_sizes":
			params.MD.LvlSizes = splitList(value)
		default:
			return "", fmt.Errorf("no HMC parameter %q to override", key)
		}
	}

	rendered, err := xml.MarshalIndent(hmcXML{Params: params}, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "HMCparameters.xml")
	if err := os.WriteFile(path, append(rendered, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// hmcJob is the rendering context of the HMC SBATCH template.
type hmcJob struct {
	Ensemble     *domain.Ensemble
	EnsembleName string
	Volume       string
	DBURI        string
	Mode         string

	Account       string
	Constraint    string
	Queue         string
	TimeLimit     string
	Nodes         string
	CPUsPerTask   string
	NtasksPerNode string
	GPUsPerTask   string
	GPUBind       string
	MailUser      string

	ExecPath   string
	BindScript string
	MPI        string
	OMPThreads string

	Trajectories string
	TrajL        string
	LvlSizes     string
}

// WriteHMCScript renders the SBATCH launcher into the ensemble's
// slurm/ directory and returns its path. Job parameters come from the
// merged default-params/override map; account, exec_path, bind_script
// and mpi have no sane defaults and must be present. Trajectory
// parameters are read from the same input map that fed the XML so the
// two never disagree.
func WriteHMCScript(
	e *domain.Ensemble, dbURI, mode string,
	job, input map[string]string,
) (string, error) {
	if _, ok := hmcModes[mode]; !ok {
		return "", fmt.Errorf("unknown HMC mode %q", mode)
	}
	if err := Require(job, "account", "exec_path", "bind_script", "mpi"); err != nil {
		return "", err
	}
	if err := Require(e.Physics, "L", "T"); err != nil {
		return "", err
	}

	ctx := hmcJob{
		Ensemble:     e,
		EnsembleName: EnsembleName(e),
		Volume: fmt.Sprintf("%s.%s.%s.%s",
			e.Physics["L"], e.Physics["L"], e.Physics["L"], e.Physics["T"]),
		DBURI: dbURI,
		Mode:  mode,

		Account:       job["account"],
		Constraint:    orDefault(job["constraint"], "gpu"),
		Queue:         orDefault(job["queue"], "regular"),
		TimeLimit:     orDefault(job["time_limit"], "06:00:00"),
		Nodes:         orDefault(job["nodes"], "1"),
		CPUsPerTask:   orDefault(job["cpus_per_task"], "16"),
		NtasksPerNode: orDefault(job["ntasks_per_node"], "4"),
		GPUsPerTask:   orDefault(job["gpus_per_task"], "1"),
		GPUBind:       orDefault(job["gpu_bind"], "none"),
		MailUser:      job["mail_user"],

		ExecPath:   job["exec_path"],
		BindScript: job["bind_script"],
		MPI:        job["mpi"],
		OMPThreads: orDefault(job["omp_num_threads"], "16"),

		Trajectories: orDefault(input["Trajectories"], hmcModes[mode].trajectories),
		TrajL:        orDefault(input["trajL"], "0.75"),
		LvlSizes:     orDefault(input["lvl_sizes"], "9,1,1"),
	}

	tmpl, err := template.ParseFS(templates, "templates/hmc_sbatch.tmpl")
	if err != nil {
		return "", err
	}

	path := filepath.Join(e.Directory, "slurm", fmt.Sprintf("hmc_%s.sbatch", mode))
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

// EnsembleName flattens the physics vector into the underscore name
// used in log filenames, e.g. b6.0_b2.5Ls12_mc0.6_ms0.04_ml0.005_L24_T48.
func EnsembleName(e *domain.Ensemble) string {
	p := e.Physics
	return fmt.Sprintf("b%s_b%sLs%s_mc%s_ms%s_ml%s_L%s_T%s",
		p["beta"], p["b"], p["Ls"], p["mc"], p["ms"], p["ml"], p["L"], p["T"])
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
