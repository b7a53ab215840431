// Package dirpath derives the canonical directory of an ensemble from
// its status and physics parameters.
//
// The layout is fixed:
//
//	<base>/TUNING/b{beta}/b{b}Ls{Ls}/mc{mc}/ms{ms}/ml{ml}/L{L}/T{T}
//	<base>/ENSEMBLES/...                       (after promotion)
//
// Derivation is pure and injective over the textual parameter values:
// two distinct physics maps never collapse to the same path. It is used
// to compute the expected directory at creation and promotion time,
// never to validate an existing one.
package dirpath

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/latticeqcd/ensdb/pkg/domain"
)

// Roots of the two status subtrees under the base directory.
const (
	TuningRoot     = "TUNING"
	ProductionRoot = "ENSEMBLES"
)

// RequiredKeys lists the physics parameters every ensemble must carry,
// in the order their segments appear in the path. "b" and "Ls" share
// one segment.
var RequiredKeys = []string{"beta", "b", "Ls", "mc", "ms", "ml", "L", "T"}

// Subdirs are the fixed subdirectories of every ensemble directory:
// raw configurations, job logs, HMC run logs, and generated batch
// scripts. The config scanner and script generation depend on these
// exact names.
var Subdirs = []string{"cnfg", "jlog", "log_hmc", "slurm"}

// Root returns the status subtree name for a status.
func Root(status domain.EnsembleStatus) string {
	if status == domain.Production {
		return ProductionRoot
	}
	return TuningRoot
}

// Rel returns the ensemble path relative to the base directory,
// starting with the status root. It fails with ErrMissingParameter
// when a required physics key is absent or empty.
func Rel(status domain.EnsembleStatus, physics map[string]string) (string, error) {
	missing := []string{}
	for _, k := range RequiredKeys {
		if physics[k] == "" {
			missing = append(missing, k)
		}
	}
	if 0 < len(missing) {
		return "", domain.NewErrMissingParameter(missing...)
	}

	return filepath.Join(
		Root(status),
		fmt.Sprintf("b%s", physics["beta"]),
		fmt.Sprintf("b%sLs%s", physics["b"], physics["Ls"]),
		fmt.Sprintf("mc%s", physics["mc"]),
		fmt.Sprintf("ms%s", physics["ms"]),
		fmt.Sprintf("ml%s", physics["ml"]),
		fmt.Sprintf("L%s", physics["L"]),
		fmt.Sprintf("T%s", physics["T"]),
	), nil
}

// Derive returns the absolute canonical directory for an ensemble
// rooted at base.
func Derive(base string, status domain.EnsembleStatus, physics map[string]string) (string, error) {
	rel, err := Rel(status, physics)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(filepath.Join(base, rel))
	if err != nil {
		return "", err
	}
	return abs, nil
}

// Base strips the derived relative path off directory, recovering the
// base the ensemble tree is rooted at. It fails when directory does
// not end with the canonical segments for (status, physics).
func Base(directory string, status domain.EnsembleStatus, physics map[string]string) (string, error) {
	rel, err := Rel(status, physics)
	if err != nil {
		return "", err
	}
	suffix := string(filepath.Separator) + rel
	if !strings.HasSuffix(directory, suffix) {
		return "", fmt.Errorf("directory %s is not canonical for its physics parameters", directory)
	}
	return strings.TrimSuffix(directory, suffix), nil
}

var segmentPatterns = []struct {
	key string
	re  *regexp.Regexp
}{
	{"beta", regexp.MustCompile(`(?:^|/)b(\d+\.?\d*)(?:/|$)`)},
	{"b", regexp.MustCompile(`(?:^|/)b(\d+\.?\d*)Ls`)},
	{"Ls", regexp.MustCompile(`Ls(\d+)(?:/|$)`)},
	{"mc", regexp.MustCompile(`(?:^|/)mc(\d+\.?\d*)(?:/|$)`)},
	{"ms", regexp.MustCompile(`(?:^|/)ms(\d+\.?\d*)(?:/|$)`)},
	{"ml", regexp.MustCompile(`(?:^|/)ml(\d+\.?\d*)(?:/|$)`)},
	{"L", regexp.MustCompile(`(?:^|/)L(\d+)(?:/|$)`)},
	{"T", regexp.MustCompile(`(?:^|/)T(\d+)(?:/|$)`)},
}

// InferPhysics reads physics parameters back out of a path that
// follows the canonical layout. Keys whose segment is absent are left
// out of the result; the caller decides whether that is an error.
func InferPhysics(path string) map[string]string {
	normalized := filepath.ToSlash(path)
	out := map[string]string{}
	for _, p := range segmentPatterns {
		if m := p.re.FindStringSubmatch(normalized); m != nil {
			out[p.key] = m[1]
		}
	}
	return out
}
