// Package scripts renders batch-job inputs from ensemble state: the
// HMC parameter XML and SBATCH script, the GLU smearing and
// Wilson-flow inputs, and the WIT measurement inputs (meson two-point,
// residual mass, Zv). Rendering is pure text generation; recording the
// run in the operation log is the caller's business.
package scripts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/latticeqcd/ensdb/pkg/domain"
)

// ParseParams reads flat "key=value" tokens, the form job scripts pass
// on the command line. Keys may be dotted ("Solver 0.nmx" style keys
// use the dot only; spaces stay inside the key). Empty values are
// allowed; empty keys and bare words are not.
func ParseParams(tokens []string) (map[string]string, error) {
	params := map[string]string{}
	for _, token := range tokens {
		key, value, found := strings.Cut(token, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("malformed parameter %q: want key=value", token)
		}
		params[key] = value
	}
	return params, nil
}

// FormatParams renders a parameter map as sorted "key=value" tokens,
// the inverse of ParseParams up to ordering.
func FormatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tokens := make([]string, 0, len(keys))
	for _, k := range keys {
		tokens = append(tokens, k+"="+params[k])
	}
	return strings.Join(tokens, " ")
}

// Merge folds parameter maps left to right, later maps winning. Nil
// maps are fine; the result is always a fresh map.
func Merge(maps ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// Unflatten turns dotted keys into nested maps: "Solver 0.nmx" becomes
// params["Solver 0"]["nmx"]. Only the first dot splits; undotted keys
// land in the "" section. The WIT input writer consumes this shape.
func Unflatten(params map[string]string) map[string]map[string]string {
	nested := map[string]map[string]string{}
	for key, value := range params {
		section, field, found := strings.Cut(key, ".")
		if !found {
			section, field = "", key
		}
		if nested[section] == nil {
			nested[section] = map[string]string{}
		}
		nested[section][field] = value
	}
	return nested
}

// Require checks that every listed key is present and non-empty,
// failing with one ErrMissingParameter naming all absentees.
func Require(params map[string]string, keys ...string) error {
	missing := []string{}
	for _, k := range keys {
		if params[k] == "" {
			missing = append(missing, k)
		}
	}
	if 0 < len(missing) {
		return domain.NewErrMissingParameter(missing...)
	}
	return nil
}
