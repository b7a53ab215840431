// Package params manages the stored default parameters that seed
// script generation, keyed (ensemble, job type, variant).
package params

import (
	"github.com/youta-t/flarc"
)

const (
	ARG_ENSEMBLE = "ENSEMBLE"
	ARG_JOB_TYPE = "JOB_TYPE"
	ARG_VARIANT  = "VARIANT"
	ARG_FILE     = "FILE"
)

func New() (flarc.Command, error) {
	get, err := NewGet()
	if err != nil {
		return nil, err
	}
	set, err := NewSet()
	if err != nil {
		return nil, err
	}
	unset, err := NewUnset()
	if err != nil {
		return nil, err
	}
	list, err := NewList()
	if err != nil {
		return nil, err
	}
	imp, err := NewImport()
	if err != nil {
		return nil, err
	}
	exp, err := NewExport()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Manage default parameters for script generation.",
		struct{}{},
		flarc.WithSubcommand("get", get),
		flarc.WithSubcommand("set", set),
		flarc.WithSubcommand("unset", unset),
		flarc.WithSubcommand("list", list),
		flarc.WithSubcommand("import", imp),
		flarc.WithSubcommand("export", exp),
	)
}
