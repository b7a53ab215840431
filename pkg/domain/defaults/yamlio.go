package defaults

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/latticeqcd/ensdb/pkg/domain"
)

// The file form of a recipe set, keyed job type -> variant:
//
//	hmc:
//	  tepid:
//	    input: {Trajectories: 100, trajL: 0.75}
//	    job:   {time_limit: "06:00:00", nodes: 4}
//
// Values may be written as bare numbers; they are carried as strings
// internally, like every other parameter.
type fileRecipe struct {
	Input map[string]any `yaml:"input,omitempty"`
	Job   map[string]any `yaml:"job,omitempty"`
}

type recipeFile map[string]map[string]fileRecipe

// ReadFile parses a recipe file. EnsembleId is left zero; the caller
// binds the recipes to an ensemble.
func ReadFile(path string) ([]domain.DefaultParams, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parsed := recipeFile{}
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	recipes := []domain.DefaultParams{}
	for jobType, variants := range parsed {
		for variant, recipe := range variants {
			recipes = append(recipes, domain.DefaultParams{
				JobType:     jobType,
				Variant:     variant,
				InputParams: stringify(recipe.Input),
				JobParams:   stringify(recipe.Job),
			})
		}
	}
	sort.Slice(recipes, func(i, j int) bool {
		if recipes[i].JobType != recipes[j].JobType {
			return recipes[i].JobType < recipes[j].JobType
		}
		return recipes[i].Variant < recipes[j].Variant
	})
	return recipes, nil
}

// WriteFile renders recipes in the file form.
func WriteFile(path string, recipes []domain.DefaultParams) error {
	out := recipeFile{}
	for _, recipe := range recipes {
		if out[recipe.JobType] == nil {
			out[recipe.JobType] = map[string]fileRecipe{}
		}
		out[recipe.JobType][recipe.Variant] = fileRecipe{
			Input: anyify(recipe.InputParams),
			Job:   anyify(recipe.JobParams),
		}
	}
	raw, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// Import loads a recipe file into the store under one ensemble,
// upserting each (job type, variant) it names and leaving the rest
// alone. It returns how many recipes landed.
func (s *Store) Import(ctx context.Context, ensembleId int64, path string) (int, error) {
	recipes, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	for i := range recipes {
		recipes[i].EnsembleId = ensembleId
		if err := s.Set(ctx, recipes[i]); err != nil {
			return i, err
		}
	}
	return len(recipes), nil
}

// Export writes every stored recipe of one ensemble to a file.
func (s *Store) Export(ctx context.Context, ensembleId int64, path string) (int, error) {
	recipes, err := s.List(ctx, ensembleId)
	if err != nil {
		return 0, err
	}
	if err := WriteFile(path, recipes); err != nil {
		return 0, err
	}
	return len(recipes), nil
}

func stringify(values map[string]any) map[string]string {
	out := map[string]string{}
	for k, v := range values {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func anyify(values map[string]string) map[string]any {
	if len(values) == 0 {
		return nil
	}
	out := map[string]any{}
	for k, v := range values {
		out[k] = v
	}
	return out
}
