// Package defaults stores per-ensemble parameter recipes, keyed by job
// type and variant. Script generation folds them under caller-supplied
// overrides; nothing here interprets the values.
package defaults

import (
	"context"
	"errors"

	"github.com/latticeqcd/ensdb/pkg/db"
	"github.com/latticeqcd/ensdb/pkg/domain"
)

type Store struct {
	backend db.Backend
}

func New(backend db.Backend) *Store {
	return &Store{backend: backend}
}

func key(ensembleId int64, jobType, variant string) db.Query {
	return db.Query{
		"ensemble_id": ensembleId,
		"job_type":    jobType,
		"variant":     variant,
	}
}

// Set upserts one recipe. The last write wins wholesale; recipes are
// small enough that merging stored halves would only obscure what a
// later Get returns.
func (s *Store) Set(ctx context.Context, dp domain.DefaultParams) error {
	patch := db.Patch{Set: map[string]any{
		"input_params": toDoc(dp.InputParams),
		"job_params":   toDoc(dp.JobParams),
	}}

	matched, err := s.backend.UpdateOne(ctx, db.DefaultParams, key(dp.EnsembleId, dp.JobType, dp.Variant), patch)
	if err != nil {
		return err
	}
	if matched {
		return nil
	}

	doc := db.Document{
		"ensemble_id":  dp.EnsembleId,
		"job_type":     dp.JobType,
		"variant":      dp.Variant,
		"input_params": toDoc(dp.InputParams),
		"job_params":   toDoc(dp.JobParams),
	}
	_, err = s.backend.Insert(ctx, db.DefaultParams, doc)
	if errors.Is(err, db.ErrDuplicate) {
		// Lost the insert race; the row exists now, so update it.
		_, err = s.backend.UpdateOne(ctx, db.DefaultParams, key(dp.EnsembleId, dp.JobType, dp.Variant), patch)
	}
	return err
}

// Get returns the recipe for (ensemble, job type, variant), or nil
// when none is stored. Absence is ordinary, not an error: script
// generation then starts from built-in defaults alone.
func (s *Store) Get(ctx context.Context, ensembleId int64, jobType, variant string) (*domain.DefaultParams, error) {
	doc, err := s.backend.FindOne(ctx, db.DefaultParams, key(ensembleId, jobType, variant))
	if errors.Is(err, db.ErrMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromDoc(doc), nil
}

// List returns every recipe of one ensemble, ordered by job type.
func (s *Store) List(ctx context.Context, ensembleId int64) ([]domain.DefaultParams, error) {
	found, err := s.backend.Find(
		ctx, db.DefaultParams,
		db.Query{"ensemble_id": ensembleId},
		db.FindOptions{OrderBy: "job_type"},
	)
	if err != nil {
		return nil, err
	}
	recipes := make([]domain.DefaultParams, 0, len(found))
	for _, doc := range found {
		recipes = append(recipes, *fromDoc(doc))
	}
	return recipes, nil
}

// Delete removes one recipe; removing an absent one is a no-op.
func (s *Store) Delete(ctx context.Context, ensembleId int64, jobType, variant string) error {
	_, err := s.backend.DeleteMany(ctx, db.DefaultParams, key(ensembleId, jobType, variant))
	return err
}

func toDoc(params map[string]string) map[string]any {
	doc := map[string]any{}
	for k, v := range params {
		doc[k] = v
	}
	return doc
}

func fromDoc(doc db.Document) *domain.DefaultParams {
	ensembleId, _ := doc.Int64("ensemble_id")
	return &domain.DefaultParams{
		EnsembleId:  ensembleId,
		JobType:     doc.String("job_type"),
		Variant:     doc.String("variant"),
		InputParams: doc.StringMap("input_params"),
		JobParams:   doc.StringMap("job_params"),
	}
}
