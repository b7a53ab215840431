// Package view holds the JSON shapes the CLI prints. They are kept
// apart from the domain types so that output stays stable even when
// the internals move.
package view

import (
	"github.com/latticeqcd/ensdb/pkg/domain"
	"github.com/latticeqcd/ensdb/pkg/utils/rfctime"
)

type Ensemble struct {
	Id                int64             `json:"id"`
	Physics           map[string]string `json:"physics"`
	Status            string            `json:"status"`
	Directory         string            `json:"directory"`
	Nickname          string            `json:"nickname,omitempty"`
	Description       string            `json:"description,omitempty"`
	CreationTime      string            `json:"creation_time"`
	OperationCount    int64             `json:"operation_count"`
	LatestConfigIndex *int64            `json:"latest_config_index,omitempty"`
}

func FromEnsemble(e *domain.Ensemble) Ensemble {
	return Ensemble{
		Id:                e.Id,
		Physics:           e.Physics,
		Status:            string(e.Status),
		Directory:         e.Directory,
		Nickname:          e.Nickname,
		Description:       e.Description,
		CreationTime:      rfctime.Format(e.CreationTime),
		OperationCount:    e.OperationCount,
		LatestConfigIndex: e.LatestConfigIndex,
	}
}

func FromEnsembles(es []domain.Ensemble) []Ensemble {
	out := make([]Ensemble, len(es))
	for i := range es {
		out[i] = FromEnsemble(&es[i])
	}
	return out
}

type Operation struct {
	Id            int64             `json:"id"`
	EnsembleId    int64             `json:"ensemble_id"`
	OperationType string            `json:"operation_type"`
	Status        string            `json:"status"`
	Params        map[string]string `json:"params,omitempty"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
}

func FromOperation(op *domain.Operation) Operation {
	return Operation{
		Id:            op.Id,
		EnsembleId:    op.EnsembleId,
		OperationType: op.Type,
		Status:        string(op.Status),
		Params:        op.Params,
		CreatedAt:     rfctime.Format(op.CreatedAt),
		UpdatedAt:     rfctime.Format(op.UpdatedAt),
	}
}

func FromOperations(ops []domain.Operation) []Operation {
	out := make([]Operation, len(ops))
	for i := range ops {
		out[i] = FromOperation(&ops[i])
	}
	return out
}

type DefaultParams struct {
	EnsembleId  int64             `json:"ensemble_id"`
	JobType     string            `json:"job_type"`
	Variant     string            `json:"variant"`
	InputParams map[string]string `json:"input_params,omitempty"`
	JobParams   map[string]string `json:"job_params,omitempty"`
}

func FromDefaultParams(dp *domain.DefaultParams) DefaultParams {
	return DefaultParams{
		EnsembleId:  dp.EnsembleId,
		JobType:     dp.JobType,
		Variant:     dp.Variant,
		InputParams: dp.InputParams,
		JobParams:   dp.JobParams,
	}
}

func FromDefaultParamsList(dps []domain.DefaultParams) []DefaultParams {
	out := make([]DefaultParams, len(dps))
	for i := range dps {
		out[i] = FromDefaultParams(&dps[i])
	}
	return out
}
