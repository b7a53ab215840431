package domain

// DefaultParams is a stored parameter recipe for one job type and
// variant of an ensemble, e.g. (hmc, tepid) or (smear, stout8). Script
// generation reads these; nothing in the core ever interprets them.
type DefaultParams struct {
	EnsembleId int64
	JobType    string
	Variant    string

	// InputParams feed the physics input file (XML, GLU input, WIT
	// input) of the job.
	InputParams map[string]string

	// JobParams feed the batch-script side: time limit, nodes,
	// constraint, and so on.
	JobParams map[string]string
}
