// Package domain defines the entities of the ensemble database:
// ensembles, their operation history, and stored default parameters,
// together with the status enums and the error taxonomy shared by the
// repositories built on top of them.
package domain
