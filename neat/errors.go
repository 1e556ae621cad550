package neat

import "errors"

var (
	// ErrInvalidGenome is returned when a gene list cannot form a genome: ids out of range,
	// unsorted or duplicate genes, or a cycle when the meta genome requires acyclic graphs.
	ErrInvalidGenome = errors.New("invalid genome")

	// ErrInvalidConfig is returned by config loading and settings validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidSpeciation is returned when speciation is asked for an impossible partition.
	ErrInvalidSpeciation = errors.New("invalid speciation request")
)
