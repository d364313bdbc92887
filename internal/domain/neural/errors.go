package neural

import "errors"

// Domain errors for the learning agent.
var (
	// ErrInvalidConfig indicates an unusable agent configuration.
	ErrInvalidConfig = errors.New("invalid agent configuration")

	// ErrInsufficientSamples indicates the buffer holds fewer transitions
	// than requested.
	ErrInsufficientSamples = errors.New("insufficient transitions in replay buffer")

	// ErrShapeMismatch indicates weights or inputs of the wrong shape.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrCheckpointNotFound indicates a missing checkpoint.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)
