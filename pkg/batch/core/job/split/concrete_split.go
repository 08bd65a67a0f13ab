package split

import (
	port "github.com/tigerroll/songplays/pkg/batch/core/application/port"
)

// ConcreteSplit is a concrete implementation of the Split interface.
// It holds independent steps that run concurrently unless marked sequential.
type ConcreteSplit struct {
	id       string
	steps    []port.Step
	parallel bool
}

// NewConcreteSplit creates a new instance of ConcreteSplit whose steps run in parallel.
func NewConcreteSplit(id string, steps []port.Step) *ConcreteSplit {
	return &ConcreteSplit{
		id:       id,
		steps:    steps,
		parallel: true,
	}
}

// NewSequentialSplit creates a split whose steps run one after another in the given order.
func NewSequentialSplit(id string, steps []port.Step) *ConcreteSplit {
	return &ConcreteSplit{id: id, steps: steps}
}

// ID returns the split ID.
func (s *ConcreteSplit) ID() string {
	return s.id
}

// Steps returns the steps in the split.
func (s *ConcreteSplit) Steps() []port.Step {
	return s.steps
}

// Parallel reports whether the steps run concurrently.
func (s *ConcreteSplit) Parallel() bool {
	return s.parallel
}

// Verify that ConcreteSplit implements the port.Split interface.
var _ port.Split = (*ConcreteSplit)(nil)
