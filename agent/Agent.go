// Package agent describes the interface between experiments and
// learning agents.
package agent

import "github.com/metarl/metasac/timestep"

// MetaLearner is an agent whose policy is conditioned on a recurrent
// embedding of trajectory history. Experiments drive it as a state
// machine: ResetRecurrent zeroes the memory, ObserveFirst starts a
// trajectory, SelectAction and Observe alternate within it, and
// EndTrajectory and EndEpoch mark the outer loop boundaries.
type MetaLearner interface {
	// ResetRecurrent zeroes the recurrent state.
	ResetRecurrent()

	// ObserveFirst begins a trajectory at the environment reset step.
	ObserveFirst(t timestep.TimeStep)

	// SelectAction chooses the next training action given the current
	// observation.
	SelectAction(t timestep.TimeStep) (int, error)

	// SelectActionEval chooses an evaluation action, greedily when
	// greedy is set and stochastically otherwise.
	SelectActionEval(t timestep.TimeStep, greedy bool) (int, error)

	// Observe records the outcome of the last training action.
	Observe(action int, next timestep.TimeStep)

	// ObserveEval carries the recurrent state and the previous
	// action-reward pair forward without storing experience.
	ObserveEval(action int, next timestep.TimeStep)

	// EndTrajectory finalizes the current trajectory and, on the
	// configured cadence, runs one optimization cycle.
	EndTrajectory() error

	// EndEpoch drops the epoch's experience and decays the learning
	// rates.
	EndEpoch() error
}
