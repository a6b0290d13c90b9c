// Package timestep describes a single step of environment interaction.
package timestep

import "gonum.org/v1/gonum/mat"

// TimeStep is one step of experience from an environment. Number is
// the index of the step within its trajectory, with the reset step
// numbered 0.
type TimeStep struct {
	Observation *mat.VecDense
	Reward      float64
	Terminated  bool
	Truncated   bool
	Number      int
}

// New returns a new TimeStep.
func New(obs *mat.VecDense, reward float64, terminated, truncated bool,
	number int) TimeStep {
	return TimeStep{
		Observation: obs,
		Reward:      reward,
		Terminated:  terminated,
		Truncated:   truncated,
		Number:      number,
	}
}

// First returns a TimeStep describing an environment reset.
func First(obs *mat.VecDense) TimeStep {
	return New(obs, 0, false, false, 0)
}

// Last returns whether the TimeStep ends its trajectory.
func (t TimeStep) Last() bool {
	return t.Terminated || t.Truncated
}
