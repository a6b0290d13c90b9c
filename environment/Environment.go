// Package environment describes the interface between agents and the
// simulated environments they interact with.
package environment

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/metarl/metasac/timestep"
)

// Environment is a gym-style environment with a discrete action
// space. Step separates the terminated flag (the task itself ended)
// from the truncated flag (the time horizon was reached), since the
// two must be bootstrapped differently.
type Environment interface {
	Reset() (timestep.TimeStep, error)
	Step(action int) (timestep.TimeStep, error)
	ActionSpace() *Discrete
	ObservationSize() int
}

// TaskResampler is implemented by meta-RL environments whose task
// parameters can be redrawn, yielding a new task instance over the
// same observation and action spaces.
type TaskResampler interface {
	NewTask()
}

// Discrete is a discrete action space of cardinality n with actions
// numbered 0 through n-1.
type Discrete struct {
	n   int
	rng *rand.Rand
}

// NewDiscrete returns a discrete action space of cardinality n whose
// Sample method draws from a stream seeded with seed.
func NewDiscrete(n int, seed uint64) (*Discrete, error) {
	if n <= 0 {
		return nil, fmt.Errorf("newdiscrete: invalid cardinality %v", n)
	}
	return &Discrete{
		n:   n,
		rng: rand.New(rand.NewSource(seed)),
	}, nil
}

// N returns the cardinality of the action space.
func (d *Discrete) N() int {
	return d.n
}

// Contains returns whether action is a legal action.
func (d *Discrete) Contains(action int) bool {
	return action >= 0 && action < d.n
}

// Sample returns an action drawn uniformly at random.
func (d *Discrete) Sample() int {
	return d.rng.Intn(d.n)
}
