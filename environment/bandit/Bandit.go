// Package bandit implements a K-armed Bernoulli bandit whose arm
// means can be resampled between epochs, giving a family of related
// tasks for meta-RL training. The observation carries no task
// information, so an agent can only do better than chance by
// conditioning on its own action and reward history.
package bandit

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/metarl/metasac/environment"
	"github.com/metarl/metasac/timestep"
)

// Bandit is a K-armed Bernoulli bandit. Pulling arm a yields reward 1
// with probability means[a] and 0 otherwise. A trajectory truncates
// after horizon pulls; the task never terminates on its own.
type Bandit struct {
	arms    int
	horizon int
	means   []float64

	actions  *environment.Discrete
	rng      *rand.Rand
	meanDist distuv.Uniform

	step int
	done bool
}

// New returns a bandit with arms arms and trajectories of length
// horizon. The arm means are drawn uniformly from [0, 1); call
// NewTask to redraw them.
func New(arms, horizon int, seed uint64) (*Bandit, error) {
	if arms <= 0 {
		return nil, fmt.Errorf("new: invalid number of arms %v", arms)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("new: invalid horizon %v", horizon)
	}

	actions, err := environment.NewDiscrete(arms, seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create action space: %v", err)
	}

	source := rand.NewSource(seed)
	b := &Bandit{
		arms:    arms,
		horizon: horizon,
		means:   make([]float64, arms),
		actions: actions,
		rng:     rand.New(source),
		meanDist: distuv.Uniform{
			Min: 0,
			Max: 1,
			Src: source,
		},
		done: true,
	}
	b.NewTask()
	return b, nil
}

// NewTask redraws the arm means, producing a new task instance.
func (b *Bandit) NewTask() {
	for i := range b.means {
		b.means[i] = b.meanDist.Rand()
	}
}

// Means returns the current arm means.
func (b *Bandit) Means() []float64 {
	return b.means
}

// Reset starts a new trajectory.
func (b *Bandit) Reset() (timestep.TimeStep, error) {
	b.step = 0
	b.done = false
	return timestep.First(b.observation()), nil
}

// Step pulls arm action.
func (b *Bandit) Step(action int) (timestep.TimeStep, error) {
	if b.done {
		return timestep.TimeStep{}, fmt.Errorf("step: trajectory already " +
			"ended")
	}
	if !b.actions.Contains(action) {
		return timestep.TimeStep{}, fmt.Errorf("step: invalid action %v",
			action)
	}

	reward := 0.0
	if b.rng.Float64() < b.means[action] {
		reward = 1.0
	}

	b.step++
	truncated := b.step >= b.horizon
	b.done = truncated

	return timestep.New(b.observation(), reward, false, truncated,
		b.step), nil
}

// ActionSpace returns the bandit's action space.
func (b *Bandit) ActionSpace() *environment.Discrete {
	return b.actions
}

// ObservationSize returns the dimensionality of observations.
func (b *Bandit) ObservationSize() int {
	return 1
}

func (b *Bandit) observation() *mat.VecDense {
	// The observation is constant; history is the only signal
	return mat.NewVecDense(1, []float64{0})
}
