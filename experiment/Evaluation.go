package experiment

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/metarl/metasac/agent"
	"github.com/metarl/metasac/environment"
	"github.com/metarl/metasac/logx"
)

// EvaluationConfig describes a held-out evaluation run.
type EvaluationConfig struct {
	Trajectories     int     `json:"trajectories" yaml:"trajectories"`
	MaxEpisodeLength int     `json:"maxEpisodeLength" yaml:"maxEpisodeLength"`
	GreedyRatio      float64 `json:"greedyRatio" yaml:"greedyRatio"`
	WarmUpSteps      int     `json:"warmUpSteps" yaml:"warmUpSteps"`
	Seed             uint64  `json:"seed" yaml:"seed"`
}

// Validate returns an error describing the first invalid field.
func (c EvaluationConfig) Validate() error {
	if c.Trajectories <= 0 {
		return fmt.Errorf("validate: invalid number of trajectories %v",
			c.Trajectories)
	}
	if c.MaxEpisodeLength <= 0 {
		return fmt.Errorf("validate: invalid max episode length %v",
			c.MaxEpisodeLength)
	}
	if c.GreedyRatio < 0 || c.GreedyRatio > 1 {
		return fmt.Errorf("validate: greedy ratio %v not in [0, 1]",
			c.GreedyRatio)
	}
	if c.WarmUpSteps < 0 {
		return fmt.Errorf("validate: invalid warm-up steps %v",
			c.WarmUpSteps)
	}
	return nil
}

// Trace records one evaluated trajectory for offline analysis.
// Observations holds one entry more than Actions and Rewards, since
// it includes the reset observation.
type Trace struct {
	Observations []*mat.VecDense
	Actions      []int
	Rewards      []float64
}

// Return returns the cumulative reward of the trajectory.
func (t Trace) Return() float64 {
	total := 0.0
	for _, r := range t.Rewards {
		total += r
	}
	return total
}

// Evaluate runs held-out trajectories with a blended policy: each
// step is greedy when a uniform draw falls at or below the greedy
// ratio, and stochastic otherwise. The recurrent state is zeroed per
// trajectory. Optional pure-random warm-up steps run once before the
// first trajectory. Nothing is stored in the agent's buffer and no
// parameter changes.
func Evaluate(env environment.Environment, learner agent.MetaLearner,
	config EvaluationConfig, logger *logx.Logger) ([]Trace, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("evaluate: %v", err)
	}
	rng := rand.New(rand.NewSource(config.Seed))

	if config.WarmUpSteps > 0 {
		if _, err := env.Reset(); err != nil {
			return nil, fmt.Errorf("evaluate: could not reset for "+
				"warm-up: %v", err)
		}
		for i := 0; i < config.WarmUpSteps; i++ {
			ts, err := env.Step(env.ActionSpace().Sample())
			if err != nil {
				return nil, fmt.Errorf("evaluate: warm-up step %v: %v", i,
					err)
			}
			if ts.Last() {
				if _, err := env.Reset(); err != nil {
					return nil, fmt.Errorf("evaluate: could not reset "+
						"during warm-up: %v", err)
				}
			}
		}
	}

	traces := make([]Trace, 0, config.Trajectories)
	for traj := 0; traj < config.Trajectories; traj++ {
		learner.ResetRecurrent()

		ts, err := env.Reset()
		if err != nil {
			return nil, fmt.Errorf("evaluate: could not reset: %v", err)
		}
		learner.ObserveFirst(ts)

		trace := Trace{Observations: []*mat.VecDense{ts.Observation}}
		for step := 0; step < config.MaxEpisodeLength; step++ {
			greedy := rng.Float64() <= config.GreedyRatio
			action, err := learner.SelectActionEval(ts, greedy)
			if err != nil {
				return nil, fmt.Errorf("evaluate: %v", err)
			}
			next, err := env.Step(action)
			if err != nil {
				return nil, fmt.Errorf("evaluate: could not step: %v", err)
			}
			learner.ObserveEval(action, next)

			trace.Observations = append(trace.Observations,
				next.Observation)
			trace.Actions = append(trace.Actions, action)
			trace.Rewards = append(trace.Rewards, next.Reward)
			ts = next
			if next.Last() {
				break
			}
		}

		if logger != nil {
			logger.Store("TestEpRew", trace.Return())
			logger.Store("TestEpLen", float64(len(trace.Rewards)))
		}
		traces = append(traces, trace)
	}
	return traces, nil
}
