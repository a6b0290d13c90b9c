// Package experiment drives training and evaluation of meta-RL
// agents: the epoch, trajectory, step nesting of training, and the
// mixed greedy/stochastic evaluation loop.
package experiment

import (
	"fmt"
	"time"

	"github.com/metarl/metasac/agent"
	"github.com/metarl/metasac/environment"
	"github.com/metarl/metasac/experiment/checkpointer"
	"github.com/metarl/metasac/experiment/tracker"
	"github.com/metarl/metasac/logx"
)

// MetaTrialConfig describes the outer training loop.
type MetaTrialConfig struct {
	Epochs               int `json:"epochs" yaml:"epochs"`
	TrajectoriesPerEpoch int `json:"trajectoriesPerEpoch" yaml:"trajectoriesPerEpoch"`
	MaxEpisodeLength     int `json:"maxEpisodeLength" yaml:"maxEpisodeLength"`
}

// Validate returns an error describing the first invalid field.
func (c MetaTrialConfig) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("validate: invalid number of epochs %v", c.Epochs)
	}
	if c.TrajectoriesPerEpoch <= 0 {
		return fmt.Errorf("validate: invalid trajectories per epoch %v",
			c.TrajectoriesPerEpoch)
	}
	if c.MaxEpisodeLength <= 0 {
		return fmt.Errorf("validate: invalid max episode length %v",
			c.MaxEpisodeLength)
	}
	return nil
}

// MetaTrial trains a MetaLearner over epochs of trajectories. Each
// epoch is one task instance: the environment's task is resampled and
// the agent's recurrent state zeroed at the epoch boundary, so the
// agent must adapt within each trajectory from its own history.
type MetaTrial struct {
	env     environment.Environment
	learner agent.MetaLearner
	config  MetaTrialConfig
	logger  *logx.Logger

	returnTrackers []tracker.Tracker
	lengthTrackers []tracker.Tracker
	ckpt           *checkpointer.NTrajectory

	totalSteps int
	start      time.Time
}

// NewMetaTrial creates a training loop. Trackers and the checkpointer
// may be nil or empty.
func NewMetaTrial(env environment.Environment, learner agent.MetaLearner,
	config MetaTrialConfig, logger *logx.Logger,
	returnTrackers, lengthTrackers []tracker.Tracker,
	ckpt *checkpointer.NTrajectory) (*MetaTrial, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("newmetatrial: %v", err)
	}
	if logger == nil {
		return nil, fmt.Errorf("newmetatrial: no logger")
	}
	return &MetaTrial{
		env:            env,
		learner:        learner,
		config:         config,
		logger:         logger,
		returnTrackers: returnTrackers,
		lengthTrackers: lengthTrackers,
		ckpt:           ckpt,
	}, nil
}

// Run trains for the configured number of epochs, then saves every
// tracker.
func (m *MetaTrial) Run() error {
	m.start = time.Now()
	for epoch := 0; epoch < m.config.Epochs; epoch++ {
		if err := m.runEpoch(epoch); err != nil {
			return fmt.Errorf("run: epoch %v: %v", epoch, err)
		}
	}

	for _, t := range append(m.returnTrackers, m.lengthTrackers...) {
		if err := t.Save(); err != nil {
			return fmt.Errorf("run: could not save tracker: %v", err)
		}
	}
	return nil
}

func (m *MetaTrial) runEpoch(epoch int) error {
	if resampler, ok := m.env.(environment.TaskResampler); ok {
		resampler.NewTask()
	}
	m.learner.ResetRecurrent()

	for traj := 0; traj < m.config.TrajectoriesPerEpoch; traj++ {
		epRew, epLen, err := m.runTrajectory()
		if err != nil {
			return fmt.Errorf("trajectory %v: %v", traj, err)
		}

		m.logger.Store("EpRew", epRew)
		m.logger.Store("EpLen", float64(epLen))
		for _, t := range m.returnTrackers {
			t.Track(float64(m.totalSteps), epRew)
		}
		for _, t := range m.lengthTrackers {
			t.Track(float64(m.totalSteps), float64(epLen))
		}
		if m.ckpt != nil {
			if err := m.ckpt.EndTrajectory(); err != nil {
				return fmt.Errorf("trajectory %v: %v", traj, err)
			}
		}
	}

	if err := m.learner.EndEpoch(); err != nil {
		return err
	}

	m.logger.LogTabular("Trial", float64(epoch))
	m.logger.LogTabular("TotalEnvInteracts", float64(m.totalSteps))
	m.logger.LogTabular("Time", time.Since(m.start).Seconds())
	m.logger.DumpTabular()
	return nil
}

func (m *MetaTrial) runTrajectory() (float64, int, error) {
	ts, err := m.env.Reset()
	if err != nil {
		return 0, 0, fmt.Errorf("could not reset environment: %v", err)
	}
	m.learner.ObserveFirst(ts)

	epRew := 0.0
	epLen := 0
	for step := 0; step < m.config.MaxEpisodeLength; step++ {
		action, err := m.learner.SelectAction(ts)
		if err != nil {
			return 0, 0, err
		}
		next, err := m.env.Step(action)
		if err != nil {
			return 0, 0, fmt.Errorf("could not step environment: %v", err)
		}
		m.learner.Observe(action, next)

		epRew += next.Reward
		epLen++
		m.totalSteps++
		ts = next
		if next.Last() {
			break
		}
	}

	return epRew, epLen, m.learner.EndTrajectory()
}

// TotalSteps returns the number of environment interactions so far.
func (m *MetaTrial) TotalSteps() int {
	return m.totalSteps
}
