// Package sacrnn implements soft actor-critic with a recurrent memory
// encoder for discrete action spaces. The policy is conditioned on a
// GRU embedding of the trajectory history (observation, previous
// action, previous reward), so the agent adapts within a trajectory
// without parameter updates. Critic targets use the expected soft
// value over the full categorical action distribution with clipped
// double-Q estimates, and whole episodes are the unit of replay so
// the recorded memory evolution can be fed back exactly.
package sacrnn

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/metarl/metasac/buffer/episodic"
	"github.com/metarl/metasac/environment"
	"github.com/metarl/metasac/logx"
	"github.com/metarl/metasac/network"
	"github.com/metarl/metasac/solver"
	"github.com/metarl/metasac/timestep"
)

// SAC is the recurrent soft actor-critic agent. All trainer state
// (counters, temperature, schedules) lives on this struct; there are
// no package-level globals.
//
// The freeze/unfreeze discipline of the twin critics during the
// policy step is structural: each loss lives on its own expression
// graph and differentiates only its own parameter group, while
// cross-graph quantities (bootstrap targets, q-minima) are computed
// by prediction-only copies and fed in as plain tensors. The copies
// are kept current with deep weight syncs after every optimizer step.
type SAC struct {
	config Config
	d      dims

	// policyTrain and criticTrain own the online parameters. actorFwd
	// is a batch-1 copy for rollout, memPi a batched copy for the
	// no-gradient bootstrap forward, qPred a copy of the online
	// critics for the policy loss, and targ the polyak-smoothed
	// target critics.
	actorFwd    *policyNet
	policyTrain *policyNet
	memPi       *policyNet
	criticTrain *criticNet
	qPred       *criticNet
	targ        *criticNet

	actor *actor
	temp  *temperature

	policySolver *solver.Solver
	criticSolver *solver.Solver

	buffer *episodic.Buffer
	logger *logx.Logger

	// Recurrent rollout state. pendingHidden is the memory state
	// after the last forward pass; it becomes current once the action
	// outcome is observed, so each stored transition carries the
	// exact before/after pair that produced its action.
	hidden        []float64
	pendingHidden []float64
	prevAction    int
	prevReward    float64
	lastObs       *mat.VecDense

	globalSteps    int
	stepsThisTraj  int
	trajectories   int
	trajsThisEpoch int
}

// New creates a SAC agent for env. The logger receives per-update
// diagnostics; it must not be nil.
func New(env environment.Environment, config Config,
	logger *logx.Logger) (*SAC, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if logger == nil {
		return nil, fmt.Errorf("new: no logger")
	}

	d := dims{
		obs:     env.ObservationSize(),
		actions: env.ActionSpace().N(),
		hidden:  config.HiddenSize,
	}
	init, err := config.Init.InitWFn()
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	batch := config.MaxEpisodeLength
	s := &SAC{
		config:        config,
		d:             d,
		buffer:        episodic.New(config.Seed),
		logger:        logger,
		hidden:        make([]float64, d.hidden),
		pendingHidden: make([]float64, d.hidden),
	}

	if s.policyTrain, err = newPolicyNet(d, config.PolicyHidden, batch,
		init, true); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if s.actorFwd, err = newPolicyNet(d, config.PolicyHidden, 1, init,
		false); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if s.memPi, err = newPolicyNet(d, config.PolicyHidden, batch, init,
		false); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if s.criticTrain, err = newCriticNet(d, config.CriticHidden, batch,
		init, true); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if s.qPred, err = newCriticNet(d, config.CriticHidden, batch, init,
		false); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if s.targ, err = newCriticNet(d, config.CriticHidden, batch, init,
		false); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	// Every copy starts as an exact deep clone of its online set; the
	// target critics then only ever move through polyak smoothing
	for _, sync := range []struct {
		dest, source network.NeuralNet
	}{
		{s.actorFwd.net, s.policyTrain.net},
		{s.memPi.net, s.policyTrain.net},
		{s.qPred.net, s.criticTrain.net},
		{s.targ.net, s.criticTrain.net},
	} {
		if err := network.Set(sync.dest, sync.source); err != nil {
			return nil, fmt.Errorf("new: could not clone weights: %v", err)
		}
	}

	s.actor = newActor(s.actorFwd, d.actions, config.Seed)
	if s.temp, err = newTemperature(config, d.actions); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if s.policySolver, err = solver.NewDefaultAdam(config.LRPolicy,
		config.DecayInterval, config.DecayGamma); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if s.criticSolver, err = solver.NewDefaultAdam(config.LRCritic,
		config.DecayInterval, config.DecayGamma); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	logger.Event().Info().
		Int("policyParams", network.CountVars(s.policyTrain.net)).
		Int("criticParams", network.CountVars(s.criticTrain.net)).
		Int("actions", d.actions).
		Int("hiddenSize", d.hidden).
		Msg("created recurrent SAC agent")
	return s, nil
}

// ResetRecurrent zeroes the recurrent state. Training resets it at
// epoch boundaries so the agent relearns its within-trajectory
// adaptation for every new task instance; evaluation resets it per
// trajectory.
func (s *SAC) ResetRecurrent() {
	for i := range s.hidden {
		s.hidden[i] = 0
		s.pendingHidden[i] = 0
	}
}

// ObserveFirst begins a trajectory with a fresh previous action and
// reward carry.
func (s *SAC) ObserveFirst(t timestep.TimeStep) {
	s.lastObs = t.Observation
	s.prevAction = 0
	s.prevReward = 0
	s.stepsThisTraj = 0
}

// SelectAction chooses the next training action. While the observed
// step count has not exceeded StartSteps, actions are uniformly random
// and the memory is not advanced.
func (s *SAC) SelectAction(t timestep.TimeStep) (int, error) {
	if s.globalSteps <= s.config.StartSteps {
		copy(s.pendingHidden, s.hidden)
		return s.actor.random(), nil
	}

	probs, hiddenOut, err := s.actor.step(t.Observation, s.prevAction,
		s.prevReward, s.hidden)
	if err != nil {
		return 0, fmt.Errorf("selectaction: %v", err)
	}
	s.pendingHidden = hiddenOut
	return s.actor.explore(probs), nil
}

// SelectActionEval chooses an evaluation action, greedily when greedy
// is set and by sampling the policy otherwise.
func (s *SAC) SelectActionEval(t timestep.TimeStep, greedy bool) (int,
	error) {
	probs, hiddenOut, err := s.actor.step(t.Observation, s.prevAction,
		s.prevReward, s.hidden)
	if err != nil {
		return 0, fmt.Errorf("selectactioneval: %v", err)
	}
	s.pendingHidden = hiddenOut
	if greedy {
		return s.actor.act(probs), nil
	}
	return s.actor.explore(probs), nil
}

// Observe stores the outcome of the last training action and advances
// the recurrent carry. A done flag at the maximum episode length is
// forced to false: length truncation is an artifact of the horizon,
// not a true terminal, and must not zero the bootstrap term.
func (s *SAC) Observe(action int, next timestep.TimeStep) {
	s.globalSteps++
	s.stepsThisTraj++

	done := next.Last()
	if s.stepsThisTraj >= s.config.MaxEpisodeLength {
		done = false
	}

	s.buffer.Store(episodic.Transition{
		Obs:        s.lastObs,
		NextObs:    next.Observation,
		Action:     action,
		Reward:     next.Reward,
		Done:       done,
		PrevAction: s.prevAction,
		PrevReward: s.prevReward,
		HiddenIn:   append([]float64(nil), s.hidden...),
		HiddenOut:  append([]float64(nil), s.pendingHidden...),
	})

	s.advance(action, next)
}

// ObserveEval advances the recurrent carry without storing
// experience.
func (s *SAC) ObserveEval(action int, next timestep.TimeStep) {
	s.advance(action, next)
}

func (s *SAC) advance(action int, next timestep.TimeStep) {
	copy(s.hidden, s.pendingHidden)
	s.prevAction = action
	s.prevReward = next.Reward
	s.lastObs = next.Observation
}

// EndTrajectory finalizes the current trajectory in the buffer and,
// every UpdateEvery trajectories within the epoch, runs one
// optimization cycle. The cadence is unconditional: warm-up changes
// action selection only, and warm-up trajectories are already stored,
// so scheduled updates run on them too.
func (s *SAC) EndTrajectory() error {
	s.buffer.FinishPath()
	s.trajectories++
	s.trajsThisEpoch++
	s.stepsThisTraj = 0

	if s.trajsThisEpoch%s.config.UpdateEvery != 0 {
		return nil
	}
	if err := s.Update(); err != nil {
		return fmt.Errorf("endtrajectory: %v", err)
	}
	return nil
}

// EndEpoch drops the epoch's experience, restarts the update cadence,
// and decays both learning-rate schedules by one step. Trajectories
// from a completed epoch belong to a finished task instance and are
// never reused.
func (s *SAC) EndEpoch() error {
	s.buffer.Reset()
	s.trajsThisEpoch = 0
	if err := s.policySolver.Decay(); err != nil {
		return fmt.Errorf("endepoch: %v", err)
	}
	if err := s.criticSolver.Decay(); err != nil {
		return fmt.Errorf("endepoch: %v", err)
	}
	return nil
}

// TotalSteps returns the number of environment interactions observed
// so far.
func (s *SAC) TotalSteps() int {
	return s.globalSteps
}

// Trajectories returns the number of finished trajectories.
func (s *SAC) Trajectories() int {
	return s.trajectories
}

// Alpha returns the current entropy temperature.
func (s *SAC) Alpha() float64 {
	return s.temp.Alpha()
}

// Buffer exposes the episodic buffer for inspection.
func (s *SAC) Buffer() *episodic.Buffer {
	return s.buffer
}

// Close releases the virtual machines backing the agent's expression
// graphs.
func (s *SAC) Close() error {
	var firstErr error
	vms := []io.Closer{
		s.actorFwd.vm, s.policyTrain.vm, s.memPi.vm,
		s.criticTrain.vm, s.qPred.vm, s.targ.vm,
	}
	for _, vm := range vms {
		if err := vm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
