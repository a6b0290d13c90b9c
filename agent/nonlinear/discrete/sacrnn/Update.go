package sacrnn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/metarl/metasac/buffer/episodic"
	"github.com/metarl/metasac/network"
	"github.com/metarl/metasac/solver"
)

// batchArrays holds one sampled episode padded to the fixed graph
// batch size. Padding rows carry all-zero one-hot actions, a zero
// mask, and a zero backup, so they contribute exactly zero to both
// losses.
type batchArrays struct {
	n    int
	invN float64

	obs        *tensor.Dense
	nextObs    *tensor.Dense
	action     *tensor.Dense
	prevAction *tensor.Dense
	prevReward *tensor.Dense
	rewardCol  *tensor.Dense
	hiddenIn   *tensor.Dense
	hiddenOut  *tensor.Dense
	mask       *tensor.Dense

	rewards []float64
	dones   []float64
}

func (s *SAC) assemble(episode *episodic.Episode) (*batchArrays, error) {
	batch := s.config.MaxEpisodeLength
	n := episode.Len()
	if n > batch {
		return nil, fmt.Errorf("assemble: episode length %v exceeds "+
			"maximum %v", n, batch)
	}
	numObs, numActions, hidden := s.d.obs, s.d.actions, s.d.hidden

	obs := make([]float64, batch*numObs)
	nextObs := make([]float64, batch*numObs)
	action := make([]float64, batch*numActions)
	prevAction := make([]float64, batch*numActions)
	prevReward := make([]float64, batch)
	rewardCol := make([]float64, batch)
	hiddenIn := make([]float64, batch*hidden)
	hiddenOut := make([]float64, batch*hidden)
	mask := make([]float64, batch)
	rewards := make([]float64, batch)
	dones := make([]float64, batch)

	for i, tr := range episode.Transitions {
		if tr.Action < 0 || tr.Action >= numActions || tr.PrevAction < 0 ||
			tr.PrevAction >= numActions {
			return nil, fmt.Errorf("assemble: transition %v holds an "+
				"invalid action", i)
		}
		if len(tr.HiddenIn) != hidden || len(tr.HiddenOut) != hidden {
			return nil, fmt.Errorf("assemble: transition %v holds a "+
				"recurrent state of size %v, want %v", i, len(tr.HiddenIn),
				hidden)
		}
		for j := 0; j < numObs; j++ {
			obs[i*numObs+j] = tr.Obs.AtVec(j)
			nextObs[i*numObs+j] = tr.NextObs.AtVec(j)
		}
		action[i*numActions+tr.Action] = 1
		prevAction[i*numActions+tr.PrevAction] = 1
		prevReward[i] = tr.PrevReward
		rewardCol[i] = tr.Reward
		copy(hiddenIn[i*hidden:(i+1)*hidden], tr.HiddenIn)
		copy(hiddenOut[i*hidden:(i+1)*hidden], tr.HiddenOut)
		mask[i] = 1
		rewards[i] = tr.Reward
		if tr.Done {
			dones[i] = 1
		}
	}

	matrix := func(backing []float64, cols int) *tensor.Dense {
		return tensor.New(tensor.WithShape(batch, cols),
			tensor.WithBacking(backing))
	}
	return &batchArrays{
		n:          n,
		invN:       1.0 / float64(n),
		obs:        matrix(obs, numObs),
		nextObs:    matrix(nextObs, numObs),
		action:     matrix(action, numActions),
		prevAction: matrix(prevAction, numActions),
		prevReward: matrix(prevReward, 1),
		rewardCol:  matrix(rewardCol, 1),
		hiddenIn:   matrix(hiddenIn, hidden),
		hiddenOut:  matrix(hiddenOut, hidden),
		mask: tensor.New(tensor.WithShape(batch),
			tensor.WithBacking(mask)),
		rewards: rewards,
		dones:   dones,
	}, nil
}

// Update runs exactly one optimization cycle: sample a batch of whole
// episodes, take one critic step, one policy step, and one
// temperature step per episode, then smooth the target critics once.
func (s *SAC) Update() error {
	episodes, err := s.buffer.Get(s.config.BatchSize, s.config.PExploration)
	if err != nil {
		return fmt.Errorf("update: %v", err)
	}

	for _, episode := range episodes {
		if err := s.updateEpisode(episode); err != nil {
			return fmt.Errorf("update: %v", err)
		}
	}

	// One smoothing pass per cycle, not per episode
	if err := network.Polyak(s.targ.net, s.criticTrain.net,
		1-s.config.Polyak); err != nil {
		return fmt.Errorf("update: could not smooth target critics: %v",
			err)
	}
	return nil
}

func (s *SAC) updateEpisode(episode *episodic.Episode) error {
	b, err := s.assemble(episode)
	if err != nil {
		return err
	}
	alpha := s.temp.Alpha()

	backup, err := s.computeBackup(b, alpha)
	if err != nil {
		return err
	}

	lossQ, q1Mean, q2Mean, err := s.criticStep(b, backup)
	if err != nil {
		return err
	}

	lossPi, entLogProb, rawLogProb, err := s.policyStep(b, alpha)
	if err != nil {
		return err
	}

	newAlpha, lossAlpha, err := s.temp.Step(rawLogProb)
	if err != nil {
		return err
	}

	s.logger.Store("LossQ", lossQ)
	s.logger.Store("LossPi", lossPi)
	s.logger.Store("Q1Vals", q1Mean)
	s.logger.Store("Q2Vals", q2Mean)
	s.logger.Store("LogPi", rawLogProb)
	s.logger.Store("Entropy", -entLogProb)
	s.logger.Store("Alpha", newAlpha)
	s.logger.Store("LossAlpha", lossAlpha)
	return nil
}

// computeBackup runs the no-gradient bootstrap forwards and combines
// them into the soft Q-learning target. The online memory and policy
// are evaluated at the next observation using the recorded post-step
// recurrent state, producing the full categorical distribution rather
// than a sampled action.
func (s *SAC) computeBackup(b *batchArrays, alpha float64) (
	*tensor.Dense, error) {
	if err := letAll(map[*G.Node]*tensor.Dense{
		s.memPi.obs:        b.nextObs,
		s.memPi.prevAction: b.action,
		s.memPi.prevReward: b.rewardCol,
		s.memPi.hidden:     b.hiddenOut,
	}); err != nil {
		return nil, fmt.Errorf("computebackup: %v", err)
	}
	if err := s.memPi.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("computebackup: could not run bootstrap "+
			"policy: %v", err)
	}
	outputs := s.memPi.net.Output()
	pi2 := copyData(outputs[0])
	logp2 := copyData(outputs[1])
	s.memPi.vm.Reset()

	if err := letAll(map[*G.Node]*tensor.Dense{
		s.targ.obs: b.nextObs,
	}); err != nil {
		return nil, fmt.Errorf("computebackup: %v", err)
	}
	if err := s.targ.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("computebackup: could not run target "+
			"critics: %v", err)
	}
	outputs = s.targ.net.Output()
	q1Targ := copyData(outputs[0])
	q2Targ := copyData(outputs[1])
	s.targ.vm.Reset()

	backup, err := bootstrapTargets(b.rewards, b.dones, pi2, logp2, q1Targ,
		q2Targ, b.n, s.d.actions, alpha, s.config.Gamma)
	if err != nil {
		return nil, fmt.Errorf("computebackup: %v", err)
	}
	return tensor.New(tensor.WithShape(s.config.MaxEpisodeLength),
		tensor.WithBacking(backup)), nil
}

// criticStep takes one gradient step on the twin critic loss and
// resyncs the prediction copy of the online critics.
func (s *SAC) criticStep(b *batchArrays, backup *tensor.Dense) (lossQ,
	q1Mean, q2Mean float64, err error) {
	if err := letAll(map[*G.Node]*tensor.Dense{
		s.criticTrain.obs:    b.obs,
		s.criticTrain.action: b.action,
		s.criticTrain.backup: backup,
	}); err != nil {
		return 0, 0, 0, fmt.Errorf("criticstep: %v", err)
	}
	if err := G.Let(s.criticTrain.invN, b.invN); err != nil {
		return 0, 0, 0, fmt.Errorf("criticstep: could not set invN: %v", err)
	}

	if err := s.criticTrain.vm.RunAll(); err != nil {
		return 0, 0, 0, fmt.Errorf("criticstep: could not run critic "+
			"loss: %v", err)
	}
	lossQ = s.criticTrain.lossVal.Data().(float64)
	outputs := s.criticTrain.net.Output()
	q1Mean = meanOf(copyData(outputs[0]), b.n*s.d.actions)
	q2Mean = meanOf(copyData(outputs[1]), b.n*s.d.actions)

	model := s.criticTrain.net.Model()
	if s.config.GradClip > 0 {
		if err := solver.ClipGradNorm(model, s.config.GradClip); err != nil {
			return 0, 0, 0, fmt.Errorf("criticstep: %v", err)
		}
	}
	if err := s.criticSolver.Step(model); err != nil {
		return 0, 0, 0, fmt.Errorf("criticstep: could not adapt "+
			"critics: %v", err)
	}
	s.criticTrain.vm.Reset()

	if err := network.Set(s.qPred.net, s.criticTrain.net); err != nil {
		return 0, 0, 0, fmt.Errorf("criticstep: could not sync online "+
			"critics: %v", err)
	}
	return lossQ, q1Mean, q2Mean, nil
}

// policyStep takes one gradient step on the entropy-regularized
// policy loss. The q-minimum of the freshly updated online critics is
// computed by the prediction copy and fed in as a plain tensor, so no
// critic parameter participates in the backward pass. It returns the
// pi-weighted expected log probability for the Entropy diagnostic and
// the unweighted mean log probability that drives the temperature.
func (s *SAC) policyStep(b *batchArrays, alpha float64) (lossPi,
	entLogProb, rawLogProb float64, err error) {
	if err := letAll(map[*G.Node]*tensor.Dense{
		s.qPred.obs: b.obs,
	}); err != nil {
		return 0, 0, 0, fmt.Errorf("policystep: %v", err)
	}
	if err := s.qPred.vm.RunAll(); err != nil {
		return 0, 0, 0, fmt.Errorf("policystep: could not run online "+
			"critics: %v", err)
	}
	outputs := s.qPred.net.Output()
	qMin := minQ(copyData(outputs[0]), copyData(outputs[1]))
	s.qPred.vm.Reset()

	if err := letAll(map[*G.Node]*tensor.Dense{
		s.policyTrain.obs:        b.obs,
		s.policyTrain.prevAction: b.prevAction,
		s.policyTrain.prevReward: b.prevReward,
		s.policyTrain.hidden:     b.hiddenIn,
		s.policyTrain.mask:       b.mask,
		s.policyTrain.qMin: tensor.New(
			tensor.WithShape(s.config.MaxEpisodeLength, s.d.actions),
			tensor.WithBacking(qMin)),
	}); err != nil {
		return 0, 0, 0, fmt.Errorf("policystep: %v", err)
	}
	if err := G.Let(s.policyTrain.alpha, alpha); err != nil {
		return 0, 0, 0, fmt.Errorf("policystep: could not set alpha: %v", err)
	}
	if err := G.Let(s.policyTrain.invN, b.invN); err != nil {
		return 0, 0, 0, fmt.Errorf("policystep: could not set invN: %v", err)
	}

	if err := s.policyTrain.vm.RunAll(); err != nil {
		return 0, 0, 0, fmt.Errorf("policystep: could not run policy "+
			"loss: %v", err)
	}
	lossPi = s.policyTrain.lossVal.Data().(float64)
	outputs = s.policyTrain.net.Output()
	probs := copyData(outputs[0])
	logp := copyData(outputs[1])

	model := s.policyTrain.net.Model()
	if s.config.GradClip > 0 {
		if err := solver.ClipGradNorm(model, s.config.GradClip); err != nil {
			return 0, 0, 0, fmt.Errorf("policystep: %v", err)
		}
	}
	if err := s.policySolver.Step(model); err != nil {
		return 0, 0, 0, fmt.Errorf("policystep: could not adapt policy: %v",
			err)
	}
	s.policyTrain.vm.Reset()

	for _, dest := range []network.NeuralNet{s.actorFwd.net, s.memPi.net} {
		if err := network.Set(dest, s.policyTrain.net); err != nil {
			return 0, 0, 0, fmt.Errorf("policystep: could not sync policy "+
				"copies: %v", err)
		}
	}

	entLogProb = expectedLogProb(probs, logp, b.n, s.d.actions)
	rawLogProb = meanLogProb(logp, b.n, s.d.actions)
	return lossPi, entLogProb, rawLogProb, nil
}

func letAll(inputs map[*G.Node]*tensor.Dense) error {
	for node, value := range inputs {
		if err := G.Let(node, value); err != nil {
			return fmt.Errorf("could not set %v: %v", node.Name(), err)
		}
	}
	return nil
}

func copyData(v G.Value) []float64 {
	return append([]float64(nil), v.(*tensor.Dense).Data().([]float64)...)
}
