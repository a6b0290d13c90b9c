package sacrnn

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/metarl/metasac/utils/floatutils"
)

// actor wraps a batch-1 policyNet for single-step action selection
// during rollout and evaluation. Each step returns both the action
// distribution and the advanced recurrent state, which the agent
// stores alongside the transition so replay never recomputes it.
type actor struct {
	net        *policyNet
	numActions int
	rng        *rand.Rand
	src        rand.Source
}

func newActor(net *policyNet, numActions int, seed uint64) *actor {
	src := rand.NewSource(seed)
	return &actor{
		net:        net,
		numActions: numActions,
		rng:        rand.New(src),
		src:        src,
	}
}

// step runs one forward pass of the memory encoder and policy head,
// returning the action probabilities and the new recurrent state.
func (a *actor) step(obs *mat.VecDense, prevAction int,
	prevReward float64, hidden []float64) ([]float64, []float64, error) {
	obsData := make([]float64, obs.Len())
	for i := range obsData {
		obsData[i] = obs.AtVec(i)
	}
	prevActData := make([]float64, a.numActions)
	prevActData[prevAction] = 1.0

	inputs := map[*G.Node]*tensor.Dense{
		a.net.obs: tensor.New(tensor.WithShape(1, obs.Len()),
			tensor.WithBacking(obsData)),
		a.net.prevAction: tensor.New(tensor.WithShape(1, a.numActions),
			tensor.WithBacking(prevActData)),
		a.net.prevReward: tensor.New(tensor.WithShape(1, 1),
			tensor.WithBacking([]float64{prevReward})),
		a.net.hidden: tensor.New(tensor.WithShape(1, len(hidden)),
			tensor.WithBacking(append([]float64(nil), hidden...))),
	}
	for node, value := range inputs {
		if err := G.Let(node, value); err != nil {
			return nil, nil, fmt.Errorf("step: could not set %v: %v",
				node.Name(), err)
		}
	}

	if err := a.net.vm.RunAll(); err != nil {
		return nil, nil, fmt.Errorf("step: could not run policy: %v", err)
	}
	defer a.net.vm.Reset()

	outputs := a.net.net.Output()
	probs := append([]float64(nil),
		outputs[0].(*tensor.Dense).Data().([]float64)...)
	hiddenOut := append([]float64(nil),
		outputs[2].(*tensor.Dense).Data().([]float64)...)
	return probs, hiddenOut, nil
}

// act returns the greedy action, breaking ties uniformly at random.
func (a *actor) act(probs []float64) int {
	_, argmax := floatutils.Max(probs)
	return argmax[a.rng.Intn(len(argmax))]
}

// explore returns an action sampled from the policy distribution.
func (a *actor) explore(probs []float64) int {
	dist := distuv.NewCategorical(probs, a.src)
	return int(dist.Rand())
}

// random returns an action drawn uniformly at random, for warm-up
// exploration.
func (a *actor) random() int {
	return a.rng.Intn(a.numActions)
}
