package sacrnn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/metarl/metasac/network"
)

// dims bundles the sizes every expression graph of the agent needs.
type dims struct {
	obs     int
	actions int
	hidden  int
}

// features returns the width of the memory encoder input, the
// concatenation of observation, one-hot previous action, and previous
// reward.
func (d dims) features() int {
	return d.obs + d.actions + 1
}

// policyNet is one expression graph holding the memory encoder and
// the categorical policy head. A trainable policyNet additionally
// holds the policy loss and differentiates only its own learnables,
// so critic parameters never participate in a policy backward pass.
// Prediction-only copies serve action selection (batch 1) and the
// no-gradient bootstrap forward of the critic target.
type policyNet struct {
	g     *G.ExprGraph
	batch int

	// Forward inputs
	obs        *G.Node
	prevAction *G.Node
	prevReward *G.Node
	hidden     *G.Node

	// Loss inputs, nil unless trainable. mask zeroes the loss rows of
	// padding transitions and invN rescales the masked sum to a mean
	// over the real ones.
	qMin  *G.Node
	alpha *G.Node
	mask  *G.Node
	invN  *G.Node

	// Predictions: probs, logp, hiddenOut
	net *network.Composite

	loss    *G.Node
	lossVal G.Value
	vm      G.VM
}

func newPolicyNet(d dims, policyHidden []int, batch int, init G.InitWFn,
	train bool) (*policyNet, error) {
	g := G.NewGraph()
	p := &policyNet{g: g, batch: batch}

	p.obs = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, d.obs),
		G.WithName("obs"))
	p.prevAction = G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, d.actions), G.WithName("prevAction"))
	p.prevReward = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, 1),
		G.WithName("prevReward"))
	p.hidden = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, d.hidden),
		G.WithName("hidden"))

	memory, err := network.NewGRU(g, d.features(), d.hidden, init, "memory")
	if err != nil {
		return nil, fmt.Errorf("newpolicynet: could not create memory "+
			"encoder: %v", err)
	}
	head, err := network.NewMultiHeadMLP(g, d.hidden, d.actions,
		policyHidden, trueBools(len(policyHidden)),
		reLUs(len(policyHidden)), init, "policy")
	if err != nil {
		return nil, fmt.Errorf("newpolicynet: could not create policy "+
			"head: %v", err)
	}

	x, err := G.Concat(1, p.obs, p.prevAction, p.prevReward)
	if err != nil {
		return nil, fmt.Errorf("newpolicynet: could not concatenate "+
			"encoder input: %v", err)
	}
	hiddenOut, err := memory.Fwd(x, p.hidden)
	if err != nil {
		return nil, fmt.Errorf("newpolicynet: %v", err)
	}
	logits, err := head.Fwd(hiddenOut)
	if err != nil {
		return nil, fmt.Errorf("newpolicynet: %v", err)
	}
	logp, err := logSoftmax(logits)
	if err != nil {
		return nil, fmt.Errorf("newpolicynet: could not compute log "+
			"probabilities: %v", err)
	}
	probs, err := G.Exp(logp)
	if err != nil {
		return nil, fmt.Errorf("newpolicynet: could not compute "+
			"probabilities: %v", err)
	}

	learnables := append(memory.Learnables(), head.Learnables()...)
	p.net = network.NewComposite(g, batch, learnables, probs, logp,
		hiddenOut)

	if !train {
		p.vm = G.NewTapeMachine(g)
		return p, nil
	}

	p.qMin = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, d.actions),
		G.WithName("qMin"))
	p.alpha = G.NewScalar(g, tensor.Float64, G.WithName("alpha"))
	p.mask = G.NewVector(g, tensor.Float64, G.WithShape(batch),
		G.WithName("mask"))
	p.invN = G.NewScalar(g, tensor.Float64, G.WithName("invN"))

	// Per row: -E_pi[qMin] - alpha * entropy, with
	// entropy = -Σ_a pi(a) logp(a)
	expectedQ := G.Must(G.Sum(G.Must(G.HadamardProd(probs, p.qMin)), 1))
	expectedLogP := G.Must(G.Sum(G.Must(G.HadamardProd(probs, logp)), 1))
	rowLoss := G.Must(G.Add(
		G.Must(G.Neg(expectedQ)),
		G.Must(G.Mul(p.alpha, expectedLogP)),
	))
	masked := G.Must(G.HadamardProd(p.mask, rowLoss))
	p.loss = G.Must(G.Mul(G.Must(G.Sum(masked)), p.invN))
	G.Read(p.loss, &p.lossVal)

	if _, err := G.Grad(p.loss, learnables...); err != nil {
		return nil, fmt.Errorf("newpolicynet: could not differentiate "+
			"loss: %v", err)
	}
	p.vm = G.NewTapeMachine(g, G.BindDualValues(learnables...))
	return p, nil
}

// criticNet is one expression graph holding the twin action-value
// networks. A trainable criticNet holds the summed twin MSE loss
// against an externally computed backup; prediction-only copies serve
// the target network and the no-gradient q-minimum of the policy
// loss.
type criticNet struct {
	g     *G.ExprGraph
	batch int

	obs *G.Node

	// Loss inputs, nil unless trainable. Padding rows carry an
	// all-zero one-hot action and a zero backup, which makes their
	// squared error exactly zero.
	action *G.Node
	backup *G.Node
	invN   *G.Node

	// Predictions: q1, q2
	net *network.Composite

	loss    *G.Node
	lossVal G.Value
	vm      G.VM
}

func newCriticNet(d dims, criticHidden []int, batch int, init G.InitWFn,
	train bool) (*criticNet, error) {
	g := G.NewGraph()
	c := &criticNet{g: g, batch: batch}

	c.obs = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, d.obs),
		G.WithName("obs"))

	q1Net, err := network.NewMultiHeadMLP(g, d.obs, d.actions, criticHidden,
		trueBools(len(criticHidden)), reLUs(len(criticHidden)), init, "q1")
	if err != nil {
		return nil, fmt.Errorf("newcriticnet: could not create first "+
			"critic: %v", err)
	}
	q2Net, err := network.NewMultiHeadMLP(g, d.obs, d.actions, criticHidden,
		trueBools(len(criticHidden)), reLUs(len(criticHidden)), init, "q2")
	if err != nil {
		return nil, fmt.Errorf("newcriticnet: could not create second "+
			"critic: %v", err)
	}

	q1, err := q1Net.Fwd(c.obs)
	if err != nil {
		return nil, fmt.Errorf("newcriticnet: %v", err)
	}
	q2, err := q2Net.Fwd(c.obs)
	if err != nil {
		return nil, fmt.Errorf("newcriticnet: %v", err)
	}

	learnables := append(q1Net.Learnables(), q2Net.Learnables()...)
	c.net = network.NewComposite(g, batch, learnables, q1, q2)

	if !train {
		c.vm = G.NewTapeMachine(g)
		return c, nil
	}

	c.action = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, d.actions),
		G.WithName("action"))
	c.backup = G.NewVector(g, tensor.Float64, G.WithShape(batch),
		G.WithName("backup"))
	c.invN = G.NewScalar(g, tensor.Float64, G.WithName("invN"))

	mse := func(q *G.Node) *G.Node {
		selected := G.Must(G.Sum(G.Must(G.HadamardProd(q, c.action)), 1))
		diff := G.Must(G.Sub(selected, c.backup))
		return G.Must(G.Mul(G.Must(G.Sum(G.Must(G.Square(diff)))), c.invN))
	}
	c.loss = G.Must(G.Add(mse(q1), mse(q2)))
	G.Read(c.loss, &c.lossVal)

	if _, err := G.Grad(c.loss, learnables...); err != nil {
		return nil, fmt.Errorf("newcriticnet: could not differentiate "+
			"loss: %v", err)
	}
	c.vm = G.NewTapeMachine(g, G.BindDualValues(learnables...))
	return c, nil
}

// logSoftmax computes row-wise log probabilities from logits using a
// max-shifted log-sum-exp for numerical stability.
func logSoftmax(logits *G.Node) (*G.Node, error) {
	max, err := G.Max(logits, 1)
	if err != nil {
		return nil, err
	}
	shifted, err := G.BroadcastSub(logits, max, nil, []byte{1})
	if err != nil {
		return nil, err
	}
	exp, err := G.Exp(shifted)
	if err != nil {
		return nil, err
	}
	sum, err := G.Sum(exp, 1)
	if err != nil {
		return nil, err
	}
	logSum, err := G.Log(sum)
	if err != nil {
		return nil, err
	}
	lse, err := G.Add(max, logSum)
	if err != nil {
		return nil, err
	}
	return G.BroadcastSub(logits, lse, nil, []byte{1})
}

func trueBools(n int) []bool {
	b := make([]bool, n)
	for i := range b {
		b[i] = true
	}
	return b
}

func reLUs(n int) []*network.Activation {
	acts := make([]*network.Activation, n)
	for i := range acts {
		acts[i] = network.ReLU()
	}
	return acts
}
