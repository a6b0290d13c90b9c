package sacrnn

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/metarl/metasac/solver"
)

// temperature controls the entropy-exploration coefficient alpha. In
// fixed mode alpha is a constant and Step is a no-op reporting zero
// loss. In learned mode alpha = exp(logAlpha) for an unconstrained
// learnable scalar logAlpha, optimized so that the realized policy
// entropy is driven toward targetEntropy:
//
//	loss = -logAlpha * (E[logp] + targetEntropy)
//
// When entropy falls below the target the term is positive and the
// gradient step raises logAlpha, increasing the entropy bonus; when
// entropy exceeds the target alpha shrinks.
type temperature struct {
	learn         bool
	alpha         float64
	targetEntropy float64

	g        *G.ExprGraph
	logAlpha *G.Node
	term     *G.Node
	loss     *G.Node
	lossVal  G.Value
	vm       G.VM
	adam     *solver.Solver
}

// newTemperature creates the controller. The target entropy is
// TargetEntropyMult times log(numActions), the entropy of the uniform
// policy over the action space.
func newTemperature(config Config, numActions int) (*temperature, error) {
	t := &temperature{
		learn:         config.LearnAlpha,
		alpha:         config.Alpha,
		targetEntropy: config.TargetEntropyMult * math.Log(float64(numActions)),
	}
	if !t.learn {
		return t, nil
	}

	g := G.NewGraph()
	t.g = g
	t.logAlpha = G.NewScalar(g, tensor.Float64, G.WithName("logAlpha"),
		G.WithValue(math.Log(config.Alpha)))
	t.term = G.NewScalar(g, tensor.Float64, G.WithName("term"))
	t.loss = G.Must(G.Neg(G.Must(G.Mul(t.logAlpha, t.term))))
	G.Read(t.loss, &t.lossVal)

	if _, err := G.Grad(t.loss, t.logAlpha); err != nil {
		return nil, fmt.Errorf("newtemperature: could not differentiate "+
			"loss: %v", err)
	}
	t.vm = G.NewTapeMachine(g, G.BindDualValues(t.logAlpha))

	adam, err := solver.NewDefaultAdam(config.LRAlpha, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("newtemperature: %v", err)
	}
	t.adam = adam
	return t, nil
}

// Alpha returns the current temperature.
func (t *temperature) Alpha() float64 {
	return t.alpha
}

// Step performs one gradient step on logAlpha given the mean realized
// log probability of the policy, returning the new alpha and the
// temperature loss. With learning disabled it returns the fixed alpha
// and a zero loss.
func (t *temperature) Step(meanLogProb float64) (float64, float64, error) {
	if !t.learn {
		return t.alpha, 0, nil
	}

	if err := G.Let(t.term, meanLogProb+t.targetEntropy); err != nil {
		return 0, 0, fmt.Errorf("step: could not set entropy term: %v", err)
	}
	if err := t.vm.RunAll(); err != nil {
		return 0, 0, fmt.Errorf("step: could not run temperature loss: %v",
			err)
	}
	loss := t.lossVal.Data().(float64)

	if err := t.adam.Step([]G.ValueGrad{t.logAlpha}); err != nil {
		return 0, 0, fmt.Errorf("step: could not adapt logAlpha: %v", err)
	}
	t.vm.Reset()

	t.alpha = math.Exp(t.logAlpha.Value().Data().(float64))
	return t.alpha, loss, nil
}

// LogAlpha returns the unconstrained temperature parameter, or
// log(alpha) in fixed mode.
func (t *temperature) LogAlpha() float64 {
	if !t.learn {
		return math.Log(t.alpha)
	}
	return t.logAlpha.Value().Data().(float64)
}

// SetLogAlpha restores the temperature parameter from a checkpoint.
func (t *temperature) SetLogAlpha(logAlpha float64) error {
	t.alpha = math.Exp(logAlpha)
	if !t.learn {
		return nil
	}
	return G.Let(t.logAlpha, logAlpha)
}
