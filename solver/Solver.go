// Package solver provides JSON-serializable wrappers around Gorgonia
// solvers, extended with a step-decay learning-rate schedule and
// global gradient-norm clipping.
package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Type of solver
type Type string

const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
)

// Solver wraps a Gorgonia solver in a serializable description. The
// zero values of DecayInterval and DecayGamma disable the schedule.
//
// Gorgonia solvers expose no way to change the step size after
// construction, so a decay step rebuilds the underlying solver with
// the smaller step size. For Adam this also resets the moment
// estimates, which is acceptable at epoch boundaries.
type Solver struct {
	Type     Type    `json:"type" yaml:"type"`
	StepSize float64 `json:"stepSize" yaml:"stepSize"`
	Beta1    float64 `json:"beta1" yaml:"beta1"`
	Beta2    float64 `json:"beta2" yaml:"beta2"`
	Eps      float64 `json:"eps" yaml:"eps"`

	// Every DecayInterval calls to Decay, the step size is multiplied
	// by DecayGamma
	DecayInterval int     `json:"decayInterval" yaml:"decayInterval"`
	DecayGamma    float64 `json:"decayGamma" yaml:"decayGamma"`

	current float64
	decays  int
	solver  G.Solver
}

// NewAdam returns a new Adam solver.
func NewAdam(stepSize, beta1, beta2, eps float64, decayInterval int,
	decayGamma float64) (*Solver, error) {
	if stepSize <= 0 {
		return nil, fmt.Errorf("newadam: invalid step size %v", stepSize)
	}
	return &Solver{
		Type:          Adam,
		StepSize:      stepSize,
		Beta1:         beta1,
		Beta2:         beta2,
		Eps:           eps,
		DecayInterval: decayInterval,
		DecayGamma:    decayGamma,
	}, nil
}

// NewDefaultAdam returns an Adam solver with the default moment
// hyperparameters.
func NewDefaultAdam(stepSize float64, decayInterval int,
	decayGamma float64) (*Solver, error) {
	return NewAdam(stepSize, 0.9, 0.999, 1e-8, decayInterval, decayGamma)
}

// NewVanilla returns a new vanilla gradient descent solver.
func NewVanilla(stepSize float64, decayInterval int,
	decayGamma float64) (*Solver, error) {
	if stepSize <= 0 {
		return nil, fmt.Errorf("newvanilla: invalid step size %v", stepSize)
	}
	return &Solver{
		Type:          Vanilla,
		StepSize:      stepSize,
		DecayInterval: decayInterval,
		DecayGamma:    decayGamma,
	}, nil
}

func (s *Solver) build() error {
	if s.current == 0 {
		s.current = s.StepSize
	}
	switch s.Type {
	case Adam:
		s.solver = G.NewAdamSolver(
			G.WithLearnRate(s.current),
			G.WithBeta1(s.Beta1),
			G.WithBeta2(s.Beta2),
			G.WithEps(s.Eps),
		)
	case Vanilla:
		s.solver = G.NewVanillaSolver(G.WithLearnRate(s.current))
	default:
		return fmt.Errorf("build: unknown solver type %v", s.Type)
	}
	return nil
}

// Step updates the weights in model using their recorded gradients.
func (s *Solver) Step(model []G.ValueGrad) error {
	if s.solver == nil {
		if err := s.build(); err != nil {
			return fmt.Errorf("step: %v", err)
		}
	}
	return s.solver.Step(model)
}

// Decay advances the learning-rate schedule by one step. Every
// DecayInterval calls the step size is multiplied by DecayGamma.
func (s *Solver) Decay() error {
	if s.DecayInterval <= 0 {
		return nil
	}
	s.decays++
	if s.decays%s.DecayInterval != 0 {
		return nil
	}
	if s.current == 0 {
		s.current = s.StepSize
	}
	s.current *= s.DecayGamma
	return s.build()
}

// CurrentStepSize returns the step size after any decays so far.
func (s *Solver) CurrentStepSize() float64 {
	if s.current == 0 {
		return s.StepSize
	}
	return s.current
}

// ClipGradNorm rescales the gradients of model in place so that their
// global L2 norm does not exceed maxNorm. Gradients below the limit
// are left untouched.
func ClipGradNorm(model []G.ValueGrad, maxNorm float64) error {
	if maxNorm <= 0 {
		return fmt.Errorf("clipgradnorm: invalid max norm %v", maxNorm)
	}

	totalSq := 0.0
	grads := make([]*tensor.Dense, len(model))
	for i, vg := range model {
		grad, err := vg.Grad()
		if err != nil {
			return fmt.Errorf("clipgradnorm: could not get gradient %v: %v",
				i, err)
		}
		dense, ok := grad.(*tensor.Dense)
		if !ok {
			return fmt.Errorf("clipgradnorm: gradient %v is not a dense "+
				"tensor", i)
		}
		grads[i] = dense
		data := dense.Data().([]float64)
		totalSq += floats.Dot(data, data)
	}

	norm := math.Sqrt(totalSq)
	if norm <= maxNorm {
		return nil
	}

	scale := maxNorm / (norm + 1e-6)
	for i, grad := range grads {
		if _, err := grad.MulScalar(scale, true, tensor.UseUnsafe()); err != nil {
			return fmt.Errorf("clipgradnorm: could not scale gradient %v: %v",
				i, err)
		}
	}
	return nil
}
