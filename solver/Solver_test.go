package solver

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestClipGradNorm(t *testing.T) {
	g := G.NewGraph()
	w := G.NewVector(g, tensor.Float64, G.WithShape(2), G.WithName("w"),
		G.WithInit(G.ValuesOf(1.0)))
	loss := G.Must(G.Sum(w))

	if _, err := G.Grad(loss, w); err != nil {
		t.Fatalf("could not compute gradient: %v", err)
	}

	vm := G.NewTapeMachine(g, G.BindDualValues(w))
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run graph: %v", err)
	}

	// d(sum)/dw = (1, 1), norm sqrt(2) > 1, so both entries scale to
	// 1/sqrt(2)
	if err := ClipGradNorm([]G.ValueGrad{w}, 1.0); err != nil {
		t.Fatalf("could not clip gradients: %v", err)
	}

	grad, err := w.Grad()
	if err != nil {
		t.Fatalf("could not get gradient: %v", err)
	}
	want := 1.0 / math.Sqrt2
	for i, got := range grad.Data().([]float64) {
		if math.Abs(got-want) > 1e-5 {
			t.Errorf("gradient element %v: got %v, want %v", i, got, want)
		}
	}
}

func TestClipGradNormBelowLimit(t *testing.T) {
	g := G.NewGraph()
	w := G.NewVector(g, tensor.Float64, G.WithShape(2), G.WithName("w"),
		G.WithInit(G.ValuesOf(1.0)))
	loss := G.Must(G.Sum(w))

	if _, err := G.Grad(loss, w); err != nil {
		t.Fatalf("could not compute gradient: %v", err)
	}

	vm := G.NewTapeMachine(g, G.BindDualValues(w))
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run graph: %v", err)
	}

	if err := ClipGradNorm([]G.ValueGrad{w}, 10.0); err != nil {
		t.Fatalf("could not clip gradients: %v", err)
	}

	grad, err := w.Grad()
	if err != nil {
		t.Fatalf("could not get gradient: %v", err)
	}
	for i, got := range grad.Data().([]float64) {
		if got != 1.0 {
			t.Errorf("gradient element %v changed below the limit: %v", i,
				got)
		}
	}
}

func TestDecay(t *testing.T) {
	s, err := NewDefaultAdam(0.1, 2, 0.5)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}

	if err := s.Decay(); err != nil {
		t.Fatalf("could not decay: %v", err)
	}
	if got := s.CurrentStepSize(); got != 0.1 {
		t.Errorf("step size decayed before the interval: %v", got)
	}

	if err := s.Decay(); err != nil {
		t.Fatalf("could not decay: %v", err)
	}
	if got := s.CurrentStepSize(); math.Abs(got-0.05) > 1e-15 {
		t.Errorf("got step size %v, want 0.05", got)
	}
}

func TestDecayDisabled(t *testing.T) {
	s, err := NewDefaultAdam(0.1, 0, 0.5)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := s.Decay(); err != nil {
			t.Fatalf("could not decay: %v", err)
		}
	}
	if got := s.CurrentStepSize(); got != 0.1 {
		t.Errorf("step size changed with schedule disabled: %v", got)
	}
}
