package network

import (
	"bytes"
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// buildNet creates a small two-layer network wrapped in a Composite
// for testing the NeuralNet helpers.
func buildNet(t *testing.T, init G.InitWFn) NeuralNet {
	t.Helper()

	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(2, 3),
		G.WithName("input"))

	mlp, err := NewMultiHeadMLP(g, 3, 2, []int{4}, []bool{true},
		[]*Activation{ReLU()}, init, "net")
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}

	out, err := mlp.Fwd(input)
	if err != nil {
		t.Fatalf("could not compute forward pass: %v", err)
	}

	return NewComposite(g, 2, mlp.Learnables(), out)
}

func TestSetDeepCopies(t *testing.T) {
	source := buildNet(t, G.GlorotN(1.0))
	dest := buildNet(t, G.Zeroes())

	if err := Set(dest, source); err != nil {
		t.Fatalf("could not set weights: %v", err)
	}

	for i, learnable := range dest.Learnables() {
		got := learnable.Value().(*tensor.Dense).Data().([]float64)
		want := source.Learnables()[i].Value().(*tensor.Dense).
			Data().([]float64)
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("learnable %v element %v: got %v, want %v", i, j,
					got[j], want[j])
			}
		}
	}

	// Mutating the source must leave the destination untouched
	sourceData := source.Learnables()[0].Value().(*tensor.Dense).
		Data().([]float64)
	before := dest.Learnables()[0].Value().(*tensor.Dense).
		Data().([]float64)[0]
	sourceData[0] += 100.0

	after := dest.Learnables()[0].Value().(*tensor.Dense).
		Data().([]float64)[0]
	if before != after {
		t.Fatalf("destination weights aliased the source: %v changed to %v",
			before, after)
	}
}

func TestPolyak(t *testing.T) {
	dest := buildNet(t, G.ValuesOf(2.0))
	source := buildNet(t, G.ValuesOf(1.0))
	tau := 0.1

	if err := Polyak(dest, source, tau); err != nil {
		t.Fatalf("could not average weights: %v", err)
	}

	// dest <- 0.9 * 2.0 + 0.1 * 1.0 for every weight, except biases
	// which start at zero: 0.9 * 0.0 + 0.1 * 0.0
	for i, learnable := range dest.Learnables() {
		want := 1.9
		if learnable.Shape().Dims() == 1 {
			want = 0.0
		}
		for j, got := range learnable.Value().(*tensor.Dense).
			Data().([]float64) {
			if math.Abs(got-want) > 1e-12 {
				t.Errorf("learnable %v element %v: got %v, want %v", i, j,
					got, want)
			}
		}
	}
}

func TestCountVars(t *testing.T) {
	net := buildNet(t, G.Zeroes())

	// (3x4 + 4) hidden layer plus (4x2 + 2) output layer
	want := 3*4 + 4 + 4*2 + 2
	if got := CountVars(net); got != want {
		t.Errorf("got %v weights, want %v", got, want)
	}
}

func TestSaveLoadWeights(t *testing.T) {
	source := buildNet(t, G.GlorotU(1.0))
	dest := buildNet(t, G.Zeroes())

	var buf bytes.Buffer
	if err := SaveWeights(&buf, source); err != nil {
		t.Fatalf("could not save weights: %v", err)
	}
	if err := LoadWeights(&buf, dest); err != nil {
		t.Fatalf("could not load weights: %v", err)
	}

	for i, learnable := range dest.Learnables() {
		got := learnable.Value().(*tensor.Dense).Data().([]float64)
		want := source.Learnables()[i].Value().(*tensor.Dense).
			Data().([]float64)
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("learnable %v element %v: got %v, want %v", i, j,
					got[j], want[j])
			}
		}
	}
}
