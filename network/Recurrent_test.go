package network

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestGRUFwd(t *testing.T) {
	batch, features, hiddenSize := 2, 3, 4

	g := G.NewGraph()
	x := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("x"))
	h := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, hiddenSize),
		G.WithName("h"))

	cell, err := NewGRU(g, features, hiddenSize, G.GlorotN(1.0), "mem")
	if err != nil {
		t.Fatalf("could not create cell: %v", err)
	}

	hNew, err := cell.Fwd(x, h)
	if err != nil {
		t.Fatalf("could not compute forward pass: %v", err)
	}

	var out G.Value
	G.Read(hNew, &out)

	vm := G.NewTapeMachine(g)
	defer vm.Close()

	inputs := tensor.New(
		tensor.WithShape(batch, features),
		tensor.WithBacking([]float64{0.5, -1.0, 2.0, 0.0, 1.5, -0.5}),
	)
	hidden := tensor.New(
		tensor.WithShape(batch, hiddenSize),
		tensor.WithBacking(make([]float64, batch*hiddenSize)),
	)
	if err := G.Let(x, inputs); err != nil {
		t.Fatalf("could not set input: %v", err)
	}
	if err := G.Let(h, hidden); err != nil {
		t.Fatalf("could not set hidden state: %v", err)
	}

	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run graph: %v", err)
	}

	shape := out.(*tensor.Dense).Shape()
	if shape[0] != batch || shape[1] != hiddenSize {
		t.Fatalf("got output shape %v, want (%v, %v)", shape, batch,
			hiddenSize)
	}

	// With a zero hidden state hNew = (1 - z) ∘ tanh(...), so every
	// element is strictly inside (-1, 1)
	for i, v := range out.(*tensor.Dense).Data().([]float64) {
		if math.Abs(v) >= 1.0 {
			t.Errorf("element %v out of range: %v", i, v)
		}
	}

	if got := len(cell.Learnables()); got != 9 {
		t.Errorf("got %v learnables, want 9", got)
	}
}
