package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// MultiHeadMLP is a feedforward network with a separate output head
// per prediction target. It operates on nodes of an existing
// expression graph so that several networks can be chained on one
// graph, for example a head consuming a recurrent embedding.
type MultiHeadMLP struct {
	layers     []Layer
	numInputs  int
	numOutputs int
}

// NewMultiHeadMLP adds a feedforward network to graph g. The network
// has len(hiddenSizes) hidden layers followed by a linear output
// layer of numOutputs heads. The prefix parameter disambiguates
// weight names when several networks share g.
func NewMultiHeadMLP(g *G.ExprGraph, features, numOutputs int,
	hiddenSizes []int, biases []bool, activations []*Activation,
	init G.InitWFn, prefix string) (*MultiHeadMLP, error) {
	if features <= 0 {
		return nil, fmt.Errorf("newmultiheadmlp: invalid number of "+
			"features %v", features)
	}
	if numOutputs <= 0 {
		return nil, fmt.Errorf("newmultiheadmlp: invalid number of "+
			"outputs %v", numOutputs)
	}

	// The output layer is a linear layer of numOutputs heads
	sizes := make([]int, len(hiddenSizes), len(hiddenSizes)+1)
	copy(sizes, hiddenSizes)
	sizes = append(sizes, numOutputs)

	withBias := make([]bool, len(biases), len(biases)+1)
	copy(withBias, biases)
	withBias = append(withBias, true)

	acts := make([]*Activation, len(activations), len(activations)+1)
	copy(acts, activations)
	acts = append(acts, Identity())

	layers, err := addFCLayers(g, sizes, withBias, acts, init, features,
		prefix)
	if err != nil {
		return nil, fmt.Errorf("newmultiheadmlp: could not create "+
			"layers: %v", err)
	}

	return &MultiHeadMLP{
		layers:     layers,
		numInputs:  features,
		numOutputs: numOutputs,
	}, nil
}

// Fwd adds the forward pass of the network on input x, which must
// have shape (batch, features). It returns the node holding the
// network output of shape (batch, numOutputs).
func (m *MultiHeadMLP) Fwd(x *G.Node) (*G.Node, error) {
	out := x
	var err error
	for i, layer := range m.layers {
		if out, err = layer.fwd(out); err != nil {
			return nil, fmt.Errorf("fwd: could not compute layer %v: %v",
				i, err)
		}
	}
	return out, nil
}

// Outputs returns the number of output heads of the network.
func (m *MultiHeadMLP) Outputs() int {
	return m.numOutputs
}

// Features returns the number of input features of the network.
func (m *MultiHeadMLP) Features() int {
	return m.numInputs
}

// Learnables returns the adaptable weights of the network in a fixed
// order.
func (m *MultiHeadMLP) Learnables() G.Nodes {
	var learnables G.Nodes
	for _, layer := range m.layers {
		learnables = append(learnables, layer.Weights())
		if bias := layer.Bias(); bias != nil {
			learnables = append(learnables, bias)
		}
	}
	return learnables
}
