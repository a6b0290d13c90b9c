package network

import (
	G "gorgonia.org/gorgonia"
)

// Composite bundles learnable weights and prediction nodes that were
// built directly on a shared expression graph into a single
// NeuralNet, so that graph assemblies such as a recurrent cell
// feeding several heads can be copied, averaged, and checkpointed
// with Set, Polyak, and the weight serialization helpers.
type Composite struct {
	g           *G.ExprGraph
	batchSize   int
	learnables  G.Nodes
	predictions []*G.Node
	outputs     []G.Value
}

// NewComposite creates a NeuralNet from nodes that already live on g.
// The learnables order is preserved and must match between any two
// Composites passed to Set or Polyak. A Read is inserted on each
// prediction node so that Output is valid after the graph runs.
func NewComposite(g *G.ExprGraph, batchSize int, learnables G.Nodes,
	predictions ...*G.Node) *Composite {
	c := &Composite{
		g:           g,
		batchSize:   batchSize,
		learnables:  learnables,
		predictions: predictions,
		outputs:     make([]G.Value, len(predictions)),
	}
	for i, prediction := range predictions {
		G.Read(prediction, &c.outputs[i])
	}
	return c
}

// Graph returns the expression graph the Composite was built on.
func (c *Composite) Graph() *G.ExprGraph {
	return c.g
}

// BatchSize returns the number of rows in a batch of inputs.
func (c *Composite) BatchSize() int {
	return c.batchSize
}

// Learnables returns the adaptable weights of the Composite.
func (c *Composite) Learnables() G.Nodes {
	return c.learnables
}

// Model returns the learnables with their gradients for use by a
// Solver.
func (c *Composite) Model() []G.ValueGrad {
	model := make([]G.ValueGrad, len(c.learnables))
	for i, learnable := range c.learnables {
		model[i] = learnable
	}
	return model
}

// Output returns the values computed by the last run of the graph,
// one per prediction node.
func (c *Composite) Output() []G.Value {
	return c.outputs
}

// Prediction returns the nodes holding the Composite's predictions.
func (c *Composite) Prediction() []*G.Node {
	return c.predictions
}
