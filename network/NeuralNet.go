// Package network implements neural network function approximators
// using Gorgonia. Networks only populate expression graphs; running
// the graphs and adapting the weights is left to external VMs and
// Solvers.
package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NeuralNet is a neural network whose forward pass has been added to
// a Gorgonia expression graph.
type NeuralNet interface {
	Graph() *G.ExprGraph
	BatchSize() int

	// Learnables returns the adaptable weight nodes of the network in
	// a fixed order. Two networks constructed with identical
	// hyperparameters return learnables in the same order, which is
	// what Set and Polyak rely on.
	Learnables() G.Nodes

	// Model returns the learnables with their gradients for use by a
	// Gorgonia Solver.
	Model() []G.ValueGrad

	// Output returns the values computed by the last run of the
	// network's graph, one per prediction node.
	Output() []G.Value

	// Prediction returns the nodes holding the network predictions.
	Prediction() []*G.Node
}

// Set sets the weights of dest to be equal to the weights of source.
// The copy is deep: no tensor is shared between the two networks
// afterwards.
func Set(dest, source NeuralNet) error {
	destNodes := dest.Learnables()
	sourceNodes := source.Learnables()
	if len(destNodes) != len(sourceNodes) {
		return fmt.Errorf("set: network architectures differ \n\twant(%v "+
			"learnables)\n\thave(%v)", len(destNodes), len(sourceNodes))
	}

	for i := range destNodes {
		sourceWeights, ok := sourceNodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("set: learnable %v is not a dense tensor", i)
		}
		cloned := sourceWeights.Clone().(*tensor.Dense)
		if err := G.Let(destNodes[i], cloned); err != nil {
			return fmt.Errorf("set: could not set learnable %v: %v", i, err)
		}
	}
	return nil
}

// Polyak sets the weights of dest to a moving average between its
// existing weights and the weights of source:
//
//	dest <- (1 - tau) * dest + tau * source
//
// The update happens outside of any expression graph run, so no
// gradient is ever recorded for it.
func Polyak(dest, source NeuralNet, tau float64) error {
	destNodes := dest.Learnables()
	sourceNodes := source.Learnables()
	if len(destNodes) != len(sourceNodes) {
		return fmt.Errorf("polyak: network architectures differ \n\twant(%v "+
			"learnables)\n\thave(%v)", len(destNodes), len(sourceNodes))
	}

	for i := range destNodes {
		weights := destNodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		scaledSource, err := sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		newWeights, err := weights.Add(scaledSource)
		if err != nil {
			return err
		}

		if err := G.Let(destNodes[i], newWeights); err != nil {
			return err
		}
	}
	return nil
}

// CountVars returns the total number of scalar weights in a network.
func CountVars(net NeuralNet) int {
	total := 0
	for _, learnable := range net.Learnables() {
		total += learnable.Shape().TotalSize()
	}
	return total
}
