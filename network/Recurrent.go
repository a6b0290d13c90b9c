package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GRU is a single-step gated recurrent unit cell. The cell maps an
// input of shape (batch, features) and a hidden state of shape
// (batch, hiddenSize) to a new hidden state of the same shape.
// Threading the hidden state across time steps is the caller's job,
// so the same cell serves both online action selection (batch 1, one
// step at a time) and batched replay of stored transitions, where
// every row carries its own recorded hidden state.
type GRU struct {
	wxr, whr, br *G.Node
	wxz, whz, bz *G.Node
	wxn, whn, bn *G.Node

	features   int
	hiddenSize int
}

// NewGRU adds the weights of a GRU cell to graph g. The prefix
// parameter disambiguates weight names when several cells share g.
func NewGRU(g *G.ExprGraph, features, hiddenSize int, init G.InitWFn,
	prefix string) (*GRU, error) {
	if features <= 0 {
		return nil, fmt.Errorf("newgru: invalid number of features %v",
			features)
	}
	if hiddenSize <= 0 {
		return nil, fmt.Errorf("newgru: invalid hidden size %v", hiddenSize)
	}

	inWeights := func(name string) *G.Node {
		return G.NewMatrix(g, tensor.Float64,
			G.WithShape(features, hiddenSize),
			G.WithName(prefix+name), G.WithInit(init))
	}
	hidWeights := func(name string) *G.Node {
		return G.NewMatrix(g, tensor.Float64,
			G.WithShape(hiddenSize, hiddenSize),
			G.WithName(prefix+name), G.WithInit(init))
	}
	bias := func(name string) *G.Node {
		return G.NewVector(g, tensor.Float64, G.WithShape(hiddenSize),
			G.WithName(prefix+name), G.WithInit(G.Zeroes()))
	}

	return &GRU{
		wxr: inWeights("WxR"), whr: hidWeights("WhR"), br: bias("bR"),
		wxz: inWeights("WxZ"), whz: hidWeights("WhZ"), bz: bias("bZ"),
		wxn: inWeights("WxN"), whn: hidWeights("WhN"), bn: bias("bN"),

		features:   features,
		hiddenSize: hiddenSize,
	}, nil
}

// gate computes sigmoid(x*wx + h*wh + b)
func (u *GRU) gate(x, h, wx, wh, b *G.Node) (*G.Node, error) {
	fromInput, err := G.Mul(x, wx)
	if err != nil {
		return nil, err
	}
	fromHidden, err := G.Mul(h, wh)
	if err != nil {
		return nil, err
	}
	pre, err := G.Add(fromInput, fromHidden)
	if err != nil {
		return nil, err
	}
	pre, err = G.BroadcastAdd(pre, b, nil, []byte{0})
	if err != nil {
		return nil, err
	}
	return G.Sigmoid(pre)
}

// Fwd adds the forward pass of the cell on input x and hidden state
// h, returning the node holding the new hidden state.
func (u *GRU) Fwd(x, h *G.Node) (*G.Node, error) {
	reset, err := u.gate(x, h, u.wxr, u.whr, u.br)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not compute reset gate: %v", err)
	}

	update, err := u.gate(x, h, u.wxz, u.whz, u.bz)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not compute update gate: %v", err)
	}

	// Candidate state tanh(x*WxN + (reset ∘ h)*WhN + bN)
	gatedHidden, err := G.HadamardProd(reset, h)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not gate hidden state: %v", err)
	}
	fromInput := G.Must(G.Mul(x, u.wxn))
	fromHidden := G.Must(G.Mul(gatedHidden, u.whn))
	pre := G.Must(G.BroadcastAdd(G.Must(G.Add(fromInput, fromHidden)), u.bn,
		nil, []byte{0}))
	candidate, err := G.Tanh(pre)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not compute candidate state: %v",
			err)
	}

	// hNew = (1 - update) ∘ candidate + update ∘ h
	one := G.NewConstant(1.0)
	keepNew := G.Must(G.Sub(one, update))
	hNew, err := G.Add(
		G.Must(G.HadamardProd(keepNew, candidate)),
		G.Must(G.HadamardProd(update, h)),
	)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not combine states: %v", err)
	}
	return hNew, nil
}

// HiddenSize returns the dimensionality of the cell's hidden state.
func (u *GRU) HiddenSize() int {
	return u.hiddenSize
}

// Features returns the number of input features of the cell.
func (u *GRU) Features() int {
	return u.features
}

// Learnables returns the adaptable weights of the cell in a fixed
// order.
func (u *GRU) Learnables() G.Nodes {
	return G.Nodes{
		u.wxr, u.whr, u.br,
		u.wxz, u.whz, u.bz,
		u.wxn, u.whn, u.bn,
	}
}
