// Package initwfn provides JSON-serializable wrappers around Gorgonia
// weight initialization functions so that experiment configuration
// files can name the initialization scheme of each network.
package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type of weight initialization
type Type string

const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	Zeroes   Type = "Zeroes"
	Constant Type = "Constant"
)

// InitWFn wraps a Gorgonia InitWFn in a serializable description.
// Gain is the gain for the Glorot schemes and the fill value for
// Constant; it is ignored by Zeroes.
type InitWFn struct {
	Type Type    `json:"type" yaml:"type"`
	Gain float64 `json:"gain" yaml:"gain"`
}

// NewGlorotU returns a new Glorot uniform initialization scheme.
func NewGlorotU(gain float64) *InitWFn {
	return &InitWFn{Type: GlorotU, Gain: gain}
}

// NewGlorotN returns a new Glorot normal initialization scheme.
func NewGlorotN(gain float64) *InitWFn {
	return &InitWFn{Type: GlorotN, Gain: gain}
}

// NewZeroes returns a new zero initialization scheme.
func NewZeroes() *InitWFn {
	return &InitWFn{Type: Zeroes}
}

// NewConstant returns an initialization scheme that fills weights
// with value.
func NewConstant(value float64) *InitWFn {
	return &InitWFn{Type: Constant, Gain: value}
}

// InitWFn returns the Gorgonia initialization function the wrapper
// describes.
func (w *InitWFn) InitWFn() (G.InitWFn, error) {
	switch w.Type {
	case GlorotU:
		return G.GlorotU(w.Gain), nil
	case GlorotN:
		return G.GlorotN(w.Gain), nil
	case Zeroes:
		return G.Zeroes(), nil
	case Constant:
		return G.ValuesOf(w.Gain), nil
	}
	return nil, fmt.Errorf("initwfn: unknown initialization type %v", w.Type)
}
