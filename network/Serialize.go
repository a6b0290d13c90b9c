package network

import (
	"encoding/gob"
	"fmt"
	"io"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// weightRecord is the wire format of a single learnable tensor.
type weightRecord struct {
	Name  string
	Shape []int
	Data  []float64
}

// SaveWeights gob-encodes the weights of net to w, in learnable
// order.
func SaveWeights(w io.Writer, net NeuralNet) error {
	return EncodeWeights(gob.NewEncoder(w), net)
}

// EncodeWeights writes the weights of net to enc. Several networks
// can share one encoder, which is how checkpoints bundle every
// parameter set into a single stream.
func EncodeWeights(enc *gob.Encoder, net NeuralNet) error {
	learnables := net.Learnables()
	if err := enc.Encode(len(learnables)); err != nil {
		return fmt.Errorf("encodeweights: could not encode weight count: %v",
			err)
	}

	for _, learnable := range learnables {
		weights, ok := learnable.Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("encodeweights: learnable %v is not a dense "+
				"tensor", learnable.Name())
		}
		backing := weights.Data().([]float64)
		record := weightRecord{
			Name:  learnable.Name(),
			Shape: weights.Shape(),
			Data:  append([]float64(nil), backing...),
		}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("encodeweights: could not encode %v: %v",
				learnable.Name(), err)
		}
	}
	return nil
}

// LoadWeights replaces the weights of net with weights previously
// written by SaveWeights. The network must have been constructed with
// the same hyperparameters as the one that was saved.
func LoadWeights(r io.Reader, net NeuralNet) error {
	return DecodeWeights(gob.NewDecoder(r), net)
}

// DecodeWeights restores weights previously written by EncodeWeights,
// in the same network order.
func DecodeWeights(dec *gob.Decoder, net NeuralNet) error {
	var count int
	if err := dec.Decode(&count); err != nil {
		return fmt.Errorf("decodeweights: could not decode weight count: %v",
			err)
	}

	learnables := net.Learnables()
	if count != len(learnables) {
		return fmt.Errorf("decodeweights: network architectures differ "+
			"\n\twant(%v learnables)\n\thave(%v)", len(learnables), count)
	}

	for _, learnable := range learnables {
		var record weightRecord
		if err := dec.Decode(&record); err != nil {
			return fmt.Errorf("decodeweights: could not decode %v: %v",
				learnable.Name(), err)
		}
		if record.Name != learnable.Name() {
			return fmt.Errorf("decodeweights: weight order differs "+
				"\n\twant(%v)\n\thave(%v)", learnable.Name(), record.Name)
		}
		if !learnable.Shape().Eq(tensor.Shape(record.Shape)) {
			return fmt.Errorf("decodeweights: shape of %v differs "+
				"\n\twant(%v)\n\thave(%v)", record.Name, learnable.Shape(),
				tensor.Shape(record.Shape))
		}

		weights := tensor.New(
			tensor.WithShape(record.Shape...),
			tensor.WithBacking(record.Data),
		)
		if err := G.Let(learnable, weights); err != nil {
			return fmt.Errorf("decodeweights: could not set %v: %v",
				record.Name, err)
		}
	}
	return nil
}
