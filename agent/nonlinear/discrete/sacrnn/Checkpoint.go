package sacrnn

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/metarl/metasac/network"
)

// Save writes the agent's full parameter set: the online memory and
// policy, the online twin critics, the target critics, and the
// temperature parameter.
func (s *SAC) Save(w io.Writer) error {
	enc := gob.NewEncoder(w)
	for _, net := range []network.NeuralNet{
		s.policyTrain.net, s.criticTrain.net, s.targ.net,
	} {
		if err := network.EncodeWeights(enc, net); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	if err := enc.Encode(s.temp.LogAlpha()); err != nil {
		return fmt.Errorf("save: could not encode temperature: %v", err)
	}
	return nil
}

// Load restores a parameter set previously written by Save into an
// agent constructed with the same hyperparameters, then resyncs every
// prediction copy. Decoding failures propagate uninterpreted.
func (s *SAC) Load(r io.Reader) error {
	dec := gob.NewDecoder(r)
	for _, net := range []network.NeuralNet{
		s.policyTrain.net, s.criticTrain.net, s.targ.net,
	} {
		if err := network.DecodeWeights(dec, net); err != nil {
			return fmt.Errorf("load: %v", err)
		}
	}

	var logAlpha float64
	if err := dec.Decode(&logAlpha); err != nil {
		return fmt.Errorf("load: could not decode temperature: %v", err)
	}
	if err := s.temp.SetLogAlpha(logAlpha); err != nil {
		return fmt.Errorf("load: could not restore temperature: %v", err)
	}

	for _, sync := range []struct {
		dest, source network.NeuralNet
	}{
		{s.actorFwd.net, s.policyTrain.net},
		{s.memPi.net, s.policyTrain.net},
		{s.qPred.net, s.criticTrain.net},
	} {
		if err := network.Set(sync.dest, sync.source); err != nil {
			return fmt.Errorf("load: could not sync weights: %v", err)
		}
	}
	return nil
}

// LoadFile restores the agent's parameters from a checkpoint file.
func (s *SAC) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("loadfile: %v", err)
	}
	defer f.Close()
	return s.Load(f)
}
