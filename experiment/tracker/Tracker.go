// Package tracker provides metric sinks that accumulate a scalar
// time series during an experiment and persist it when the experiment
// ends.
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Tracker accumulates (x, value) observations and persists them on
// Save.
type Tracker interface {
	Track(x, value float64)
	Save() error
}

// series is a gob-encoded scalar time series.
type series struct {
	filename string

	Xs     []float64
	Values []float64
}

func (s *series) Track(x, value float64) {
	s.Xs = append(s.Xs, x)
	s.Values = append(s.Values, value)
}

func (s *series) Save() error {
	f, err := os.Create(s.filename)
	if err != nil {
		return fmt.Errorf("save: could not create %v: %v", s.filename, err)
	}
	defer f.Close()

	enc := gob.NewEncoder(f)
	if err := enc.Encode(s.Xs); err != nil {
		return fmt.Errorf("save: could not encode steps: %v", err)
	}
	if err := enc.Encode(s.Values); err != nil {
		return fmt.Errorf("save: could not encode values: %v", err)
	}
	return nil
}

// LoadSeries reads a time series previously written by a gob-backed
// tracker.
func LoadSeries(filename string) (xs, values []float64, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("loadseries: %v", err)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	if err := dec.Decode(&xs); err != nil {
		return nil, nil, fmt.Errorf("loadseries: could not decode steps: %v",
			err)
	}
	if err := dec.Decode(&values); err != nil {
		return nil, nil, fmt.Errorf("loadseries: could not decode "+
			"values: %v", err)
	}
	return xs, values, nil
}
