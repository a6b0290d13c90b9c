// Package checkpointer persists agent parameters on a trajectory
// cadence during training.
package checkpointer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Serializable is anything whose full parameter set can be written to
// a stream.
type Serializable interface {
	Save(w io.Writer) error
}

// NTrajectory saves its target every interval finished trajectories,
// enumerating checkpoint files within dir.
type NTrajectory struct {
	interval int
	dir      string
	target   Serializable

	count int
	saved int
}

// NewNTrajectory creates the checkpointer and its output directory.
func NewNTrajectory(interval int, dir string,
	target Serializable) (*NTrajectory, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("newntrajectory: invalid interval %v",
			interval)
	}
	if target == nil {
		return nil, fmt.Errorf("newntrajectory: no target")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newntrajectory: could not create %v: %v",
			dir, err)
	}
	return &NTrajectory{interval: interval, dir: dir, target: target}, nil
}

// EndTrajectory notes one finished trajectory and saves the target
// when the cadence is due.
func (c *NTrajectory) EndTrajectory() error {
	c.count++
	if c.count%c.interval != 0 {
		return nil
	}
	return c.SaveNow()
}

// SaveNow writes a checkpoint immediately.
func (c *NTrajectory) SaveNow() error {
	path := filepath.Join(c.dir, fmt.Sprintf("model_%d.bin", c.saved))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("savenow: could not create %v: %v", path, err)
	}
	defer f.Close()

	if err := c.target.Save(f); err != nil {
		return fmt.Errorf("savenow: could not save to %v: %v", path, err)
	}
	c.saved++
	return nil
}

// Saved returns the number of checkpoints written so far.
func (c *NTrajectory) Saved() int {
	return c.saved
}
