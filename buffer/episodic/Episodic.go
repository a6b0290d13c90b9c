// Package episodic implements an append-only replay buffer of whole
// trajectories. Episodes are the unit of sampling: a recurrent agent
// must replay contiguous history, so transitions are never shuffled
// or sampled individually.
package episodic

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Transition is a single step of experience. HiddenIn and HiddenOut
// snapshot the recurrent state before and after the step that
// produced Action, so that a sampled episode replays the exact memory
// evolution seen during rollout.
type Transition struct {
	Obs        *mat.VecDense
	NextObs    *mat.VecDense
	Action     int
	Reward     float64
	Done       bool
	PrevAction int
	PrevReward float64
	HiddenIn   []float64
	HiddenOut  []float64
}

// Episode is one finished trajectory.
type Episode struct {
	Transitions []Transition

	draws int
}

// Len returns the number of transitions in the episode.
func (e *Episode) Len() int {
	return len(e.Transitions)
}

// Buffer stores whole trajectories for one epoch of training. A
// trajectory is open from its first Store until FinishPath, which
// must be called exactly once per trajectory.
type Buffer struct {
	episodes []*Episode
	current  *Episode
	steps    int
	rng      *rand.Rand
}

// New returns an empty buffer whose sampling stream is seeded with
// seed.
func New(seed uint64) *Buffer {
	return &Buffer{rng: rand.New(rand.NewSource(seed))}
}

// Store appends a transition to the currently open trajectory,
// opening a new one if none is open.
func (b *Buffer) Store(t Transition) {
	if b.current == nil {
		b.current = &Episode{}
	}
	b.current.Transitions = append(b.current.Transitions, t)
	b.steps++
}

// FinishPath marks the end of the current trajectory. A trajectory
// that ended before its first transition is recorded as a zero-length
// episode; such episodes count toward Episodes but are never sampled.
func (b *Buffer) FinishPath() {
	if b.current == nil {
		b.current = &Episode{}
	}
	b.episodes = append(b.episodes, b.current)
	b.current = nil
}

// Get samples batchSize episodes with replacement. With probability
// pExploration a draw is restricted to the half of the episodes that
// have been sampled the least, so that under-explored trajectories
// keep contributing gradients; otherwise the draw is uniform.
func (b *Buffer) Get(batchSize int, pExploration float64) ([]*Episode,
	error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("get: invalid batch size %v", batchSize)
	}
	if pExploration < 0 || pExploration > 1 {
		return nil, fmt.Errorf("get: invalid exploration probability %v",
			pExploration)
	}

	var candidates []*Episode
	for _, episode := range b.episodes {
		if episode.Len() > 0 {
			candidates = append(candidates, episode)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("get: no non-empty episodes stored")
	}

	batch := make([]*Episode, batchSize)
	for i := range batch {
		var episode *Episode
		if b.rng.Float64() < pExploration {
			sort.SliceStable(candidates, func(i, j int) bool {
				return candidates[i].draws < candidates[j].draws
			})
			half := (len(candidates) + 1) / 2
			episode = candidates[b.rng.Intn(half)]
		} else {
			episode = candidates[b.rng.Intn(len(candidates))]
		}
		episode.draws++
		batch[i] = episode
	}
	return batch, nil
}

// Reset drops every stored trajectory, finished or open.
func (b *Buffer) Reset() {
	b.episodes = nil
	b.current = nil
	b.steps = 0
}

// Len returns the total number of stored transitions, including those
// of the open trajectory.
func (b *Buffer) Len() int {
	return b.steps
}

// Episodes returns the number of finished trajectories.
func (b *Buffer) Episodes() int {
	return len(b.episodes)
}
