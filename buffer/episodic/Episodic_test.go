package episodic

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func transition(reward float64) Transition {
	return Transition{
		Obs:       mat.NewVecDense(1, []float64{0}),
		NextObs:   mat.NewVecDense(1, []float64{0}),
		Reward:    reward,
		HiddenIn:  []float64{0},
		HiddenOut: []float64{0},
	}
}

func TestFinishPathBoundsEpisodes(t *testing.T) {
	b := New(1)

	for i := 0; i < 3; i++ {
		b.Store(transition(1))
	}
	b.FinishPath()
	for i := 0; i < 2; i++ {
		b.Store(transition(2))
	}
	b.FinishPath()

	if got := b.Episodes(); got != 2 {
		t.Fatalf("got %v episodes, want 2", got)
	}
	if got := b.Len(); got != 5 {
		t.Fatalf("got %v transitions, want 5", got)
	}

	batch, err := b.Get(4, 0)
	if err != nil {
		t.Fatalf("could not sample: %v", err)
	}
	for i, episode := range batch {
		n := episode.Len()
		if n != 2 && n != 3 {
			t.Errorf("sampled episode %v has %v transitions", i, n)
		}
	}
}

func TestZeroLengthEpisodesAreNeverSampled(t *testing.T) {
	b := New(1)

	// A trajectory that ends at step 0 still finishes its path
	b.FinishPath()
	b.Store(transition(1))
	b.FinishPath()

	if got := b.Episodes(); got != 2 {
		t.Fatalf("got %v episodes, want 2", got)
	}

	batch, err := b.Get(16, 0.5)
	if err != nil {
		t.Fatalf("could not sample: %v", err)
	}
	for i, episode := range batch {
		if episode.Len() == 0 {
			t.Errorf("draw %v returned a zero-length episode", i)
		}
	}
}

func TestGetRejectsInvalidArguments(t *testing.T) {
	b := New(1)
	b.Store(transition(1))
	b.FinishPath()

	if _, err := b.Get(0, 0); err == nil {
		t.Error("zero batch size did not fail")
	}
	if _, err := b.Get(-1, 0); err == nil {
		t.Error("negative batch size did not fail")
	}
	if _, err := b.Get(1, -0.1); err == nil {
		t.Error("negative exploration probability did not fail")
	}
	if _, err := b.Get(1, 1.1); err == nil {
		t.Error("exploration probability above 1 did not fail")
	}
}

func TestGetFailsOnEmptyBuffer(t *testing.T) {
	b := New(1)
	if _, err := b.Get(1, 0); err == nil {
		t.Error("sampling an empty buffer did not fail")
	}

	b.FinishPath()
	if _, err := b.Get(1, 0); err == nil {
		t.Error("sampling with only zero-length episodes did not fail")
	}
}

func TestExplorationSamplingFavoursLeastDrawn(t *testing.T) {
	b := New(1)
	for e := 0; e < 4; e++ {
		b.Store(transition(float64(e)))
		b.FinishPath()
	}

	// Two episodes are already heavily sampled, two are untouched
	b.episodes[0].draws = 100
	b.episodes[1].draws = 100
	fresh := map[*Episode]bool{b.episodes[2]: true, b.episodes[3]: true}

	// 50 pure-exploration draws cannot raise the fresh episodes above
	// the saturated ones, so every draw must hit a fresh episode
	batch, err := b.Get(50, 1.0)
	if err != nil {
		t.Fatalf("could not sample: %v", err)
	}
	for i, episode := range batch {
		if !fresh[episode] {
			t.Errorf("draw %v hit an over-sampled episode", i)
		}
	}
}

func TestResetDropsEverything(t *testing.T) {
	b := New(1)
	b.Store(transition(1))
	b.FinishPath()
	b.Store(transition(2))

	b.Reset()

	if b.Len() != 0 || b.Episodes() != 0 {
		t.Errorf("buffer not empty after reset: %v transitions, %v episodes",
			b.Len(), b.Episodes())
	}
	if _, err := b.Get(1, 0); err == nil {
		t.Error("sampling after reset did not fail")
	}
}
