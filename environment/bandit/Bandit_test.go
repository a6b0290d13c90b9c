package bandit

import (
	"testing"
)

func TestTrajectoryTruncatesAtHorizon(t *testing.T) {
	horizon := 5
	env, err := New(2, horizon, 1)
	if err != nil {
		t.Fatalf("could not create bandit: %v", err)
	}

	first, err := env.Reset()
	if err != nil {
		t.Fatalf("could not reset: %v", err)
	}
	if first.Number != 0 || first.Last() {
		t.Fatalf("invalid first step: %+v", first)
	}

	for i := 0; i < horizon; i++ {
		ts, err := env.Step(0)
		if err != nil {
			t.Fatalf("step %v: %v", i, err)
		}
		if ts.Terminated {
			t.Fatalf("step %v: bandit terminated", i)
		}
		wantLast := i == horizon-1
		if ts.Truncated != wantLast {
			t.Fatalf("step %v: got truncated %v, want %v", i, ts.Truncated,
				wantLast)
		}
		if ts.Reward != 0 && ts.Reward != 1 {
			t.Fatalf("step %v: reward %v not Bernoulli", i, ts.Reward)
		}
	}

	if _, err := env.Step(0); err == nil {
		t.Error("stepping an ended trajectory did not fail")
	}
}

func TestStepRejectsInvalidAction(t *testing.T) {
	env, err := New(2, 5, 1)
	if err != nil {
		t.Fatalf("could not create bandit: %v", err)
	}
	if _, err := env.Reset(); err != nil {
		t.Fatalf("could not reset: %v", err)
	}
	if _, err := env.Step(2); err == nil {
		t.Error("out-of-range action did not fail")
	}
	if _, err := env.Step(-1); err == nil {
		t.Error("negative action did not fail")
	}
}

func TestNewTaskRedrawsMeans(t *testing.T) {
	env, err := New(4, 5, 1)
	if err != nil {
		t.Fatalf("could not create bandit: %v", err)
	}

	before := append([]float64(nil), env.Means()...)
	env.NewTask()
	after := env.Means()

	same := true
	for i := range before {
		if before[i] < 0 || before[i] >= 1 || after[i] < 0 || after[i] >= 1 {
			t.Fatalf("arm mean out of range: %v, %v", before[i], after[i])
		}
		if before[i] != after[i] {
			same = false
		}
	}
	if same {
		t.Error("arm means unchanged after task resample")
	}
}
