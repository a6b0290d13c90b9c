package experiment

import (
	"io"
	"testing"

	"github.com/metarl/metasac/agent/nonlinear/discrete/sacrnn"
	"github.com/metarl/metasac/environment/bandit"
	"github.com/metarl/metasac/logx"
	"github.com/metarl/metasac/timestep"
)

// stubLearner counts the loop callbacks it receives.
type stubLearner struct {
	resets    int
	firsts    int
	observed  int
	evalSteps int
	endTraj   int
	endEpoch  int
}

func (l *stubLearner) ResetRecurrent()                 { l.resets++ }
func (l *stubLearner) ObserveFirst(timestep.TimeStep)  { l.firsts++ }
func (l *stubLearner) Observe(int, timestep.TimeStep)  { l.observed++ }
func (l *stubLearner) EndTrajectory() error            { l.endTraj++; return nil }
func (l *stubLearner) EndEpoch() error                 { l.endEpoch++; return nil }
func (l *stubLearner) ObserveEval(int, timestep.TimeStep) {
	l.evalSteps++
}

func (l *stubLearner) SelectAction(timestep.TimeStep) (int, error) {
	return 0, nil
}

func (l *stubLearner) SelectActionEval(timestep.TimeStep, bool) (int,
	error) {
	return 0, nil
}

func TestMetaTrialCallSequence(t *testing.T) {
	env, err := bandit.New(2, 4, 1)
	if err != nil {
		t.Fatalf("could not create bandit: %v", err)
	}
	learner := &stubLearner{}

	trial, err := NewMetaTrial(env, learner, MetaTrialConfig{
		Epochs:               2,
		TrajectoriesPerEpoch: 3,
		MaxEpisodeLength:     4,
	}, logx.New(io.Discard), nil, nil, nil)
	if err != nil {
		t.Fatalf("could not create trial: %v", err)
	}
	if err := trial.Run(); err != nil {
		t.Fatalf("could not run trial: %v", err)
	}

	if learner.resets != 2 {
		t.Errorf("got %v recurrent resets, want one per epoch", learner.resets)
	}
	if learner.endEpoch != 2 {
		t.Errorf("got %v epoch ends, want 2", learner.endEpoch)
	}
	if learner.firsts != 6 || learner.endTraj != 6 {
		t.Errorf("got %v trajectory starts and %v ends, want 6 each",
			learner.firsts, learner.endTraj)
	}
	if learner.observed != 24 {
		t.Errorf("got %v observed steps, want 24", learner.observed)
	}
	if trial.TotalSteps() != 24 {
		t.Errorf("got %v total steps, want 24", trial.TotalSteps())
	}
}

func TestMetaTrialLeavesBufferEmptyAfterEpoch(t *testing.T) {
	env, err := bandit.New(2, 3, 1)
	if err != nil {
		t.Fatalf("could not create bandit: %v", err)
	}

	config := sacrnn.DefaultConfig()
	config.HiddenSize = 3
	config.PolicyHidden = []int{4}
	config.CriticHidden = []int{4}
	config.MaxEpisodeLength = 3
	config.StartSteps = 1000
	config.UpdateEvery = 100

	learner, err := sacrnn.New(env, config, logx.New(io.Discard))
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}
	defer learner.Close()

	trial, err := NewMetaTrial(env, learner, MetaTrialConfig{
		Epochs:               1,
		TrajectoriesPerEpoch: 2,
		MaxEpisodeLength:     3,
	}, logx.New(io.Discard), nil, nil, nil)
	if err != nil {
		t.Fatalf("could not create trial: %v", err)
	}
	if err := trial.Run(); err != nil {
		t.Fatalf("could not run trial: %v", err)
	}

	if got := learner.Buffer().Len(); got != 0 {
		t.Errorf("buffer holds %v transitions after the epoch reset", got)
	}
	if got := learner.Buffer().Episodes(); got != 0 {
		t.Errorf("buffer holds %v episodes after the epoch reset", got)
	}
}

func TestEvaluateTracesAndStats(t *testing.T) {
	env, err := bandit.New(2, 4, 1)
	if err != nil {
		t.Fatalf("could not create bandit: %v", err)
	}
	learner := &stubLearner{}
	logger := logx.New(io.Discard)

	traces, err := Evaluate(env, learner, EvaluationConfig{
		Trajectories:     2,
		MaxEpisodeLength: 4,
		GreedyRatio:      0.5,
		WarmUpSteps:      3,
		Seed:             5,
	}, logger)
	if err != nil {
		t.Fatalf("could not evaluate: %v", err)
	}

	if len(traces) != 2 {
		t.Fatalf("got %v traces, want 2", len(traces))
	}
	for i, trace := range traces {
		if len(trace.Rewards) != 4 || len(trace.Actions) != 4 {
			t.Errorf("trace %v: got %v rewards and %v actions, want 4 "+
				"each", i, len(trace.Rewards), len(trace.Actions))
		}
		if len(trace.Observations) != 5 {
			t.Errorf("trace %v: got %v observations, want 5 including "+
				"the reset", i, len(trace.Observations))
		}
	}

	// The recurrent state resets per evaluated trajectory
	if learner.resets != 2 {
		t.Errorf("got %v recurrent resets, want 2", learner.resets)
	}
	if learner.observed != 0 {
		t.Errorf("evaluation stored %v training observations",
			learner.observed)
	}
	if learner.evalSteps != 8 {
		t.Errorf("got %v evaluation carries, want 8", learner.evalSteps)
	}
	if _, ok := logger.GetStats("TestEpRew"); !ok {
		t.Error("no TestEpRew statistics stored")
	}
}

func TestEvaluateRejectsInvalidConfig(t *testing.T) {
	env, err := bandit.New(2, 4, 1)
	if err != nil {
		t.Fatalf("could not create bandit: %v", err)
	}

	_, err = Evaluate(env, &stubLearner{}, EvaluationConfig{
		Trajectories:     2,
		MaxEpisodeLength: 4,
		GreedyRatio:      1.5,
	}, nil)
	if err == nil {
		t.Error("greedy ratio above 1 accepted")
	}
}
