// Command metasac trains a recurrent soft actor-critic agent on a
// Bernoulli bandit meta-RL task, checkpointing and tracking learning
// curves along the way, then evaluates the trained policy with a
// blended greedy/stochastic rollout.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/metarl/metasac/agent/nonlinear/discrete/sacrnn"
	"github.com/metarl/metasac/environment/bandit"
	"github.com/metarl/metasac/experiment"
	"github.com/metarl/metasac/experiment/checkpointer"
	"github.com/metarl/metasac/experiment/tracker"
	"github.com/metarl/metasac/logx"
)

type config struct {
	// Environment
	Arms    int `json:"arms" yaml:"arms"`
	Horizon int `json:"horizon" yaml:"horizon"`

	Agent sacrnn.Config               `json:"agent" yaml:"agent"`
	Trial experiment.MetaTrialConfig  `json:"trial" yaml:"trial"`
	Eval  experiment.EvaluationConfig `json:"eval" yaml:"eval"`

	// SaveEvery is the checkpoint cadence in finished trajectories.
	SaveEvery int    `json:"saveEvery" yaml:"saveEvery"`
	OutDir    string `json:"outDir" yaml:"outDir"`

	// ModelFile restores pre-trained weights instead of a fresh
	// initialization.
	ModelFile string `json:"modelFile" yaml:"modelFile"`
}

func defaultConfig() config {
	agent := sacrnn.DefaultConfig()
	agent.HiddenSize = 32
	agent.PolicyHidden = []int{32}
	agent.CriticHidden = []int{32}
	agent.MaxEpisodeLength = 50
	agent.StartSteps = 500
	agent.UpdateEvery = 5
	agent.BatchSize = 8

	return config{
		Arms:    4,
		Horizon: 50,
		Agent:   agent,
		Trial: experiment.MetaTrialConfig{
			Epochs:               20,
			TrajectoriesPerEpoch: 40,
			MaxEpisodeLength:     50,
		},
		Eval: experiment.EvaluationConfig{
			Trajectories:     10,
			MaxEpisodeLength: 50,
			GreedyRatio:      0.5,
			WarmUpSteps:      0,
			Seed:             17,
		},
		SaveEvery: 200,
		OutDir:    "runs",
	}
}

func main() {
	configPath := flag.String("config", "",
		"optional YAML file overriding the default configuration")
	flag.Parse()

	logger := logx.New(os.Stdout)

	cfg := defaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			logger.Event().Fatal().Err(err).Msg("could not read config")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			logger.Event().Fatal().Err(err).Msg("could not parse config")
		}
	}
	// The loop, the agent, and the evaluation must agree on the
	// horizon
	cfg.Agent.MaxEpisodeLength = cfg.Horizon
	cfg.Trial.MaxEpisodeLength = cfg.Horizon
	cfg.Eval.MaxEpisodeLength = cfg.Horizon

	runDir := filepath.Join(cfg.OutDir, uuid.NewString())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Event().Fatal().Err(err).Msg("could not create run directory")
	}
	logger.Event().Info().Str("runDir", runDir).Msg("starting run")

	env, err := bandit.New(cfg.Arms, cfg.Horizon, cfg.Agent.Seed)
	if err != nil {
		logger.Event().Fatal().Err(err).Msg("could not create environment")
	}

	learner, err := sacrnn.New(env, cfg.Agent, logger)
	if err != nil {
		logger.Event().Fatal().Err(err).Msg("could not create agent")
	}
	defer learner.Close()
	if cfg.ModelFile != "" {
		if err := learner.LoadFile(cfg.ModelFile); err != nil {
			logger.Event().Fatal().Err(err).Msg("could not load model")
		}
		logger.Event().Info().Str("modelFile", cfg.ModelFile).
			Msg("restored pre-trained weights")
	}

	returnTrackers := []tracker.Tracker{
		tracker.NewReturn(filepath.Join(runDir, "return.bin")),
		tracker.NewPlot(filepath.Join(runDir, "return.png"),
			"Training return", "environment steps", "return"),
	}
	lengthTrackers := []tracker.Tracker{
		tracker.NewEpisodeLength(filepath.Join(runDir, "eplen.bin")),
	}
	ckpt, err := checkpointer.NewNTrajectory(cfg.SaveEvery,
		filepath.Join(runDir, "checkpoints"), learner)
	if err != nil {
		logger.Event().Fatal().Err(err).Msg("could not create checkpointer")
	}

	trial, err := experiment.NewMetaTrial(env, learner, cfg.Trial, logger,
		returnTrackers, lengthTrackers, ckpt)
	if err != nil {
		logger.Event().Fatal().Err(err).Msg("could not create trial")
	}
	if err := trial.Run(); err != nil {
		logger.Event().Fatal().Err(err).Msg("training failed")
	}
	if err := ckpt.SaveNow(); err != nil {
		logger.Event().Fatal().Err(err).Msg("could not save final model")
	}

	traces, err := experiment.Evaluate(env, learner, cfg.Eval, logger)
	if err != nil {
		logger.Event().Fatal().Err(err).Msg("evaluation failed")
	}
	logger.DumpTabular()

	logger.Event().Info().
		Int("totalEnvInteracts", trial.TotalSteps()).
		Int("evalTrajectories", len(traces)).
		Float64("alpha", learner.Alpha()).
		Msg("finished")
}
