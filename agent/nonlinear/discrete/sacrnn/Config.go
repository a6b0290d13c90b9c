package sacrnn

import (
	"fmt"

	"github.com/metarl/metasac/initwfn"
)

// Config describes a recurrent soft actor-critic agent.
type Config struct {
	// Architecture
	HiddenSize   int   `json:"hiddenSize" yaml:"hiddenSize"`
	PolicyHidden []int `json:"policyHidden" yaml:"policyHidden"`
	CriticHidden []int `json:"criticHidden" yaml:"criticHidden"`

	// Soft Q-learning
	Gamma  float64 `json:"gamma" yaml:"gamma"`
	Polyak float64 `json:"polyak" yaml:"polyak"`

	// Entropy temperature. Alpha is the fixed temperature, or the
	// initial temperature when LearnAlpha is set. The target entropy
	// is TargetEntropyMult times the entropy of the uniform policy.
	Alpha             float64 `json:"alpha" yaml:"alpha"`
	LearnAlpha        bool    `json:"learnAlpha" yaml:"learnAlpha"`
	TargetEntropyMult float64 `json:"targetEntropyMult" yaml:"targetEntropyMult"`

	// Optimization
	LRPolicy      float64 `json:"lrPolicy" yaml:"lrPolicy"`
	LRCritic      float64 `json:"lrCritic" yaml:"lrCritic"`
	LRAlpha       float64 `json:"lrAlpha" yaml:"lrAlpha"`
	DecayInterval int     `json:"decayInterval" yaml:"decayInterval"`
	DecayGamma    float64 `json:"decayGamma" yaml:"decayGamma"`

	// GradClip bounds the global gradient norm before every optimizer
	// step; zero or negative disables clipping.
	GradClip float64 `json:"gradClip" yaml:"gradClip"`

	// Experience
	MaxEpisodeLength int     `json:"maxEpisodeLength" yaml:"maxEpisodeLength"`
	BatchSize        int     `json:"batchSize" yaml:"batchSize"`
	PExploration     float64 `json:"pExploration" yaml:"pExploration"`
	StartSteps       int     `json:"startSteps" yaml:"startSteps"`
	UpdateEvery      int     `json:"updateEvery" yaml:"updateEvery"`

	Seed uint64           `json:"seed" yaml:"seed"`
	Init *initwfn.InitWFn `json:"init" yaml:"init"`
}

// DefaultConfig returns a Config with reasonable hyperparameters for
// small discrete tasks.
func DefaultConfig() Config {
	return Config{
		HiddenSize:   64,
		PolicyHidden: []int{64},
		CriticHidden: []int{64},

		Gamma:  0.99,
		Polyak: 0.995,

		Alpha:             1.0,
		LearnAlpha:        true,
		TargetEntropyMult: 0.98,

		LRPolicy:      3e-4,
		LRCritic:      3e-4,
		LRAlpha:       3e-4,
		DecayInterval: 1,
		DecayGamma:    0.95,
		GradClip:      5.0,

		MaxEpisodeLength: 100,
		BatchSize:        8,
		PExploration:     0.3,
		StartSteps:       500,
		UpdateEvery:      5,

		Seed: 1,
		Init: initwfn.NewGlorotU(1.0),
	}
}

// Validate returns an error describing the first invalid
// hyperparameter.
func (c Config) Validate() error {
	if c.HiddenSize <= 0 {
		return fmt.Errorf("validate: invalid hidden size %v", c.HiddenSize)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount %v not in [0, 1]", c.Gamma)
	}
	if c.Polyak < 0 || c.Polyak >= 1 {
		return fmt.Errorf("validate: polyak coefficient %v not in [0, 1)",
			c.Polyak)
	}
	if c.Alpha <= 0 {
		return fmt.Errorf("validate: temperature %v must be positive",
			c.Alpha)
	}
	if c.LRPolicy <= 0 || c.LRCritic <= 0 {
		return fmt.Errorf("validate: learning rates must be positive")
	}
	if c.LearnAlpha && c.LRAlpha <= 0 {
		return fmt.Errorf("validate: temperature learning rate %v must be "+
			"positive", c.LRAlpha)
	}
	if c.MaxEpisodeLength <= 0 {
		return fmt.Errorf("validate: invalid max episode length %v",
			c.MaxEpisodeLength)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("validate: invalid batch size %v", c.BatchSize)
	}
	if c.PExploration < 0 || c.PExploration > 1 {
		return fmt.Errorf("validate: exploration probability %v not in "+
			"[0, 1]", c.PExploration)
	}
	if c.StartSteps < 0 {
		return fmt.Errorf("validate: invalid warm-up steps %v", c.StartSteps)
	}
	if c.UpdateEvery <= 0 {
		return fmt.Errorf("validate: invalid update interval %v",
			c.UpdateEvery)
	}
	if c.Init == nil {
		return fmt.Errorf("validate: no weight initialization scheme")
	}
	return nil
}
