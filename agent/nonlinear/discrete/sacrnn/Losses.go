package sacrnn

import (
	"fmt"
	"math"
)

// bootstrapTargets computes the soft Q-learning backup
//
//	backup = r + gamma * (1 - done) * Σ_a pi2(a) * (qTargMin(a) - alpha*logp2(a))
//
// for the first n rows of a padded batch. pi2 and logp2 come from a
// no-gradient forward of the online policy at the next observation;
// q1Targ and q2Targ come from the target critics and enter through
// their elementwise minimum. All per-action inputs are row-major
// (rows × numActions). The returned slice keeps the padded length of
// rewards, with padding rows zero.
//
// A shape mismatch between the reward and bootstrap terms means the
// batch was corrupted upstream; it is reported as an error and must
// be treated as fatal.
func bootstrapTargets(rewards, dones, pi2, logp2, q1Targ,
	q2Targ []float64, n, numActions int, alpha, gamma float64) ([]float64,
	error) {
	if len(rewards) < n || len(dones) != len(rewards) {
		return nil, fmt.Errorf("bootstraptargets: reward and done shapes "+
			"differ \n\twant(%v rows)\n\thave(%v, %v)", n, len(rewards),
			len(dones))
	}
	wide := n * numActions
	if len(pi2) < wide || len(logp2) < wide || len(q1Targ) < wide ||
		len(q2Targ) < wide {
		return nil, fmt.Errorf("bootstraptargets: reward and bootstrap "+
			"shapes differ \n\twant(%v values)\n\thave(%v, %v, %v, %v)",
			wide, len(pi2), len(logp2), len(q1Targ), len(q2Targ))
	}

	backup := make([]float64, len(rewards))
	for i := 0; i < n; i++ {
		nextV := 0.0
		for a := 0; a < numActions; a++ {
			j := i*numActions + a
			qMin := math.Min(q1Targ[j], q2Targ[j])
			nextV += pi2[j] * (qMin - alpha*logp2[j])
		}
		backup[i] = rewards[i] + gamma*(1-dones[i])*nextV
	}
	return backup, nil
}

// minQ returns the elementwise minimum of the twin critic outputs.
func minQ(q1, q2 []float64) []float64 {
	qMin := make([]float64, len(q1))
	for i := range q1 {
		qMin[i] = math.Min(q1[i], q2[i])
	}
	return qMin
}

// expectedLogProb returns the mean over the first n rows of
// Σ_a pi(a) logp(a), the negated per-row policy entropy. It feeds the
// Entropy diagnostic.
func expectedLogProb(probs, logp []float64, n, numActions int) float64 {
	total := 0.0
	for i := 0; i < n; i++ {
		for a := 0; a < numActions; a++ {
			j := i*numActions + a
			total += probs[j] * logp[j]
		}
	}
	return total / float64(n)
}

// meanLogProb returns the unweighted mean of logp over the first n
// rows and every action. The temperature loss averages the full log
// probability matrix without weighting by the policy, so for peaked
// policies it differs from expectedLogProb.
func meanLogProb(logp []float64, n, numActions int) float64 {
	total := 0.0
	for i := 0; i < n*numActions; i++ {
		total += logp[i]
	}
	return total / float64(n*numActions)
}

// meanOf returns the mean of the first n values of s.
func meanOf(s []float64, n int) float64 {
	total := 0.0
	for i := 0; i < n; i++ {
		total += s[i]
	}
	return total / float64(n)
}
