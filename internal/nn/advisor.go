package nn

import (
	"github.com/banshee-data/pitwall/internal/features"
	"github.com/banshee-data/pitwall/internal/race"
)

// DefaultThreshold is the pit probability at or above which the advisor
// recommends a stop.
const DefaultThreshold = 0.5

// Advisor turns a trained bundle into a race.Decider.
type Advisor struct {
	Bundle    *Bundle
	Threshold float64
}

// NewAdvisor returns an advisor using threshold, or DefaultThreshold when
// threshold is outside (0, 1).
func NewAdvisor(b *Bundle, threshold float64) *Advisor {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Advisor{Bundle: b, Threshold: threshold}
}

// Decide implements race.Decider.
func (a *Advisor) Decide(s features.Snapshot) race.Decision {
	p := a.Bundle.Probability(s)
	return race.Decision{Pit: p >= a.Threshold, Probability: p}
}
