// Package oracle labels feature snapshots with a fixed rule cascade. It
// generates ground truth for supervised training and is never consulted at
// inference time.
package oracle

import (
	"github.com/banshee-data/pitwall/internal/features"
	"github.com/banshee-data/pitwall/internal/race"
)

// Labels.
const (
	NoPit = 0
	Pit   = 1
)

// Rule identifies which rule of the cascade fired.
type Rule string

const (
	RuleNone           Rule = ""
	RuleSafetyCar      Rule = "safety_car"       // cheap stop under the safety car
	RulePaceLoss       Rule = "pace_loss"        // worn tires already costing lap time
	RuleStuckInTraffic Rule = "stuck_in_traffic" // worn tires and no way past
)

// Rules holds the thresholds of the cascade.
type Rules struct {
	SafetyCarWear float64

	PaceLossWear float64
	PaceLossDrop float64

	TrafficWear     float64
	TrafficDensity  float64
	TrafficGapAhead float64 // seconds
}

// DefaultRules returns the thresholds used to label the training data.
func DefaultRules() Rules {
	return Rules{
		SafetyCarWear:   0.45,
		PaceLossWear:    0.75,
		PaceLossDrop:    0.08,
		TrafficWear:     0.65,
		TrafficDensity:  0.6,
		TrafficGapAhead: 10,
	}
}

// Evaluate runs the cascade in priority order and returns the first rule
// that matches, or RuleNone.
func (r Rules) Evaluate(s features.Snapshot) Rule {
	switch {
	case s.SafetyCarActive && s.TireWear > r.SafetyCarWear:
		return RuleSafetyCar
	case s.TireWear > r.PaceLossWear && s.RecentPaceDrop > r.PaceLossDrop:
		return RulePaceLoss
	case s.TireWear > r.TrafficWear && s.TrafficDensity > r.TrafficDensity && s.GapAhead < r.TrafficGapAhead:
		return RuleStuckInTraffic
	}
	return RuleNone
}

// Label returns Pit when any rule matches.
func (r Rules) Label(s features.Snapshot) int {
	if r.Evaluate(s) != RuleNone {
		return Pit
	}
	return NoPit
}

// Decide implements race.Decider so the oracle can label laps during
// collection.
func (r Rules) Decide(s features.Snapshot) race.Decision {
	if r.Label(s) == Pit {
		return race.Decision{Pit: true, Probability: 1}
	}
	return race.Decision{}
}

// Label labels s with the default rules.
func Label(s features.Snapshot) int {
	return DefaultRules().Label(s)
}
