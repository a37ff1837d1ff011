package race

import "math/rand"

// SafetyCarConfig holds the safety-car timing and slowdown ranges.
type SafetyCarConfig struct {
	TriggerChance float64 // per tick, once the cooldown has expired
	DurationMin   float64 // seconds
	DurationMax   float64
	Cooldown      float64 // seconds after a deployment ends
	FactorMin     float64
	FactorMax     float64
}

// DefaultSafetyCarConfig returns the standard safety-car calibration.
func DefaultSafetyCarConfig() SafetyCarConfig {
	return SafetyCarConfig{
		TriggerChance: 0.003,
		DurationMin:   4.0,
		DurationMax:   8.0,
		Cooldown:      15.0,
		FactorMin:     0.60,
		FactorMax:     0.80,
	}
}

// SafetyCar is the race-wide safety-car state. Factor is 1.0 whenever the
// safety car is not deployed.
type SafetyCar struct {
	cfg SafetyCarConfig
	rng *rand.Rand

	Active      bool
	Remaining   float64
	Cooldown    float64
	Factor      float64
	Deployments int
}

// NewSafetyCar creates an inactive safety car drawing from rng.
func NewSafetyCar(cfg SafetyCarConfig, rng *rand.Rand) *SafetyCar {
	return &SafetyCar{cfg: cfg, rng: rng, Factor: 1.0}
}

// Update advances the safety car by dt seconds.
func (s *SafetyCar) Update(dt float64) {
	if s.Active {
		s.Remaining -= dt
		if s.Remaining <= 0 {
			s.Active = false
			s.Remaining = 0
			s.Cooldown = s.cfg.Cooldown
			s.Factor = 1.0
		}
		return
	}

	s.Cooldown -= dt
	if s.Cooldown > 0 {
		return
	}
	s.Cooldown = 0
	if s.rng.Float64() >= s.cfg.TriggerChance {
		return
	}

	s.Active = true
	s.Deployments++
	s.Remaining = uniform(s.rng, s.cfg.DurationMin, s.cfg.DurationMax)
	s.Factor = uniform(s.rng, s.cfg.FactorMin, s.cfg.FactorMax)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}
