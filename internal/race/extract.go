package race

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/pitwall/internal/features"
)

// StuckThreshold is how long a car must sit in traffic to count as stuck.
const StuckThreshold = 2.0 // seconds

// GapToSeconds converts an angular gap into a time gap at the given angular
// speed, bounded to [0, 30]. A non-positive speed yields the far sentinel.
func GapToSeconds(gap, angularSpeed float64) float64 {
	if angularSpeed <= 0 || math.IsNaN(angularSpeed) {
		return features.FarGapSeconds
	}
	return clamp(gap/angularSpeed, 0, features.FarGapSeconds)
}

// PaceDrop is the relative spread (max-min)/max of up to the last four lap
// speeds, clipped to [0, 0.3]. Fewer than two samples yield 0.
func PaceDrop(lapSpeeds []float64) float64 {
	if len(lapSpeeds) < 2 {
		return 0
	}
	if len(lapSpeeds) > lapSpeedWindow {
		lapSpeeds = lapSpeeds[len(lapSpeeds)-lapSpeedWindow:]
	}
	hi := floats.Max(lapSpeeds)
	if hi <= 0 {
		return 0
	}
	return clamp((hi-floats.Min(lapSpeeds))/hi, 0, features.MaxPaceDrop)
}

// Extract builds the feature snapshot for car at a lap boundary. Cars in the
// pit lane are ignored for the gap features.
func Extract(car *Car, cars []*Car, safetyCarActive bool, totalLaps int) features.Snapshot {
	s := features.Snapshot{
		TireWear:        clamp(car.TireWear, 0, 1),
		LapsSincePit:    car.LapsSincePit,
		RecentPaceDrop:  PaceDrop(car.lapSpeeds),
		GapAhead:        features.FarGapSeconds,
		GapBehind:       features.FarGapSeconds,
		TrafficDensity:  clamp(1-car.TrafficFactor, 0, 1),
		IsStuck:         car.SecondsInTraffic >= StuckThreshold,
		SafetyCarActive: safetyCarActive,
	}
	if s.LapsSincePit < 0 {
		s.LapsSincePit = 0
	} else if s.LapsSincePit > features.MaxLapsSincePit {
		s.LapsSincePit = features.MaxLapsSincePit
	}
	if totalLaps > 0 {
		s.LapNorm = clamp(float64(car.LapCount)/float64(totalLaps), 0, 1)
	}

	speed := car.AngularSpeed()
	for _, other := range cars {
		if other == car || other.InPit {
			continue
		}
		ahead := ForwardGap(car.Angle, other.Angle)
		if ahead > 0 && ahead < math.Pi {
			s.GapAhead = math.Min(s.GapAhead, GapToSeconds(ahead, speed))
		}
		if behind := TwoPi - ahead; behind > 0 && behind < math.Pi {
			s.GapBehind = math.Min(s.GapBehind, GapToSeconds(behind, speed))
		}
	}
	return s
}
