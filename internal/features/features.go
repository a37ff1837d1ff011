// Package features defines the per-lap snapshot of a car's racing situation
// and its canonical column order. The snapshot is the only contract shared by
// the simulator, the labelling oracle and the pit-stop network.
package features

import "fmt"

// Count is the number of features in a snapshot.
const Count = 9

// Column names in canonical order. Datasets, model bundles and network
// inputs all use this order.
const (
	TireWear        = "tire_wear"
	LapsSincePit    = "laps_since_pit"
	RecentPaceDrop  = "recent_pace_drop"
	GapAhead        = "gap_ahead"
	GapBehind       = "gap_behind"
	TrafficDensity  = "traffic_density"
	IsStuck         = "is_stuck"
	LapNorm         = "lap_norm"
	SafetyCarActive = "safety_car_active"
)

// Names lists the feature columns in canonical order.
var Names = [Count]string{
	TireWear,
	LapsSincePit,
	RecentPaceDrop,
	GapAhead,
	GapBehind,
	TrafficDensity,
	IsStuck,
	LapNorm,
	SafetyCarActive,
}

// Bounds on individual features.
const (
	MaxLapsSincePit = 50
	MaxPaceDrop     = 0.3
	FarGapSeconds   = 30.0 // no close car
)

// Vector is a snapshot flattened into canonical column order.
type Vector [Count]float64

// Snapshot is the 9-field summary of a car at a lap boundary.
type Snapshot struct {
	TireWear        float64 // [0,1]
	LapsSincePit    int     // [0,50]
	RecentPaceDrop  float64 // [0,0.3]
	GapAhead        float64 // seconds, [0,30]
	GapBehind       float64 // seconds, [0,30]
	TrafficDensity  float64 // [0,1]
	IsStuck         bool
	LapNorm         float64 // [0,1]
	SafetyCarActive bool
}

// Vector returns the snapshot in canonical column order.
func (s Snapshot) Vector() Vector {
	return Vector{
		s.TireWear,
		float64(s.LapsSincePit),
		s.RecentPaceDrop,
		s.GapAhead,
		s.GapBehind,
		s.TrafficDensity,
		boolToFloat(s.IsStuck),
		s.LapNorm,
		boolToFloat(s.SafetyCarActive),
	}
}

// FromVector rebuilds a snapshot from a canonical vector. Integer and flag
// columns are rounded, so a float-encoded dataset row round-trips.
func FromVector(v Vector) Snapshot {
	return Snapshot{
		TireWear:        v[0],
		LapsSincePit:    int(v[1] + 0.5),
		RecentPaceDrop:  v[2],
		GapAhead:        v[3],
		GapBehind:       v[4],
		TrafficDensity:  v[5],
		IsStuck:         v[6] >= 0.5,
		LapNorm:         v[7],
		SafetyCarActive: v[8] >= 0.5,
	}
}

// Slice returns the vector as a freshly allocated slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Count)
	copy(out, v[:])
	return out
}

// Index returns the canonical column index of name, or -1.
func Index(name string) int {
	for i, n := range Names {
		if n == name {
			return i
		}
	}
	return -1
}

// CheckNames verifies that names matches the canonical column order exactly.
func CheckNames(names []string) error {
	if len(names) != Count {
		return fmt.Errorf("expected %d feature names, got %d", Count, len(names))
	}
	for i, n := range names {
		if n != Names[i] {
			return fmt.Errorf("feature %d is %q, want %q", i, n, Names[i])
		}
	}
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
