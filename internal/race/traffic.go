package race

import "math"

// TrafficBand maps the gap to the car ahead onto a speed multiplier. Below
// Threshold the factor falls linearly from Max toward Min as the gap closes.
type TrafficBand struct {
	Threshold float64 // radians
	Min       float64
	Max       float64
}

// DefaultTrafficBand is the wider band used for data generation.
func DefaultTrafficBand() TrafficBand {
	return TrafficBand{Threshold: 0.20, Min: 0.75, Max: 0.90}
}

// NarrowTrafficBand is the milder calibration of the interactive race.
func NarrowTrafficBand() TrafficBand {
	return TrafficBand{Threshold: 0.20, Min: 0.85, Max: 0.95}
}

// Factor returns the traffic multiplier for a forward gap in radians.
func (b TrafficBand) Factor(gap float64) float64 {
	if b.Threshold <= 0 || gap >= b.Threshold {
		return 1.0
	}
	if gap < 0 {
		gap = 0
	}
	return b.Min + (b.Max-b.Min)*gap/b.Threshold
}

// ForwardGap is the angular distance travelling forward from `from` to `to`,
// in [0, 2π).
func ForwardGap(from, to float64) float64 {
	return wrapAngle(to - from)
}

// NearestAhead returns the smallest strictly positive forward gap from car
// to any other racing car, or 2π when there is none.
func NearestAhead(car *Car, cars []*Car) float64 {
	gap := TwoPi
	for _, other := range cars {
		if other == car || other.InPit {
			continue
		}
		if d := ForwardGap(car.Angle, other.Angle); d > 0 && d < gap {
			gap = d
		}
	}
	return gap
}

// TrafficFactors computes every car's traffic multiplier from scratch. The
// result is indexed like cars.
func TrafficFactors(cars []*Car, band TrafficBand) []float64 {
	out := make([]float64, len(cars))
	for i, c := range cars {
		out[i] = band.Factor(NearestAhead(c, cars))
	}
	return out
}

// clamp bounds v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
