package race

import (
	"fmt"
	"strings"
)

// Style is a driving style. It fixes the car's tire wear rate.
type Style string

const (
	StyleAggressive   Style = "aggressive"
	StyleNormal       Style = "normal"
	StyleConservative Style = "conservative"
)

// Styles lists every driving style.
var Styles = []Style{StyleAggressive, StyleNormal, StyleConservative}

// WearRate returns tire wear per second of racing.
func (s Style) WearRate() float64 {
	switch s {
	case StyleAggressive:
		return 0.009
	case StyleConservative:
		return 0.004
	default:
		return 0.006
	}
}

// ParseStyle converts a style name into a Style.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleAggressive:
		return StyleAggressive, nil
	case StyleNormal:
		return StyleNormal, nil
	case StyleConservative:
		return StyleConservative, nil
	}
	return "", fmt.Errorf("unknown driving style %q", s)
}

// ParseStyles parses a comma-separated list of style names.
func ParseStyles(list string) ([]Style, error) {
	var out []Style
	for _, name := range strings.Split(list, ",") {
		s, err := ParseStyle(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Phase is the pit-stop state of a car.
type Phase string

const (
	PhaseRacing  Phase = "racing"   // on the main track
	PhasePitIn   Phase = "pit_in"   // driving from pit entry to the box
	PhasePitStop Phase = "pit_stop" // stationary in the box, changing tires
	PhasePitOut  Phase = "pit_out"  // driving from the box to pit exit
)

const (
	// PitStopDuration is the time stationary in the pit box, in seconds.
	PitStopDuration = 3.0
	// PitLaneSpeedFactor scales base speed in the pit lane.
	PitLaneSpeedFactor = 0.35
	// TireSpeedPenalty is the fraction of speed lost at full tire wear.
	TireSpeedPenalty = 0.30

	lapSpeedWindow = 4
)

// Conditions are the per-tick race-wide modifiers handed to a car.
type Conditions struct {
	TrafficFactor float64
	SCFactor      float64
}

// Car is one entrant: angular physics plus the pit-stop state machine.
// Only the race driver mutates a Car.
type Car struct {
	ID        int
	Style     Style
	Angle     float64 // [0, 2π)
	BaseSpeed float64 // rad/s
	Speed     float64 // rad/s after modifiers, this tick

	TireWear     float64 // [0,1]
	LapsSincePit int
	LapCount     int

	TrafficFactor float64
	SCFactor      float64

	// SecondsInTraffic counts continuous racing time with a traffic penalty.
	SecondsInTraffic float64

	Phase    Phase
	WantsPit bool
	InPit    bool
	PitTimer float64
	PitStops int // completed tire changes

	// lapSpeeds holds the average racing speed of recent laps. Distance
	// and time spent in the pit lane are not counted.
	lapSpeeds   []float64
	lapDistance float64
	lapTime     float64
}

// NewCar places a car on the racing line at angle.
func NewCar(id int, angle, baseSpeed float64, style Style) *Car {
	return &Car{
		ID:            id,
		Style:         style,
		Angle:         wrapAngle(angle),
		BaseSpeed:     baseSpeed,
		Speed:         baseSpeed,
		TrafficFactor: 1.0,
		SCFactor:      1.0,
		Phase:         PhaseRacing,
		lapSpeeds:     make([]float64, 0, lapSpeedWindow),
	}
}

// AngularSpeed is the racing speed implied by the car's current wear and
// modifiers.
func (c *Car) AngularSpeed() float64 {
	return c.BaseSpeed * (1 - TireSpeedPenalty*c.TireWear) * c.TrafficFactor * c.SCFactor
}

// LapSpeeds returns the average angular speeds of the most recent laps,
// oldest first.
func (c *Car) LapSpeeds() []float64 {
	out := make([]float64, len(c.lapSpeeds))
	copy(out, c.lapSpeeds)
	return out
}

// RequestPit flags the car to enter the pit lane at the next pit entry. It
// returns false when the car is already in the pit or already flagged.
func (c *Car) RequestPit() bool {
	if c.InPit || c.WantsPit {
		return false
	}
	c.WantsPit = true
	return true
}

// Position returns the car's location on the main track or the pit lane.
func (c *Car) Position(t *Track) Point {
	switch c.Phase {
	case PhasePitIn, PhasePitOut:
		return t.PitLanePoint(c.Angle)
	case PhasePitStop:
		return t.PitLanePoint(t.PitBox())
	default:
		return t.CenterlinePoint(c.Angle)
	}
}

// Update advances the car by dt seconds and reports whether it completed a
// lap during this tick.
func (c *Car) Update(dt float64, t *Track, cond Conditions) bool {
	c.TrafficFactor = cond.TrafficFactor
	c.SCFactor = cond.SCFactor

	switch c.Phase {
	case PhaseRacing:
		return c.updateRacing(dt, t)
	case PhasePitIn:
		c.updatePitIn(dt, t)
	case PhasePitStop:
		c.updatePitStop(dt)
	case PhasePitOut:
		c.updatePitOut(dt, t)
	}
	return false
}

func (c *Car) updateRacing(dt float64, t *Track) bool {
	c.lapTime += dt
	c.TireWear += c.Style.WearRate() * dt
	if c.TireWear > 1.0 {
		c.TireWear = 1.0
	}

	if c.TrafficFactor < 1.0 {
		c.SecondsInTraffic += dt
	} else {
		c.SecondsInTraffic = 0
	}

	c.Speed = c.AngularSpeed()
	step := c.Speed * dt
	if step < 0 {
		step = 0
	}
	old := c.Angle
	unwrapped := old + step
	c.Angle = wrapAngle(unwrapped)
	c.lapDistance += step

	if unwrapped >= TwoPi {
		c.completeLap()
		return true
	}

	if c.WantsPit && old < t.PitEntry && t.PitEntry <= c.Angle {
		c.Phase = PhasePitIn
		c.InPit = true
		c.WantsPit = false
		c.SecondsInTraffic = 0
	}
	return false
}

func (c *Car) updatePitIn(dt float64, t *Track) {
	c.Speed = c.BaseSpeed * PitLaneSpeedFactor
	c.advance(c.Speed * dt)

	if box := t.PitBox(); c.Angle >= box {
		c.Angle = box
		c.Speed = 0
		c.Phase = PhasePitStop
		c.PitTimer = PitStopDuration
	}
}

func (c *Car) updatePitStop(dt float64) {
	c.Speed = 0
	c.PitTimer -= dt
	if c.PitTimer <= 0 {
		c.PitTimer = 0
		c.TireWear = 0
		c.LapsSincePit = 0
		c.PitStops++
		c.Phase = PhasePitOut
	}
}

func (c *Car) updatePitOut(dt float64, t *Track) {
	c.Speed = c.BaseSpeed * PitLaneSpeedFactor
	c.advance(c.Speed * dt)

	if c.Angle >= t.PitExit {
		c.Angle = t.PitExit
		c.InPit = false
		c.Phase = PhaseRacing
	}
}

// advance moves along the pit lane. The lane never spans the start line.
// Pit-lane travel is left out of the lap speed sample.
func (c *Car) advance(step float64) {
	c.Angle = wrapAngle(c.Angle + step)
}

func (c *Car) completeLap() {
	c.LapCount++
	c.LapsSincePit++

	if c.lapTime > 0 {
		if len(c.lapSpeeds) == lapSpeedWindow {
			copy(c.lapSpeeds, c.lapSpeeds[1:])
			c.lapSpeeds = c.lapSpeeds[:lapSpeedWindow-1]
		}
		c.lapSpeeds = append(c.lapSpeeds, c.lapDistance/c.lapTime)
	}
	c.lapDistance = 0
	c.lapTime = 0
}
