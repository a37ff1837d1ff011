// Package race is the fixed-timestep oval race simulator: track geometry,
// per-car physics with the pit-stop state machine, traffic and safety-car
// modifiers, and the per-lap feature extractor.
//
// A Race is single-threaded. Each tick updates the safety car, recomputes
// every traffic factor, then updates the cars in creation order.
package race

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/banshee-data/pitwall/internal/features"
	"github.com/banshee-data/pitwall/internal/monitoring"
)

// Mode selects what lap-completion decisions are used for.
type Mode int

const (
	// ModeCollect records decisions as labels; they never steer the cars.
	ModeCollect Mode = iota
	// ModeAdvise applies pit decisions to the cars.
	ModeAdvise
)

func (m Mode) String() string {
	switch m {
	case ModeCollect:
		return "collect"
	case ModeAdvise:
		return "advise"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Decision is a pit recommendation for one snapshot.
type Decision struct {
	Pit         bool
	Probability float64 // 0 or 1 for rule-based deciders
}

// Decider maps a lap snapshot to a pit decision.
type Decider interface {
	Decide(s features.Snapshot) Decision
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(s features.Snapshot) Decision

// Decide calls f(s).
func (f DeciderFunc) Decide(s features.Snapshot) Decision { return f(s) }

// Config holds the race parameters.
type Config struct {
	DT               float64 // seconds per tick
	TotalLaps        int
	MaxFrames        int
	PitWearThreshold float64 // <= 0 disables automatic wear-based pit requests
	Traffic          TrafficBand
	SafetyCar        SafetyCarConfig
	Mode             Mode
	Decider          Decider
}

// DefaultConfig returns the data-generation race settings.
func DefaultConfig() Config {
	return Config{
		DT:               1.0 / 60.0,
		TotalLaps:        50,
		MaxFrames:        200000,
		PitWearThreshold: 0.75,
		Traffic:          DefaultTrafficBand(),
		SafetyCar:        DefaultSafetyCarConfig(),
		Mode:             ModeCollect,
	}
}

// Entry is a car on the starting grid.
type Entry struct {
	Angle     float64
	BaseSpeed float64
	Style     Style
}

// EvenGrid spaces one car per style evenly around the oval.
func EvenGrid(styles []Style, baseSpeed float64) []Entry {
	return SpacedGrid(styles, baseSpeed, len(styles), 1)
}

// SpacedGrid places car i at slot i*stride of a grid with `slots` evenly
// spaced positions.
func SpacedGrid(styles []Style, baseSpeed float64, slots, stride int) []Entry {
	if slots <= 0 {
		slots = 1
	}
	spacing := TwoPi / float64(slots)
	out := make([]Entry, len(styles))
	for i, s := range styles {
		out[i] = Entry{Angle: spacing * float64(i*stride), BaseSpeed: baseSpeed, Style: s}
	}
	return out
}

// LapEvent is emitted once per car per completed lap, up to TotalLaps.
type LapEvent struct {
	Frame    int
	Time     float64
	CarID    int
	Style    Style
	Lap      int
	Snapshot features.Snapshot
	Decision Decision
	// Requested reports whether the decision raised a pit request.
	Requested bool
}

// Result summarises a finished race.
type Result struct {
	Frames               int
	Truncated            bool // MaxFrames reached before every car finished
	SafetyCarDeployments int
	Events               []LapEvent
}

// Race owns the cars and race-wide state for one simulation.
type Race struct {
	cfg       Config
	track     *Track
	Cars      []*Car
	SafetyCar *SafetyCar
	Frame     int

	// OnLap, if set, is called for every lap event as it happens.
	OnLap func(LapEvent)

	events []LapEvent
}

// New builds a race. rng drives the safety car.
func New(cfg Config, track *Track, grid []Entry, rng *rand.Rand) (*Race, error) {
	if track == nil {
		return nil, errors.New("race requires a track")
	}
	if rng == nil {
		return nil, errors.New("race requires a random source")
	}
	if len(grid) == 0 {
		return nil, errors.New("race requires at least one car")
	}
	if cfg.DT <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %g", cfg.DT)
	}
	if cfg.TotalLaps <= 0 {
		return nil, fmt.Errorf("total laps must be positive, got %d", cfg.TotalLaps)
	}
	if cfg.MaxFrames <= 0 {
		return nil, fmt.Errorf("max frames must be positive, got %d", cfg.MaxFrames)
	}

	cars := make([]*Car, len(grid))
	for i, e := range grid {
		cars[i] = NewCar(i+1, e.Angle, e.BaseSpeed, e.Style)
	}
	return &Race{
		cfg:       cfg,
		track:     track,
		Cars:      cars,
		SafetyCar: NewSafetyCar(cfg.SafetyCar, rng),
	}, nil
}

// Track returns the race's track.
func (r *Race) Track() *Track { return r.track }

// Config returns the race's configuration.
func (r *Race) Config() Config { return r.cfg }

// Done reports whether every car has completed the race distance.
func (r *Race) Done() bool {
	for _, c := range r.Cars {
		if c.LapCount < r.cfg.TotalLaps {
			return false
		}
	}
	return true
}

// Step advances the race by one tick and returns the lap events it produced.
func (r *Race) Step() []LapEvent {
	dt := r.cfg.DT
	r.SafetyCar.Update(dt)
	traffic := TrafficFactors(r.Cars, r.cfg.Traffic)

	var out []LapEvent
	for i, c := range r.Cars {
		if r.cfg.PitWearThreshold > 0 && c.TireWear >= r.cfg.PitWearThreshold {
			c.RequestPit()
		}

		cond := Conditions{TrafficFactor: traffic[i], SCFactor: r.SafetyCar.Factor}
		if !c.Update(dt, r.track, cond) || c.LapCount > r.cfg.TotalLaps {
			continue
		}

		ev := LapEvent{
			Frame:    r.Frame,
			Time:     float64(r.Frame+1) * dt,
			CarID:    c.ID,
			Style:    c.Style,
			Lap:      c.LapCount,
			Snapshot: Extract(c, r.Cars, r.SafetyCar.Active, r.cfg.TotalLaps),
		}
		if r.cfg.Decider != nil {
			ev.Decision = r.cfg.Decider.Decide(ev.Snapshot)
			if r.cfg.Mode == ModeAdvise && ev.Decision.Pit {
				ev.Requested = c.RequestPit()
			}
		}
		out = append(out, ev)
		if r.OnLap != nil {
			r.OnLap(ev)
		}
	}
	r.Frame++
	r.events = append(r.events, out...)
	return out
}

// Run steps the race until every car finishes or MaxFrames ticks elapse.
// Hitting the frame ceiling is not an error; the events so far are valid.
func (r *Race) Run() Result {
	for !r.Done() && r.Frame < r.cfg.MaxFrames {
		r.Step()
	}

	res := Result{
		Frames:               r.Frame,
		Truncated:            !r.Done(),
		SafetyCarDeployments: r.SafetyCar.Deployments,
		Events:               r.events,
	}
	if res.Truncated {
		monitoring.Logf("race stopped at frame ceiling %d before all cars finished %d laps", r.cfg.MaxFrames, r.cfg.TotalLaps)
	}
	return res
}
