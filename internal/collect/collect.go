// Package collect runs batches of headless races and turns every completed
// lap into an oracle-labelled dataset row.
package collect

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/banshee-data/pitwall/internal/dataset"
	"github.com/banshee-data/pitwall/internal/monitoring"
	"github.com/banshee-data/pitwall/internal/oracle"
	"github.com/banshee-data/pitwall/internal/race"
)

var logf = monitoring.Prefixed("[collect] ")

// Config controls a collection run.
type Config struct {
	Races int
	Cars  int
	// GridSlots is the number of evenly spaced grid positions; car i starts
	// at slot i*GridStride.
	GridSlots  int
	GridStride int
	BaseSpeed  float64
	// Styles, when set, fixes the style of each car in order. Otherwise
	// every car draws a random style per race.
	Styles        []race.Style
	Seed          int64
	ProgressEvery int // log every N races; <= 0 disables

	Race  race.Config
	Track race.TrackConfig
	Rules oracle.Rules
}

// DefaultConfig returns the data-generation settings: 100 races of five
// evenly spaced cars with random styles.
func DefaultConfig() Config {
	return Config{
		Races:         100,
		Cars:          5,
		GridSlots:     5,
		GridStride:    1,
		BaseSpeed:     1.0,
		Seed:          1,
		ProgressEvery: 20,
		Race:          race.DefaultConfig(),
		Track:         race.DefaultTrackConfig(),
		Rules:         oracle.DefaultRules(),
	}
}

// Validate checks the collection parameters that race.New does not.
func (c Config) Validate() error {
	if c.Races <= 0 {
		return fmt.Errorf("races must be positive, got %d", c.Races)
	}
	if c.Cars <= 0 {
		return fmt.Errorf("cars must be positive, got %d", c.Cars)
	}
	if len(c.Styles) > 0 && len(c.Styles) != c.Cars {
		return fmt.Errorf("got %d styles for %d cars", len(c.Styles), c.Cars)
	}
	if c.GridSlots <= 0 || c.GridStride <= 0 {
		return fmt.Errorf("grid slots and stride must be positive, got %d and %d", c.GridSlots, c.GridStride)
	}
	if c.BaseSpeed <= 0 {
		return fmt.Errorf("base speed must be positive, got %g", c.BaseSpeed)
	}
	return nil
}

// RaceRecord is the outcome of one race in a collection run.
type RaceRecord struct {
	ID     string
	Index  int
	Seed   int64
	Grid   []race.Entry
	Result race.Result
	Rows   []dataset.Row
}

// PitRatio is the fraction of this race's rows labelled as pit.
func (r *RaceRecord) PitRatio() float64 { return dataset.PitRatio(r.Rows) }

// Summary aggregates a collection run.
type Summary struct {
	Races                int
	Rows                 int
	PitRows              int
	Truncated            int
	SafetyCarDeployments int
}

// PitRatio is the fraction of all rows labelled as pit.
func (s Summary) PitRatio() float64 {
	if s.Rows == 0 {
		return 0
	}
	return float64(s.PitRows) / float64(s.Rows)
}

// Collector runs races and labels their laps.
type Collector struct {
	cfg   Config
	track *race.Track
	rng   *rand.Rand

	// OnRace, if set, receives every finished race before the next starts.
	OnRace func(*RaceRecord) error
}

// New validates cfg and builds the shared track.
func New(cfg Config) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	track, err := race.NewTrack(cfg.Track)
	if err != nil {
		return nil, fmt.Errorf("invalid track: %w", err)
	}
	cfg.Race.Mode = race.ModeCollect
	cfg.Race.Decider = cfg.Rules
	return &Collector{cfg: cfg, track: track, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

// Grid draws the starting grid for the next race.
func (c *Collector) Grid() []race.Entry {
	styles := c.cfg.Styles
	if len(styles) == 0 {
		styles = make([]race.Style, c.cfg.Cars)
		for i := range styles {
			styles[i] = race.Styles[c.rng.Intn(len(race.Styles))]
		}
	}
	return race.SpacedGrid(styles, c.cfg.BaseSpeed, c.cfg.GridSlots, c.cfg.GridStride)
}

// RunRace simulates one race and labels every lap.
func (c *Collector) RunRace(index int) (*RaceRecord, error) {
	grid := c.Grid()
	seed := c.rng.Int63()

	r, err := race.New(c.cfg.Race, c.track, grid, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	res := r.Run()

	rec := &RaceRecord{
		ID:     uuid.New().String(),
		Index:  index,
		Seed:   seed,
		Grid:   grid,
		Result: res,
		Rows:   make([]dataset.Row, 0, len(res.Events)),
	}
	for _, ev := range res.Events {
		row := dataset.Row{Features: ev.Snapshot.Vector()}
		if ev.Decision.Pit {
			row.Label = oracle.Pit
		}
		rec.Rows = append(rec.Rows, row)
	}
	return rec, nil
}

// Run simulates cfg.Races races and returns every labelled row. ctx is
// checked between races.
func (c *Collector) Run(ctx context.Context) ([]dataset.Row, Summary, error) {
	var (
		rows []dataset.Row
		sum  Summary
	)
	for i := 0; i < c.cfg.Races; i++ {
		if err := ctx.Err(); err != nil {
			return rows, sum, err
		}

		rec, err := c.RunRace(i)
		if err != nil {
			return rows, sum, fmt.Errorf("race %d: %w", i+1, err)
		}
		rows = append(rows, rec.Rows...)
		sum.Races++
		sum.Rows += len(rec.Rows)
		for _, r := range rec.Rows {
			sum.PitRows += r.Label
		}
		sum.SafetyCarDeployments += rec.Result.SafetyCarDeployments
		if rec.Result.Truncated {
			sum.Truncated++
		}

		if c.OnRace != nil {
			if err := c.OnRace(rec); err != nil {
				return rows, sum, fmt.Errorf("race %d: %w", i+1, err)
			}
		}
		if every := c.cfg.ProgressEvery; every > 0 && (i+1)%every == 0 {
			logf("race %d/%d done, %d rows so far", i+1, c.cfg.Races, len(rows))
		}
	}
	return rows, sum, nil
}
