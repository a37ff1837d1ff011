package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/pitwall/internal/collect"
	"github.com/banshee-data/pitwall/internal/race"
	"github.com/banshee-data/pitwall/internal/train"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds the race, collection and training parameters. Every
// field is optional; the Get* methods supply defaults for omitted fields.
type TuningConfig struct {
	// Race params
	DT               *float64 `json:"dt,omitempty"`
	TotalLaps        *int     `json:"total_laps,omitempty"`
	MaxFrames        *int     `json:"max_frames,omitempty"`
	PitWearThreshold *float64 `json:"pit_wear_threshold,omitempty"` // <= 0 disables automatic stops
	BaseSpeed        *float64 `json:"base_speed,omitempty"`

	// Traffic params
	TrafficThreshold *float64 `json:"traffic_threshold,omitempty"` // radians
	TrafficFactorMin *float64 `json:"traffic_factor_min,omitempty"`
	TrafficFactorMax *float64 `json:"traffic_factor_max,omitempty"`

	// Safety car params
	SafetyCarTriggerChance *float64 `json:"safety_car_trigger_chance,omitempty"`
	SafetyCarDurationMin   *float64 `json:"safety_car_duration_min,omitempty"`
	SafetyCarDurationMax   *float64 `json:"safety_car_duration_max,omitempty"`
	SafetyCarCooldown      *float64 `json:"safety_car_cooldown,omitempty"`
	SafetyCarFactorMin     *float64 `json:"safety_car_factor_min,omitempty"`
	SafetyCarFactorMax     *float64 `json:"safety_car_factor_max,omitempty"`

	// Collection params
	Races       *int   `json:"races,omitempty"`
	Cars        *int   `json:"cars,omitempty"`
	GridSlots   *int   `json:"grid_slots,omitempty"`
	GridStride  *int   `json:"grid_stride,omitempty"`
	CollectSeed *int64 `json:"collect_seed,omitempty"`

	// Training params
	Epochs       *int     `json:"epochs,omitempty"`
	LearningRate *float64 `json:"learning_rate,omitempty"`
	BatchSize    *int     `json:"batch_size,omitempty"`
	ValRatio     *float64 `json:"val_ratio,omitempty"`
	TrainSeed    *int64   `json:"train_seed,omitempty"`
	Threshold    *float64 `json:"threshold,omitempty"`
	ReportEvery  *int     `json:"report_every,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file fall back to defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrEmpty loads path, or returns an empty config (all defaults) when
// path is empty.
func LoadOrEmpty(path string) (*TuningConfig, error) {
	if path == "" {
		return EmptyTuningConfig(), nil
	}
	return LoadTuningConfig(path)
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching parent
// directories so it works from package tests. Panics on failure.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/<tool>/ subpackages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *TuningConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"dt", c.DT},
		{"base_speed", c.BaseSpeed},
		{"traffic_threshold", c.TrafficThreshold},
		{"learning_rate", c.LearningRate},
	}
	for _, p := range positive {
		if p.v != nil && *p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %g", p.name, *p.v)
		}
	}

	counts := []struct {
		name string
		v    *int
	}{
		{"total_laps", c.TotalLaps},
		{"max_frames", c.MaxFrames},
		{"races", c.Races},
		{"cars", c.Cars},
		{"grid_slots", c.GridSlots},
		{"grid_stride", c.GridStride},
		{"epochs", c.Epochs},
		{"batch_size", c.BatchSize},
	}
	for _, p := range counts {
		if p.v != nil && *p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, *p.v)
		}
	}

	fractions := []struct {
		name string
		v    *float64
	}{
		{"pit_wear_threshold", c.PitWearThreshold},
		{"traffic_factor_min", c.TrafficFactorMin},
		{"traffic_factor_max", c.TrafficFactorMax},
		{"safety_car_trigger_chance", c.SafetyCarTriggerChance},
		{"safety_car_factor_min", c.SafetyCarFactorMin},
		{"safety_car_factor_max", c.SafetyCarFactorMax},
	}
	for _, p := range fractions {
		if p.v != nil && *p.v > 1 {
			return fmt.Errorf("%s must be at most 1, got %g", p.name, *p.v)
		}
	}
	for _, p := range fractions[1:] {
		if p.v != nil && *p.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %g", p.name, *p.v)
		}
	}

	if c.GetTrafficFactorMin() > c.GetTrafficFactorMax() {
		return fmt.Errorf("traffic_factor_min %g exceeds traffic_factor_max %g", c.GetTrafficFactorMin(), c.GetTrafficFactorMax())
	}
	if c.GetSafetyCarFactorMin() > c.GetSafetyCarFactorMax() {
		return fmt.Errorf("safety_car_factor_min %g exceeds safety_car_factor_max %g", c.GetSafetyCarFactorMin(), c.GetSafetyCarFactorMax())
	}
	if c.GetSafetyCarDurationMin() < 0 || c.GetSafetyCarDurationMin() > c.GetSafetyCarDurationMax() {
		return fmt.Errorf("safety car duration range [%g, %g] is invalid", c.GetSafetyCarDurationMin(), c.GetSafetyCarDurationMax())
	}
	if c.SafetyCarCooldown != nil && *c.SafetyCarCooldown < 0 {
		return fmt.Errorf("safety_car_cooldown must be non-negative, got %g", *c.SafetyCarCooldown)
	}
	if c.ValRatio != nil && (*c.ValRatio <= 0 || *c.ValRatio >= 1) {
		return fmt.Errorf("val_ratio must be between 0 and 1, got %g", *c.ValRatio)
	}
	if c.Threshold != nil && (*c.Threshold <= 0 || *c.Threshold >= 1) {
		return fmt.Errorf("threshold must be between 0 and 1, got %g", *c.Threshold)
	}
	return nil
}

// RaceConfig builds the simulator settings. Mode and Decider are left for
// the caller.
func (c *TuningConfig) RaceConfig() race.Config {
	cfg := race.DefaultConfig()
	cfg.DT = c.GetDT()
	cfg.TotalLaps = c.GetTotalLaps()
	cfg.MaxFrames = c.GetMaxFrames()
	cfg.PitWearThreshold = c.GetPitWearThreshold()
	cfg.Traffic = race.TrafficBand{
		Threshold: c.GetTrafficThreshold(),
		Min:       c.GetTrafficFactorMin(),
		Max:       c.GetTrafficFactorMax(),
	}
	cfg.SafetyCar = race.SafetyCarConfig{
		TriggerChance: c.GetSafetyCarTriggerChance(),
		DurationMin:   c.GetSafetyCarDurationMin(),
		DurationMax:   c.GetSafetyCarDurationMax(),
		Cooldown:      c.GetSafetyCarCooldown(),
		FactorMin:     c.GetSafetyCarFactorMin(),
		FactorMax:     c.GetSafetyCarFactorMax(),
	}
	return cfg
}

// CollectConfig builds the data-collection settings.
func (c *TuningConfig) CollectConfig() collect.Config {
	cfg := collect.DefaultConfig()
	cfg.Races = c.GetRaces()
	cfg.Cars = c.GetCars()
	cfg.GridSlots = c.GetGridSlots()
	cfg.GridStride = c.GetGridStride()
	cfg.BaseSpeed = c.GetBaseSpeed()
	cfg.Seed = c.GetCollectSeed()
	cfg.Race = c.RaceConfig()
	return cfg
}

// TrainConfig builds the training hyperparameters.
func (c *TuningConfig) TrainConfig() train.Config {
	return train.Config{
		Epochs:       c.GetEpochs(),
		LearningRate: c.GetLearningRate(),
		BatchSize:    c.GetBatchSize(),
		ValRatio:     c.GetValRatio(),
		Seed:         c.GetTrainSeed(),
		Threshold:    c.GetThreshold(),
		ReportEvery:  c.GetReportEvery(),
	}
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getInt64(p *int64, def int64) int64 {
	if p == nil {
		return def
	}
	return *p
}

// GetDT returns the tick length in seconds.
func (c *TuningConfig) GetDT() float64 { return getFloat(c.DT, 1.0/60.0) }

// GetTotalLaps returns the race distance in laps.
func (c *TuningConfig) GetTotalLaps() int { return getInt(c.TotalLaps, 50) }

// GetMaxFrames returns the frame ceiling per race.
func (c *TuningConfig) GetMaxFrames() int { return getInt(c.MaxFrames, 200000) }

// GetPitWearThreshold returns the wear at which cars request a stop.
func (c *TuningConfig) GetPitWearThreshold() float64 { return getFloat(c.PitWearThreshold, 0.75) }

// GetBaseSpeed returns the base angular speed in rad/s.
func (c *TuningConfig) GetBaseSpeed() float64 { return getFloat(c.BaseSpeed, 1.0) }

func (c *TuningConfig) GetTrafficThreshold() float64 {
	return getFloat(c.TrafficThreshold, race.DefaultTrafficBand().Threshold)
}

func (c *TuningConfig) GetTrafficFactorMin() float64 {
	return getFloat(c.TrafficFactorMin, race.DefaultTrafficBand().Min)
}

func (c *TuningConfig) GetTrafficFactorMax() float64 {
	return getFloat(c.TrafficFactorMax, race.DefaultTrafficBand().Max)
}

func (c *TuningConfig) GetSafetyCarTriggerChance() float64 {
	return getFloat(c.SafetyCarTriggerChance, race.DefaultSafetyCarConfig().TriggerChance)
}

func (c *TuningConfig) GetSafetyCarDurationMin() float64 {
	return getFloat(c.SafetyCarDurationMin, race.DefaultSafetyCarConfig().DurationMin)
}

func (c *TuningConfig) GetSafetyCarDurationMax() float64 {
	return getFloat(c.SafetyCarDurationMax, race.DefaultSafetyCarConfig().DurationMax)
}

func (c *TuningConfig) GetSafetyCarCooldown() float64 {
	return getFloat(c.SafetyCarCooldown, race.DefaultSafetyCarConfig().Cooldown)
}

func (c *TuningConfig) GetSafetyCarFactorMin() float64 {
	return getFloat(c.SafetyCarFactorMin, race.DefaultSafetyCarConfig().FactorMin)
}

func (c *TuningConfig) GetSafetyCarFactorMax() float64 {
	return getFloat(c.SafetyCarFactorMax, race.DefaultSafetyCarConfig().FactorMax)
}

// GetRaces returns the number of races per collection run.
func (c *TuningConfig) GetRaces() int { return getInt(c.Races, 100) }

// GetCars returns the number of cars per collected race.
func (c *TuningConfig) GetCars() int { return getInt(c.Cars, 5) }

func (c *TuningConfig) GetGridSlots() int  { return getInt(c.GridSlots, 5) }
func (c *TuningConfig) GetGridStride() int { return getInt(c.GridStride, 1) }

func (c *TuningConfig) GetCollectSeed() int64 { return getInt64(c.CollectSeed, 1) }

func (c *TuningConfig) GetEpochs() int { return getInt(c.Epochs, 150) }

func (c *TuningConfig) GetLearningRate() float64 { return getFloat(c.LearningRate, 0.01) }

func (c *TuningConfig) GetBatchSize() int { return getInt(c.BatchSize, 64) }

func (c *TuningConfig) GetValRatio() float64 { return getFloat(c.ValRatio, 0.2) }

func (c *TuningConfig) GetTrainSeed() int64 { return getInt64(c.TrainSeed, 42) }

// GetThreshold returns the pit probability threshold.
func (c *TuningConfig) GetThreshold() float64 { return getFloat(c.Threshold, 0.5) }

// GetReportEvery returns the training log interval in epochs.
func (c *TuningConfig) GetReportEvery() int { return getInt(c.ReportEvery, 10) }
