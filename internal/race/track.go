package race

import (
	"fmt"
	"math"
)

// TwoPi is one full lap in angular units.
const TwoPi = 2 * math.Pi

const pitLanePolylineSteps = 40

// Point is a position in track coordinates.
type Point struct {
	X, Y float64
}

// TrackConfig describes an elliptical oval with one pit lane on its inside.
type TrackConfig struct {
	CX, CY        float64 // ellipse center
	RX, RY        float64 // outer semi-axes
	Width         float64 // track width
	PitEntry      float64 // radians
	PitExit       float64 // radians
	PitLaneOffset float64 // distance inside the inner boundary
}

// DefaultTrackConfig returns the standard oval geometry.
func DefaultTrackConfig() TrackConfig {
	return TrackConfig{
		CX:            600,
		CY:            400,
		RX:            400,
		RY:            250,
		Width:         100,
		PitEntry:      math.Pi * 0.30,
		PitExit:       math.Pi * 0.70,
		PitLaneOffset: 50,
	}
}

// Track is the immutable geometry of the oval. Build one with NewTrack.
type Track struct {
	CX, CY             float64
	RX, RY             float64
	Width              float64
	InnerRX, InnerRY   float64
	CenterRX, CenterRY float64
	PitEntry, PitExit  float64
	PitRX, PitRY       float64

	// PitPoints samples the pit-lane arc from entry to exit.
	PitPoints []Point
}

// NewTrack derives the inner, centerline and pit-lane ellipses from cfg.
func NewTrack(cfg TrackConfig) (*Track, error) {
	if cfg.RX <= 0 || cfg.RY <= 0 {
		return nil, fmt.Errorf("track radii must be positive, got %g x %g", cfg.RX, cfg.RY)
	}
	if cfg.Width <= 0 || cfg.Width >= math.Min(cfg.RX, cfg.RY) {
		return nil, fmt.Errorf("track width %g must be in (0, %g)", cfg.Width, math.Min(cfg.RX, cfg.RY))
	}
	if !(cfg.PitEntry >= 0 && cfg.PitEntry < cfg.PitExit && cfg.PitExit <= math.Pi) {
		return nil, fmt.Errorf("pit angles must satisfy 0 <= entry < exit <= pi, got entry=%g exit=%g", cfg.PitEntry, cfg.PitExit)
	}

	t := &Track{
		CX:       cfg.CX,
		CY:       cfg.CY,
		RX:       cfg.RX,
		RY:       cfg.RY,
		Width:    cfg.Width,
		InnerRX:  cfg.RX - cfg.Width,
		InnerRY:  cfg.RY - cfg.Width,
		PitEntry: cfg.PitEntry,
		PitExit:  cfg.PitExit,
	}
	t.CenterRX = (t.RX + t.InnerRX) / 2
	t.CenterRY = (t.RY + t.InnerRY) / 2
	t.PitRX = t.InnerRX - cfg.PitLaneOffset
	t.PitRY = t.InnerRY - cfg.PitLaneOffset
	if t.PitRX <= 0 || t.PitRY <= 0 {
		return nil, fmt.Errorf("pit lane offset %g leaves no room inside the inner boundary", cfg.PitLaneOffset)
	}

	t.PitPoints = make([]Point, 0, pitLanePolylineSteps+1)
	for i := 0; i <= pitLanePolylineSteps; i++ {
		f := float64(i) / pitLanePolylineSteps
		t.PitPoints = append(t.PitPoints, t.PitLanePoint(t.PitEntry+(t.PitExit-t.PitEntry)*f))
	}
	return t, nil
}

// MustNewTrack is NewTrack for known-good configurations.
func MustNewTrack(cfg TrackConfig) *Track {
	t, err := NewTrack(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// CenterlinePoint returns the racing-line position at angle.
func (t *Track) CenterlinePoint(angle float64) Point {
	return Point{
		X: t.CX + t.CenterRX*math.Cos(angle),
		Y: t.CY + t.CenterRY*math.Sin(angle),
	}
}

// PitLanePoint returns the pit-lane position at angle.
func (t *Track) PitLanePoint(angle float64) Point {
	return Point{
		X: t.CX + t.PitRX*math.Cos(angle),
		Y: t.CY + t.PitRY*math.Sin(angle),
	}
}

// InPitZone reports whether angle lies between pit entry and pit exit.
func (t *Track) InPitZone(angle float64) bool {
	a := wrapAngle(angle)
	return t.PitEntry <= a && a <= t.PitExit
}

// PitBox returns the angle of the pit box, midway along the pit lane.
func (t *Track) PitBox() float64 {
	return (t.PitEntry + t.PitExit) / 2
}

// wrapAngle maps a into [0, 2π).
func wrapAngle(a float64) float64 {
	a = math.Mod(a, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	if a >= TwoPi {
		a = 0
	}
	return a
}
