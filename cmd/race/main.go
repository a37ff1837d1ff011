// Command race runs a headless race in advise mode. A trained bundle decides
// pit stops at every lap boundary, and one status line is printed per car
// per lap. Without a bundle only the tire wear threshold sends cars in.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/pitwall/internal/config"
	"github.com/banshee-data/pitwall/internal/fsutil"
	"github.com/banshee-data/pitwall/internal/nn"
	"github.com/banshee-data/pitwall/internal/race"
	"github.com/banshee-data/pitwall/internal/report"
	"github.com/banshee-data/pitwall/internal/security"
	"github.com/banshee-data/pitwall/internal/version"
)

type options struct {
	configPath string
	bundle     string
	styles     string
	laps       int
	seed       int64
	threshold  float64
	traffic    string
	htmlDir    string
	title      string
	quiet      bool
	showVer    bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.configPath, "config", "", "Tuning config JSON (defaults when empty)")
	fs.StringVar(&o.bundle, "bundle", "", "Model bundle (empty: only wear-threshold stops)")
	fs.StringVar(&o.styles, "styles", "aggressive,normal,conservative", "Comma-separated driving styles, one per car")
	fs.IntVar(&o.laps, "laps", 0, "Race distance in laps (0 uses config)")
	fs.Int64Var(&o.seed, "seed", 1, "Safety car seed")
	fs.Float64Var(&o.threshold, "threshold", 0, "Pit probability threshold (0 uses config)")
	fs.StringVar(&o.traffic, "traffic", "narrow", "Traffic band: narrow, wide or config")
	fs.StringVar(&o.htmlDir, "html", "", "Directory for an HTML lap chart (empty to skip)")
	fs.StringVar(&o.title, "title", "Pitwall race", "Chart title")
	fs.BoolVar(&o.quiet, "quiet", false, "Only print the race summary")
	fs.BoolVar(&o.showVer, "version", false, "Print version and exit")
	err := fs.Parse(args)
	return o, err
}

func buildRace(o options, fsys fsutil.FileSystem) (*race.Race, error) {
	tuning, err := config.LoadOrEmpty(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := tuning.RaceConfig()
	cfg.Mode = race.ModeAdvise
	if o.laps > 0 {
		cfg.TotalLaps = o.laps
	}
	switch o.traffic {
	case "narrow":
		cfg.Traffic = race.NarrowTrafficBand()
	case "wide":
		cfg.Traffic = race.DefaultTrafficBand()
	case "config":
	default:
		return nil, fmt.Errorf("unknown traffic band %q", o.traffic)
	}

	threshold := tuning.GetThreshold()
	if o.threshold > 0 {
		threshold = o.threshold
	}
	if o.bundle != "" {
		b, err := nn.LoadBundle(fsys, o.bundle)
		if err != nil {
			return nil, err
		}
		cfg.Decider = nn.NewAdvisor(b, threshold)
	}

	styles, err := race.ParseStyles(o.styles)
	if err != nil {
		return nil, err
	}
	track, err := race.NewTrack(race.DefaultTrackConfig())
	if err != nil {
		return nil, err
	}
	grid := race.EvenGrid(styles, tuning.GetBaseSpeed())
	return race.New(cfg, track, grid, rand.New(rand.NewSource(o.seed)))
}

func hudLine(ev race.LapEvent, totalLaps int) string {
	s := ev.Snapshot
	line := fmt.Sprintf("lap %2d/%d  car %d %-12s wear=%.2f stint=%2d drop=%.3f ahead=%4.1fs behind=%4.1fs p(pit)=%.2f",
		ev.Lap, totalLaps, ev.CarID, ev.Style, s.TireWear, s.LapsSincePit, s.RecentPaceDrop, s.GapAhead, s.GapBehind, ev.Decision.Probability)
	if s.SafetyCarActive {
		line += "  SC"
	}
	if ev.Requested {
		line += "  BOX"
	}
	return line
}

func run(ctx context.Context, o options, fsys fsutil.FileSystem, stdout io.Writer) error {
	r, err := buildRace(o, fsys)
	if err != nil {
		return err
	}
	totalLaps := r.Config().TotalLaps
	if !o.quiet {
		r.OnLap = func(ev race.LapEvent) { fmt.Fprintln(stdout, hudLine(ev, totalLaps)) }
	}

	maxFrames := r.Config().MaxFrames
	for !r.Done() && r.Frame < maxFrames {
		if r.Frame%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		r.Step()
	}
	res := r.Run()

	stops := 0
	for _, c := range r.Cars {
		stops += c.PitStops
	}
	fmt.Fprintf(stdout, "Race finished in %d frames (%.1fs), %d pit stops, %d safety car deployments\n",
		res.Frames, float64(res.Frames)*r.Config().DT, stops, res.SafetyCarDeployments)
	if res.Truncated {
		fmt.Fprintln(stdout, "Race stopped at the frame ceiling")
	}

	if o.htmlDir != "" {
		path := filepath.Join(o.htmlDir, security.SanitizeFilename(o.title)+".html")
		if err := report.SaveRaceHTML(fsys, path, o.title, res.Events); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved lap chart to %s\n", path)
	}
	return nil
}

func main() {
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("flags: %v", err)
	}
	if o.showVer {
		fmt.Println(version.String("race"))
		return
	}
	if o.htmlDir != "" {
		if err := security.ValidateOutputPath(o.htmlDir); err != nil {
			log.Fatalf("invalid output path: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, fsutil.OSFileSystem{}, os.Stdout); err != nil {
		log.Fatalf("race failed: %v", err)
	}
}
