// Command collect simulates oracle-labelled races and writes the training
// dataset as CSV, optionally persisting every race to SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/banshee-data/pitwall/internal/collect"
	"github.com/banshee-data/pitwall/internal/config"
	"github.com/banshee-data/pitwall/internal/dataset"
	"github.com/banshee-data/pitwall/internal/fsutil"
	"github.com/banshee-data/pitwall/internal/race"
	"github.com/banshee-data/pitwall/internal/security"
	"github.com/banshee-data/pitwall/internal/store"
	"github.com/banshee-data/pitwall/internal/version"
)

type options struct {
	configPath string
	out        string
	dbPath     string
	races      int
	cars       int
	seed       int64
	styles     string
	narrow     bool
	showVer    bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.configPath, "config", "", "Tuning config JSON (defaults when empty)")
	fs.StringVar(&o.out, "out", "data/dataset.csv", "Output dataset CSV")
	fs.StringVar(&o.dbPath, "db", "", "Optional SQLite database to record races in")
	fs.IntVar(&o.races, "races", 0, "Number of races (0 uses config)")
	fs.IntVar(&o.cars, "cars", 0, "Cars per race (0 uses config)")
	fs.Int64Var(&o.seed, "seed", 0, "Collection seed (0 uses config)")
	fs.StringVar(&o.styles, "styles", "", "Comma-separated fixed styles, e.g. aggressive,normal,conservative")
	fs.BoolVar(&o.narrow, "narrow-traffic", false, "Use the milder 0.85-0.95 traffic band")
	fs.BoolVar(&o.showVer, "version", false, "Print version and exit")
	err := fs.Parse(args)
	return o, err
}

func buildConfig(o options) (collect.Config, error) {
	tuning, err := config.LoadOrEmpty(o.configPath)
	if err != nil {
		return collect.Config{}, err
	}
	cfg := tuning.CollectConfig()
	if o.races > 0 {
		cfg.Races = o.races
	}
	if o.seed != 0 {
		cfg.Seed = o.seed
	}
	if o.narrow {
		cfg.Race.Traffic = race.NarrowTrafficBand()
	}
	if o.styles != "" {
		styles, err := race.ParseStyles(o.styles)
		if err != nil {
			return collect.Config{}, err
		}
		cfg.Styles = styles
		cfg.Cars = len(styles)
		cfg.GridStride = 2
		cfg.GridSlots = 2 * len(styles)
	}
	if o.cars > 0 {
		cfg.Cars = o.cars
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, o options, fsys fsutil.FileSystem, stdout io.Writer) error {
	cfg, err := buildConfig(o)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c, err := collect.New(cfg)
	if err != nil {
		return err
	}

	if o.dbPath != "" {
		st, err := store.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		collectionID := uuid.New().String()
		c.OnRace = collect.StoreRaces(st, collectionID, cfg.Race.TotalLaps)
		fmt.Fprintf(stdout, "Recording collection %s in %s\n", collectionID, o.dbPath)
	}

	rows, sum, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	if err := dataset.Save(fsys, o.out, rows); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Saved %d rows from %d races to %s\n", sum.Rows, sum.Races, o.out)
	fmt.Fprintf(stdout, "Pit ratio: %.3f (%d pit rows)\n", sum.PitRatio(), sum.PitRows)
	fmt.Fprintf(stdout, "Safety car deployments: %d, truncated races: %d\n", sum.SafetyCarDeployments, sum.Truncated)
	return nil
}

func main() {
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("flags: %v", err)
	}
	if o.showVer {
		fmt.Println(version.String("collect"))
		return
	}
	for _, p := range []string{o.out, o.dbPath} {
		if p == "" {
			continue
		}
		if err := security.ValidateOutputPath(p); err != nil {
			log.Fatalf("invalid output path: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, fsutil.OSFileSystem{}, os.Stdout); err != nil {
		log.Fatalf("collect failed: %v", err)
	}
}
