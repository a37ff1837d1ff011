// Command eval scores a trained model bundle against a labelled dataset. By
// default only the validation split is scored, drawn with the same ratio and
// seed that training used, so the reported metrics cover unseen rows.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/pitwall/internal/config"
	"github.com/banshee-data/pitwall/internal/dataset"
	"github.com/banshee-data/pitwall/internal/fsutil"
	"github.com/banshee-data/pitwall/internal/nn"
	"github.com/banshee-data/pitwall/internal/store"
	"github.com/banshee-data/pitwall/internal/train"
	"github.com/banshee-data/pitwall/internal/version"
)

type options struct {
	configPath string
	bundle     string
	data       string
	dbPath     string
	raceID     string
	threshold  float64
	valRatio   float64
	seed       int64
	all        bool
	showVer    bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.configPath, "config", "", "Tuning config JSON (defaults when empty)")
	fs.StringVar(&o.bundle, "bundle", "models/pit.bundle", "Model bundle to evaluate")
	fs.StringVar(&o.data, "data", "data/dataset.csv", "Labelled dataset CSV")
	fs.StringVar(&o.dbPath, "db", "", "Read lap rows from this SQLite database instead of -data")
	fs.StringVar(&o.raceID, "race", "", "With -db, evaluate a single race")
	fs.Float64Var(&o.threshold, "threshold", 0, "Pit probability threshold (0 uses config)")
	fs.Float64Var(&o.valRatio, "val-ratio", 0, "Validation split ratio (0 uses config)")
	fs.Int64Var(&o.seed, "seed", 0, "Split seed; must match training (0 uses config)")
	fs.BoolVar(&o.all, "all", false, "Score every row instead of the validation split")
	fs.BoolVar(&o.showVer, "version", false, "Print version and exit")
	err := fs.Parse(args)
	return o, err
}

func loadRows(o options, fsys fsutil.FileSystem) ([]dataset.Row, error) {
	if o.dbPath == "" {
		return dataset.Load(fsys, o.data)
	}
	st, err := store.Open(o.dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.LapRows(o.raceID)
}

func run(o options, fsys fsutil.FileSystem, stdout io.Writer) error {
	tuning, err := config.LoadOrEmpty(o.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	threshold := tuning.GetThreshold()
	if o.threshold > 0 {
		threshold = o.threshold
	}

	b, err := nn.LoadBundle(fsys, o.bundle)
	if err != nil {
		return err
	}
	rows, err := loadRows(o, fsys)
	if err != nil {
		return fmt.Errorf("load rows: %w", err)
	}

	scope := "rows ("
	if !o.all {
		valRatio := tuning.GetValRatio()
		if o.valRatio > 0 {
			valRatio = o.valRatio
		}
		seed := tuning.GetTrainSeed()
		if o.seed != 0 {
			seed = o.seed
		}
		_, rows = train.Split(rows, valRatio, seed)
		scope = fmt.Sprintf("validation rows (split %.2f, seed %d; ", valRatio, seed)
	}

	m, err := train.EvaluateBundle(b, rows, threshold)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Evaluated %d %spit ratio %.3f) at threshold %.2f\n\n", len(rows), scope, dataset.PitRatio(rows), threshold)
	fmt.Fprintln(stdout, m.String())
	return nil
}

func main() {
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("flags: %v", err)
	}
	if o.showVer {
		fmt.Println(version.String("eval"))
		return
	}
	if err := run(o, fsutil.OSFileSystem{}, os.Stdout); err != nil {
		log.Fatalf("eval failed: %v", err)
	}
}
