// Command train fits the pit-stop network on a collected dataset and saves
// the model bundle and its loss curve.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/banshee-data/pitwall/internal/config"
	"github.com/banshee-data/pitwall/internal/dataset"
	"github.com/banshee-data/pitwall/internal/fsutil"
	"github.com/banshee-data/pitwall/internal/report"
	"github.com/banshee-data/pitwall/internal/security"
	"github.com/banshee-data/pitwall/internal/store"
	"github.com/banshee-data/pitwall/internal/train"
	"github.com/banshee-data/pitwall/internal/version"
)

type options struct {
	configPath string
	data       string
	dbPath     string
	fromDB     bool
	bundle     string
	plot       string
	epochs     int
	lr         float64
	seed       int64
	showVer    bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.configPath, "config", "", "Tuning config JSON (defaults when empty)")
	fs.StringVar(&o.data, "data", "data/dataset.csv", "Dataset CSV")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database; training runs are recorded here")
	fs.BoolVar(&o.fromDB, "from-db", false, "Read lap rows from -db instead of -data")
	fs.StringVar(&o.bundle, "bundle", "models/pit.bundle", "Output model bundle")
	fs.StringVar(&o.plot, "plot", "models/loss.png", "Output loss curve PNG (empty to skip)")
	fs.IntVar(&o.epochs, "epochs", 0, "Epochs (0 uses config)")
	fs.Float64Var(&o.lr, "lr", 0, "Learning rate (0 uses config)")
	fs.Int64Var(&o.seed, "seed", 0, "Training seed (0 uses config)")
	fs.BoolVar(&o.showVer, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.fromDB && o.dbPath == "" {
		return o, fmt.Errorf("-from-db requires -db")
	}
	return o, nil
}

func buildConfig(o options) (train.Config, error) {
	tuning, err := config.LoadOrEmpty(o.configPath)
	if err != nil {
		return train.Config{}, err
	}
	cfg := tuning.TrainConfig()
	if o.epochs > 0 {
		cfg.Epochs = o.epochs
	}
	if o.lr > 0 {
		cfg.LearningRate = o.lr
	}
	if o.seed != 0 {
		cfg.Seed = o.seed
	}
	return cfg, cfg.Validate()
}

func run(o options, fsys fsutil.FileSystem, stdout io.Writer) error {
	cfg, err := buildConfig(o)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var st *store.Store
	if o.dbPath != "" {
		if st, err = store.Open(o.dbPath); err != nil {
			return err
		}
		defer st.Close()
	}

	var rows []dataset.Row
	source := o.data
	if o.fromDB {
		source = o.dbPath
		rows, err = st.LapRows("")
	} else {
		rows, err = dataset.Load(fsys, o.data)
	}
	if err != nil {
		return fmt.Errorf("load rows: %w", err)
	}
	fmt.Fprintf(stdout, "Loaded %d rows from %s (pit ratio %.3f)\n", len(rows), source, dataset.PitRatio(rows))

	res, err := train.Run(cfg, rows)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := res.Bundle().Save(fsys, o.bundle); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Saved model bundle to %s\n", o.bundle)

	if o.plot != "" {
		if err := report.SaveLossPNG(fsys, o.plot, res.History); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved loss curve to %s\n", o.plot)
	}

	final := res.Final()
	if st != nil {
		rec := store.TrainingRun{
			ID:             uuid.New().String(),
			Dataset:        source,
			Epochs:         cfg.Epochs,
			LearningRate:   cfg.LearningRate,
			BatchSize:      cfg.BatchSize,
			Seed:           cfg.Seed,
			TrainRows:      res.TrainRows,
			ValRows:        res.ValRows,
			FinalTrainLoss: final.TrainLoss,
			FinalValLoss:   final.ValLoss,
			ValAccuracy:    final.ValAccuracy,
			BundlePath:     o.bundle,
		}
		if err := st.InsertTrainingRun(rec); err != nil {
			return fmt.Errorf("record training run: %w", err)
		}
		fmt.Fprintf(stdout, "Recorded training run %s\n", rec.ID)
	}

	fmt.Fprintf(stdout, "Final: train_loss=%.4f val_loss=%.4f val_acc=%.4f\n", final.TrainLoss, final.ValLoss, final.ValAccuracy)
	return nil
}

func main() {
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("flags: %v", err)
	}
	if o.showVer {
		fmt.Println(version.String("train"))
		return
	}
	for _, p := range []string{o.bundle, o.plot, o.dbPath} {
		if p == "" {
			continue
		}
		if err := security.ValidateOutputPath(p); err != nil {
			log.Fatalf("invalid output path: %v", err)
		}
	}

	if err := run(o, fsutil.OSFileSystem{}, os.Stdout); err != nil {
		log.Fatalf("train failed: %v", err)
	}
}
