package store

import (
	"database/sql"
	"time"
)

// TrainingRun records the hyperparameters and outcome of one training run.
type TrainingRun struct {
	ID             string
	Dataset        string
	Epochs         int
	LearningRate   float64
	BatchSize      int
	Seed           int64
	TrainRows      int
	ValRows        int
	FinalTrainLoss float64
	FinalValLoss   float64
	ValAccuracy    float64
	BundlePath     string
	CreatedAt      time.Time
}

// InsertTrainingRun stores run.
func (s *Store) InsertTrainingRun(run TrainingRun) error {
	_, err := s.Exec(`
		INSERT INTO training_runs (run_id, dataset, epochs, learning_rate, batch_size, seed,
			train_rows, val_rows, final_train_loss, final_val_loss, val_accuracy, bundle_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Dataset, run.Epochs, run.LearningRate, run.BatchSize, run.Seed,
		run.TrainRows, run.ValRows, run.FinalTrainLoss, run.FinalValLoss, run.ValAccuracy, run.BundlePath)
	return err
}

// TrainingRuns lists stored runs, newest first.
func (s *Store) TrainingRuns() ([]TrainingRun, error) {
	rows, err := s.Query(`
		SELECT run_id, dataset, epochs, learning_rate, batch_size, seed, train_rows, val_rows,
			final_train_loss, final_val_loss, val_accuracy, bundle_path, created_at
		FROM training_runs
		ORDER BY rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrainingRun
	for rows.Next() {
		var r TrainingRun
		var created sql.NullTime
		if err := rows.Scan(&r.ID, &r.Dataset, &r.Epochs, &r.LearningRate, &r.BatchSize, &r.Seed,
			&r.TrainRows, &r.ValRows, &r.FinalTrainLoss, &r.FinalValLoss, &r.ValAccuracy,
			&r.BundlePath, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = created.Time
		out = append(out, r)
	}
	return out, rows.Err()
}
