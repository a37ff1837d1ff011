package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/pitwall/internal/dataset"
	"github.com/banshee-data/pitwall/internal/features"
)

// Race is one stored simulation.
type Race struct {
	ID                   string
	CollectionID         string
	Index                int
	Seed                 int64
	Cars                 int
	TotalLaps            int
	Frames               int
	Truncated            bool
	SafetyCarDeployments int
	CreatedAt            time.Time
}

// Lap is one labelled lap of a stored race.
type Lap struct {
	CarID int
	Style string
	Lap   int
	Frame int
	Row   dataset.Row
}

const lapColumns = `tire_wear, laps_since_pit, recent_pace_drop, gap_ahead, gap_behind,
	traffic_density, is_stuck, lap_norm, safety_car_active, label`

// InsertRace stores a race and its laps in one transaction.
func (s *Store) InsertRace(r Race, laps []Lap) (err error) {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(`
		INSERT INTO races (race_id, collection_id, race_index, seed, cars, total_laps, frames, truncated, safety_car_deployments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CollectionID, r.Index, r.Seed, r.Cars, r.TotalLaps, r.Frames, r.Truncated, r.SafetyCarDeployments)
	if err != nil {
		return fmt.Errorf("failed to insert race %s: %w", r.ID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO lap_rows (race_id, car_id, style, lap, frame, ` + lapColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare lap insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range laps {
		f := l.Row.Features
		if _, err = stmt.Exec(r.ID, l.CarID, l.Style, l.Lap, l.Frame,
			f[0], f[1], f[2], f[3], f[4], f[5], f[6], f[7], f[8], l.Row.Label); err != nil {
			return fmt.Errorf("failed to insert lap %d of car %d: %w", l.Lap, l.CarID, err)
		}
	}
	return tx.Commit()
}

// Races lists stored races in insertion order, optionally filtered to one
// collection.
func (s *Store) Races(collectionID string) ([]Race, error) {
	query := `SELECT race_id, collection_id, race_index, seed, cars, total_laps, frames,
		truncated, safety_car_deployments, created_at FROM races`
	var args []any
	if collectionID != "" {
		query += ` WHERE collection_id = ?`
		args = append(args, collectionID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Race
	for rows.Next() {
		var r Race
		var created sql.NullTime
		if err := rows.Scan(&r.ID, &r.CollectionID, &r.Index, &r.Seed, &r.Cars, &r.TotalLaps, &r.Frames,
			&r.Truncated, &r.SafetyCarDeployments, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = created.Time
		out = append(out, r)
	}
	return out, rows.Err()
}

// LapRows returns the dataset rows of one race, or of every race when
// raceID is empty, ordered by race, car and lap.
func (s *Store) LapRows(raceID string) ([]dataset.Row, error) {
	query := `SELECT ` + lapColumns + ` FROM lap_rows l JOIN races r ON r.race_id = l.race_id`
	var args []any
	if raceID != "" {
		query += ` WHERE l.race_id = ?`
		args = append(args, raceID)
	}
	query += ` ORDER BY r.rowid, l.car_id, l.lap`

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dataset.Row
	for rows.Next() {
		var r dataset.Row
		dest := make([]any, 0, features.Count+1)
		for i := range r.Features {
			dest = append(dest, &r.Features[i])
		}
		dest = append(dest, &r.Label)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PitRatio returns the share of stored laps labelled as pit and the lap
// count.
func (s *Store) PitRatio() (float64, int, error) {
	var total int
	var pits sql.NullInt64
	if err := s.QueryRow(`SELECT COUNT(*), SUM(label) FROM lap_rows`).Scan(&total, &pits); err != nil {
		return 0, 0, err
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(pits.Int64) / float64(total), total, nil
}

// DeleteRace removes a race and, through the foreign key, its laps.
func (s *Store) DeleteRace(raceID string) error {
	res, err := s.Exec(`DELETE FROM races WHERE race_id = ?`, raceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("race %s: %w", raceID, sql.ErrNoRows)
	}
	return nil
}
