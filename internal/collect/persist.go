package collect

import (
	"github.com/banshee-data/pitwall/internal/store"
)

// StoreRaces returns an OnRace hook that saves every race and its labelled
// laps under collectionID.
func StoreRaces(st *store.Store, collectionID string, totalLaps int) func(*RaceRecord) error {
	return func(rec *RaceRecord) error {
		laps := make([]store.Lap, len(rec.Rows))
		for i, ev := range rec.Result.Events {
			laps[i] = store.Lap{
				CarID: ev.CarID,
				Style: string(ev.Style),
				Lap:   ev.Lap,
				Frame: ev.Frame,
				Row:   rec.Rows[i],
			}
		}
		return st.InsertRace(store.Race{
			ID:                   rec.ID,
			CollectionID:         collectionID,
			Index:                rec.Index,
			Seed:                 rec.Seed,
			Cars:                 len(rec.Grid),
			TotalLaps:            totalLaps,
			Frames:               rec.Result.Frames,
			Truncated:            rec.Result.Truncated,
			SafetyCarDeployments: rec.Result.SafetyCarDeployments,
		}, laps)
	}
}
