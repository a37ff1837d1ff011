package features

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotVectorOrder(t *testing.T) {
	s := Snapshot{
		TireWear:        0.5,
		LapsSincePit:    7,
		RecentPaceDrop:  0.1,
		GapAhead:        3.5,
		GapBehind:       30,
		TrafficDensity:  0.2,
		IsStuck:         true,
		LapNorm:         0.4,
		SafetyCarActive: false,
	}

	want := Vector{0.5, 7, 0.1, 3.5, 30, 0.2, 1, 0.4, 0}
	if diff := cmp.Diff(want, s.Vector()); diff != "" {
		t.Errorf("Vector() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, s, FromVector(s.Vector()))
}

func TestIndex(t *testing.T) {
	for i, n := range Names {
		assert.Equal(t, i, Index(n))
	}
	assert.Equal(t, -1, Index("label"))
}

func TestCheckNames(t *testing.T) {
	require.NoError(t, CheckNames(Names[:]))

	t.Run("wrong length", func(t *testing.T) {
		assert.Error(t, CheckNames(Names[:8]))
	})

	t.Run("swapped columns", func(t *testing.T) {
		swapped := Names
		swapped[3], swapped[4] = swapped[4], swapped[3]
		err := CheckNames(swapped[:])
		require.Error(t, err)
		assert.Contains(t, err.Error(), GapBehind)
	})
}

func TestVectorSliceCopies(t *testing.T) {
	v := Vector{1, 2, 3}
	s := v.Slice()
	s[0] = 99
	assert.Equal(t, 1.0, v[0])
	assert.Len(t, s, Count)
}
