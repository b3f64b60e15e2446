package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statforge/statcast-harvester/pkg/statcast"
)

func testDataset() *statcast.Dataset {
	return &statcast.Dataset{
		Header: []string{"game_pk", "game_date", "at_bat_number", "pitch_number", "description"},
		Records: []statcast.PitchRecord{
			{
				GamePK: 1, AtBat: 1, PitchNumber: 1,
				GameDate:    statcast.NewDate(2023, 4, 1),
				Description: "ball",
				Fields:      []string{"1", "2023-04-01", "1", "1", "ball"},
			},
			{
				GamePK: 1, AtBat: 1, PitchNumber: 2,
				GameDate:    statcast.NewDate(2023, 4, 1),
				Description: "hit_into_play",
				Fields:      []string{"1", "2023-04-01", "1", "2", "hit_into_play"},
			},
		},
	}
}

func TestFileNames(t *testing.T) {
	d := statcast.NewDate(2023, 4, 5)

	assert.Equal(t, "PitchData.NonBBE.2023-04-05.csv", DailyFileName(d))
	assert.Equal(t, "PitchData.BBE.2023.Regular.csv", CumulativeFileName(2023, statcast.GameTypeRegular))
	assert.Equal(t, "PitchData.2023.WorldSeries.csv", MasterFileName(2023, statcast.GameTypeWS))
}

func TestStoreWriteRead(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	name := DailyFileName(statcast.NewDate(2023, 4, 1))
	assert.False(t, store.Exists(name))

	require.NoError(t, store.WriteDataset(name, testDataset()))
	assert.True(t, store.Exists(name))

	ds, err := store.ReadDataset(name)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, "1-1-2", ds.Records[1].ID())
}

func TestStoreWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	name := DailyFileName(statcast.NewDate(2023, 4, 1))
	require.NoError(t, store.WriteDataset(name, testDataset()))
	require.NoError(t, store.WriteDataset(name, testDataset()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
	assert.Len(t, entries, 1)
}

func TestStoreOverwriteReplacesContent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	name := CumulativeFileName(2023, statcast.GameTypeRegular)
	require.NoError(t, store.WriteDataset(name, testDataset()))

	smaller := testDataset()
	smaller.Records = smaller.Records[:1]
	require.NoError(t, store.WriteDataset(name, smaller))

	ds, err := store.ReadDataset(name)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}

func TestStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "artifacts")
	_, err := NewStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestReadMissingArtifact(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.ReadDataset("PitchData.NonBBE.2023-04-01.csv")
	assert.Error(t, err)
}
